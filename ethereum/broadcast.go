package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

var nonceTooLow = regexp.MustCompile("nonce too low: next nonce ([0-9]+), tx nonce [0-9]+")

// pendingTx is a submitted transaction whose receipt has not been seen.
type pendingTx struct {
	tx   *ethtypes.Transaction
	seen time.Time
}

func (e *Ethereum) SetPeer(ctx context.Context, local types.Endpoint, remote types.EID, peer types.Bytes32) (*types.Receipt, error) {
	_, oapp, err := e.oapp(local)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, oapp, oappABI, "setPeer", uint32(remote), [32]byte(peer))
}

func (e *Ethereum) SetSendLibrary(ctx context.Context, local types.Endpoint, remote types.EID, lib common.Address) (*types.Receipt, error) {
	endpoint, oapp, err := e.endpointAddress(ctx, local)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, endpoint, endpointABI, "setSendLibrary", oapp, uint32(remote), lib)
}

func (e *Ethereum) SetReceiveLibrary(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ReceiveLibraryConfig) (*types.Receipt, error) {
	endpoint, oapp, err := e.endpointAddress(ctx, local)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, endpoint, endpointABI, "setReceiveLibrary", oapp, uint32(remote), cfg.Library, new(big.Int).SetUint64(cfg.GracePeriod))
}

func (e *Ethereum) SetReceiveLibraryTimeout(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ReceiveLibraryTimeout) (*types.Receipt, error) {
	endpoint, oapp, err := e.endpointAddress(ctx, local)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, endpoint, endpointABI, "setReceiveLibraryTimeout", oapp, uint32(remote), cfg.Library, new(big.Int).SetUint64(cfg.Expiry))
}

func (e *Ethereum) SetExecutorConfig(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ExecutorConfig) (*types.Receipt, error) {
	encoded, err := EncodeExecutorConfig(cfg)
	if err != nil {
		return nil, err
	}
	return e.setConfig(ctx, local, remote, types.Send, ConfigTypeExecutor, encoded)
}

func (e *Ethereum) SetUlnConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction, cfg types.UlnConfig) (*types.Receipt, error) {
	encoded, err := EncodeUlnConfig(cfg)
	if err != nil {
		return nil, err
	}
	return e.setConfig(ctx, local, remote, dir, ConfigTypeUln, encoded)
}

func (e *Ethereum) setConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction, configType uint32, encoded []byte) (*types.Receipt, error) {
	lib, err := e.library(ctx, local, remote, dir)
	if err != nil {
		return nil, err
	}
	endpoint, oapp, err := e.endpointAddress(ctx, local)
	if err != nil {
		return nil, err
	}
	params := []setConfigParam{{Eid: uint32(remote), ConfigType: configType, Config: encoded}}
	return e.transact(ctx, endpoint, endpointABI, "setConfig", oapp, lib, params)
}

// transact submits one transaction and waits for it to be mined. Submission is serialised
// per chain so that concurrent pathways never reuse a nonce.
//
// A transaction still unmined when the wait times out stays pending: the next identical
// call waits for it again instead of submitting a second one.
func (e *Ethereum) transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*types.Receipt, error) {
	if e.rpcClient == nil {
		return nil, errClientsNotInitialized
	}

	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to pack %s: %w", method, err)
	}
	key := crypto.Keccak256Hash(to.Bytes(), input)

	auth, err := bind.NewKeyedTransactorWithChainID(e.privateKey, big.NewInt(e.chainID))
	if err != nil {
		return nil, fmt.Errorf("unable to create auth: %w", err)
	}
	auth.Context = ctx

	contract := bind.NewBoundContract(to, contractABI, e.rpcClient, e.rpcClient, e.rpcClient)
	tx, resumed, err := e.submit(ctx, auth, key, contract, input, method)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("method", method, "tx", tx.Hash().Hex(), "nonce", tx.Nonce())
	if resumed {
		logger.Info("Transaction still pending, waiting to be mined")
	} else {
		logger.Info("Transaction submitted, waiting to be mined")
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.txConfirmation)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, e.rpcClient, tx)
	if err != nil {
		return nil, &types.NetworkError{Op: method + ": wait mined " + tx.Hash().Hex(), Err: err}
	}
	e.forget(key)
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return nil, &types.WriteRevertedError{TxHash: tx.Hash().Hex(), Reason: method + " reverted"}
	}

	logger.Info("Transaction mined", "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return &types.Receipt{TxHash: tx.Hash().Hex(), BlockNumber: receipt.BlockNumber.Uint64()}, nil
}

// submit returns the pending transaction for key when there is one, or signs and sends a
// new one at the next nonce.
func (e *Ethereum) submit(ctx context.Context, auth *bind.TransactOpts, key common.Hash, contract *bind.BoundContract, input []byte, method string) (tx *ethtypes.Transaction, resumed bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p := e.resumable(ctx, key); p != nil {
		p.seen = time.Now()
		return p.tx, true, nil
	}

	nonce := e.sequences.Next(e.eid)
	auth.Nonce = new(big.Int).SetUint64(nonce)

	e.limiter.Take()
	tx, err = contract.RawTransact(auth, input)
	if err == nil {
		e.pending[key] = &pendingTx{tx: tx, seen: time.Now()}
		return tx, false, nil
	}

	e.logger.Error("Error during broadcast", "method", method, "nonce", nonce, "err", err)
	e.resyncNonce(ctx, err)
	return nil, false, classifySendError(ctx, method, err)
}

// resumable returns the pending transaction for key if it is worth waiting for again.
// Entries left alone for longer than two confirmation timeouts are given up on, and a
// transaction the node no longer knows was dropped: its nonce is free again.
func (e *Ethereum) resumable(ctx context.Context, key common.Hash) *pendingTx {
	p, ok := e.pending[key]
	if !ok {
		return nil
	}
	if time.Since(p.seen) > 2*e.txConfirmation {
		delete(e.pending, key)
		return nil
	}

	e.limiter.Take()
	_, _, err := e.rpcClient.TransactionByHash(ctx, p.tx.Hash())
	if errors.Is(err, ethereum.NotFound) {
		e.logger.Info("Pending transaction dropped, submitting again", "tx", p.tx.Hash().Hex(), "nonce", p.tx.Nonce())
		delete(e.pending, key)
		e.refreshNonce(ctx)
		return nil
	}
	return p
}

func (e *Ethereum) forget(key common.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, key)
}

// resyncNonce resets the local nonce after a failed submission, from the node's
// "nonce too low" hint when there is one.
func (e *Ethereum) resyncNonce(ctx context.Context, sendErr error) {
	if m := nonceTooLow.FindStringSubmatch(sendErr.Error()); m != nil {
		if next, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			e.sequences.Put(e.eid, next)
			return
		}
	}
	e.refreshNonce(ctx)
}

func (e *Ethereum) refreshNonce(ctx context.Context) {
	next, err := e.rpcClient.PendingNonceAt(context.WithoutCancel(ctx), e.signerAddress)
	if err != nil {
		e.logger.Error("Unable to retrieve account nonce", "err", err)
		return
	}
	e.sequences.Put(e.eid, next)
}

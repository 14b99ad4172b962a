package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

var errClientsNotInitialized = errors.New("ethereum clients not initialized")

// call runs a read-only contract method under the chain's rate limit.
func (e *Ethereum) call(ctx context.Context, contract *bind.BoundContract, method string, args ...any) ([]any, error) {
	if e.rpcClient == nil {
		return nil, errClientsNotInitialized
	}
	e.limiter.Take()

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classifyCallError(ctx, method, err)
	}
	return out, nil
}

func (e *Ethereum) GetPeer(ctx context.Context, local types.Endpoint, remote types.EID) (types.Bytes32, error) {
	oapp, _, err := e.oapp(local)
	if err != nil {
		return types.Bytes32{}, err
	}
	out, err := e.call(ctx, oapp, "peers", uint32(remote))
	if err != nil {
		return types.Bytes32{}, err
	}
	return types.Bytes32(out[0].([32]byte)), nil
}

func (e *Ethereum) GetSendLibrary(ctx context.Context, local types.Endpoint, remote types.EID) (common.Address, error) {
	endpoint, oapp, err := e.endpoint(ctx, local)
	if err != nil {
		return common.Address{}, err
	}
	out, err := e.call(ctx, endpoint, "getSendLibrary", oapp, uint32(remote))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (e *Ethereum) GetReceiveLibrary(ctx context.Context, local types.Endpoint, remote types.EID) (common.Address, error) {
	endpoint, oapp, err := e.endpoint(ctx, local)
	if err != nil {
		return common.Address{}, err
	}
	out, err := e.call(ctx, endpoint, "getReceiveLibrary", oapp, uint32(remote))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (e *Ethereum) GetReceiveLibraryTimeout(ctx context.Context, local types.Endpoint, remote types.EID) (types.ReceiveLibraryTimeout, error) {
	endpoint, oapp, err := e.endpoint(ctx, local)
	if err != nil {
		return types.ReceiveLibraryTimeout{}, err
	}
	out, err := e.call(ctx, endpoint, "receiveLibraryTimeout", oapp, uint32(remote))
	if err != nil {
		return types.ReceiveLibraryTimeout{}, err
	}
	return types.ReceiveLibraryTimeout{
		Library: out[0].(common.Address),
		Expiry:  out[1].(*big.Int).Uint64(),
	}, nil
}

// GetExecutorConfig reads the effective executor config, library defaults included.
func (e *Ethereum) GetExecutorConfig(ctx context.Context, local types.Endpoint, remote types.EID) (types.ExecutorConfig, error) {
	raw, err := e.getConfig(ctx, local, remote, types.Send, ConfigTypeExecutor)
	if err != nil {
		return types.ExecutorConfig{}, err
	}
	return DecodeExecutorConfig(raw)
}

// GetUlnConfig reads the effective ULN config of the library used in direction dir.
// Counts and confirmations left at their defaults come back as the defaults' values.
func (e *Ethereum) GetUlnConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction) (types.UlnConfig, error) {
	raw, err := e.getConfig(ctx, local, remote, dir, ConfigTypeUln)
	if err != nil {
		return types.UlnConfig{}, err
	}
	return DecodeUlnConfig(raw)
}

// getConfig reads a config of the library currently used in direction dir.
func (e *Ethereum) getConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction, configType uint32) ([]byte, error) {
	lib, err := e.library(ctx, local, remote, dir)
	if err != nil {
		return nil, err
	}
	endpoint, oapp, err := e.endpoint(ctx, local)
	if err != nil {
		return nil, err
	}
	out, err := e.call(ctx, endpoint, "getConfig", oapp, lib, uint32(remote), configType)
	if err != nil {
		return nil, err
	}
	return out[0].([]byte), nil
}

func (e *Ethereum) library(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction) (common.Address, error) {
	switch dir {
	case types.Send:
		return e.GetSendLibrary(ctx, local, remote)
	case types.Receive:
		return e.GetReceiveLibrary(ctx, local, remote)
	default:
		return common.Address{}, fmt.Errorf("unknown direction %q", dir)
	}
}

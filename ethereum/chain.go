package ethereum

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"embed"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/ratelimit"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

//go:embed abi/OApp.json abi/EndpointV2.json
var content embed.FS

var (
	oappABI     abi.ABI
	endpointABI abi.ABI
)

func init() {
	oappABI = mustLoadABI("abi/OApp.json")
	endpointABI = mustLoadABI("abi/EndpointV2.json")
}

func mustLoadABI(path string) abi.ABI {
	raw, err := content.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("unable to read %s: %v", path, err))
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("unable to parse %s: %v", path, err))
	}
	return parsed
}

var _ types.Chain = (*Ethereum)(nil)

const defaultTxConfirmationTimeout = 2 * time.Minute

type Ethereum struct {
	// from config
	name           string
	eid            types.EID
	chainID        int64
	rpcURL         string
	wsURL          string
	endpointV2     common.Address
	privateKey     *ecdsa.PrivateKey
	signerAddress  common.Address
	txConfirmation time.Duration

	limiter ratelimit.Limiter

	// mu serialises nonce assignment and submission
	mu        sync.Mutex
	sequences *types.SequenceMap

	endpointsMu sync.Mutex
	endpoints   map[common.Address]common.Address

	// pending holds submitted transactions not yet seen mined, guarded by mu
	pending map[common.Hash]*pendingTx

	rpcClient backend
	wsClient  *ethclient.Client
	logger    log.Logger
}

// backend is the part of the rpc client used for calls and transactions.
type backend interface {
	bind.ContractBackend
	bind.DeployBackend
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *ethtypes.Transaction, isPending bool, err error)
	Close()
}

func NewChain(
	name string,
	eid types.EID,
	chainID int64,
	rpcURL string,
	wsURL string,
	endpointV2 string,
	privateKey string,
	rpcRateLimit int,
	txConfirmationSecs int,
) (*Ethereum, error) {
	privEcdsaKey, signer, err := GetEcdsaKeyAddress(privateKey)
	if err != nil {
		return nil, err
	}

	e := &Ethereum{
		name:           name,
		eid:            eid,
		chainID:        chainID,
		rpcURL:         rpcURL,
		wsURL:          wsURL,
		privateKey:     privEcdsaKey,
		signerAddress:  common.HexToAddress(signer),
		txConfirmation: defaultTxConfirmationTimeout,
		limiter:        ratelimit.NewUnlimited(),
		sequences:      types.NewSequenceMap(),
		endpoints:      make(map[common.Address]common.Address),
		pending:        make(map[common.Hash]*pendingTx),
		logger:         log.NewNopLogger(),
	}
	if endpointV2 != "" {
		e.endpointV2, err = address.ParseEVM(endpointV2)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint-v2 for chain %s: %w", name, err)
		}
	}
	if rpcRateLimit > 0 {
		e.limiter = ratelimit.New(rpcRateLimit)
	}
	if txConfirmationSecs > 0 {
		e.txConfirmation = time.Duration(txConfirmationSecs) * time.Second
	}
	return e, nil
}

func (e *Ethereum) Name() string {
	return e.name
}

func (e *Ethereum) EID() types.EID {
	return e.eid
}

// Signer returns the address that submits this chain's transactions.
func (e *Ethereum) Signer() common.Address {
	return e.signerAddress
}

// Watchable reports whether a websocket endpoint is configured for drift watching.
func (e *Ethereum) Watchable() bool {
	return e.wsURL != ""
}

func (e *Ethereum) InitializeClients(ctx context.Context, logger log.Logger) error {
	e.logger = logger.With("chain", e.name, "chain_id", e.chainID, "eid", e.eid)

	rpcClient, err := ethclient.DialContext(ctx, e.rpcURL)
	if err != nil {
		return fmt.Errorf("unable to initialize rpc ethereum client; err: %w", err)
	}
	e.rpcClient = rpcClient

	if e.wsURL != "" {
		e.wsClient, err = ethclient.DialContext(ctx, e.wsURL)
		if err != nil {
			return fmt.Errorf("unable to initialize websocket ethereum client; err: %w", err)
		}
	}

	nonce, err := e.rpcClient.PendingNonceAt(ctx, e.signerAddress)
	if err != nil {
		return fmt.Errorf("unable to retrieve evm account nonce: %w", err)
	}
	e.sequences.Put(e.eid, nonce)

	return nil
}

func (e *Ethereum) CloseClients() error {
	if e.wsClient != nil {
		e.wsClient.Close()
	}
	if e.rpcClient != nil {
		e.rpcClient.Close()
	}
	return nil
}

func (e *Ethereum) oapp(local types.Endpoint) (*bind.BoundContract, common.Address, error) {
	addr, err := address.ParseEVM(local.Address)
	if err != nil {
		return nil, common.Address{}, err
	}
	return bind.NewBoundContract(addr, oappABI, e.rpcClient, e.rpcClient, e.rpcClient), addr, nil
}

// endpoint returns the EndpointV2 bound for the OApp, and the OApp's address.
func (e *Ethereum) endpoint(ctx context.Context, local types.Endpoint) (*bind.BoundContract, common.Address, error) {
	endpointAddr, oappAddr, err := e.endpointAddress(ctx, local)
	if err != nil {
		return nil, common.Address{}, err
	}
	return bind.NewBoundContract(endpointAddr, endpointABI, e.rpcClient, e.rpcClient, e.rpcClient), oappAddr, nil
}

// endpointAddress returns the configured EndpointV2 address. Without one it is read once
// per OApp from the OApp itself.
func (e *Ethereum) endpointAddress(ctx context.Context, local types.Endpoint) (endpointAddr, oappAddr common.Address, err error) {
	oapp, oappAddr, err := e.oapp(local)
	if err != nil {
		return endpointAddr, oappAddr, err
	}
	if e.endpointV2 != (common.Address{}) {
		return e.endpointV2, oappAddr, nil
	}

	e.endpointsMu.Lock()
	cached, ok := e.endpoints[oappAddr]
	e.endpointsMu.Unlock()
	if ok {
		return cached, oappAddr, nil
	}

	out, err := e.call(ctx, oapp, "endpoint")
	if err != nil {
		return endpointAddr, oappAddr, err
	}
	endpointAddr = out[0].(common.Address)

	e.endpointsMu.Lock()
	e.endpoints[oappAddr] = endpointAddr
	e.endpointsMu.Unlock()

	return endpointAddr, oappAddr, nil
}

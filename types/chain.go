package types

import (
	"context"

	"cosmossdk.io/log"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt identifies a mined state-changing transaction.
type Receipt struct {
	TxHash      string `json:"tx_hash" yaml:"tx-hash"`
	BlockNumber uint64 `json:"block_number" yaml:"block-number"`
}

// ChainStateReader reads the current peer and pathway settings of a local endpoint.
// The local endpoint's Address is always resolved before these are called.
type ChainStateReader interface {
	GetPeer(ctx context.Context, local Endpoint, remote EID) (Bytes32, error)

	GetSendLibrary(ctx context.Context, local Endpoint, remote EID) (common.Address, error)

	GetReceiveLibrary(ctx context.Context, local Endpoint, remote EID) (common.Address, error)

	GetReceiveLibraryTimeout(ctx context.Context, local Endpoint, remote EID) (ReceiveLibraryTimeout, error)

	// GetExecutorConfig returns the executor config of the send library currently in use.
	GetExecutorConfig(ctx context.Context, local Endpoint, remote EID) (ExecutorConfig, error)

	// GetUlnConfig returns the verification config of the send or receive library currently in use.
	GetUlnConfig(ctx context.Context, local Endpoint, remote EID, dir Direction) (UlnConfig, error)
}

// ChainStateWriter submits state-changing transactions and waits for them to be mined.
// Each call is one unit of convergence for the fields it covers.
type ChainStateWriter interface {
	SetPeer(ctx context.Context, local Endpoint, remote EID, peer Bytes32) (*Receipt, error)

	SetSendLibrary(ctx context.Context, local Endpoint, remote EID, lib common.Address) (*Receipt, error)

	SetReceiveLibrary(ctx context.Context, local Endpoint, remote EID, cfg ReceiveLibraryConfig) (*Receipt, error)

	SetReceiveLibraryTimeout(ctx context.Context, local Endpoint, remote EID, cfg ReceiveLibraryTimeout) (*Receipt, error)

	SetExecutorConfig(ctx context.Context, local Endpoint, remote EID, cfg ExecutorConfig) (*Receipt, error)

	SetUlnConfig(ctx context.Context, local Endpoint, remote EID, dir Direction, cfg UlnConfig) (*Receipt, error)
}

// Chain is a writable chain hosting local endpoints.
type Chain interface {
	// Name returns the name of the chain.
	Name() string

	// EID returns the endpoint id of the chain.
	EID() EID

	// InitializeClients dials the chain's RPC endpoints.
	InitializeClients(ctx context.Context, logger log.Logger) error

	// CloseClients closes every client opened by InitializeClients.
	CloseClients() error

	ChainStateReader
	ChainStateWriter
}

// AddressResolver resolves a contract name deployed on a chain to its native address.
type AddressResolver interface {
	Resolve(ctx context.Context, eid EID, contractName string) (string, error)
}

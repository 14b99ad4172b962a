package testutil

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.Chain = (*FakeChain)(nil)

// Method names recorded by FakeChain.
const (
	GetPeer                  = "GetPeer"
	GetSendLibrary           = "GetSendLibrary"
	GetReceiveLibrary        = "GetReceiveLibrary"
	GetReceiveLibraryTimeout = "GetReceiveLibraryTimeout"
	GetExecutorConfig        = "GetExecutorConfig"
	GetSendUlnConfig         = "GetUlnConfig/send"
	GetReceiveUlnConfig      = "GetUlnConfig/receive"

	SetPeer                  = "SetPeer"
	SetSendLibrary           = "SetSendLibrary"
	SetReceiveLibrary        = "SetReceiveLibrary"
	SetReceiveLibraryTimeout = "SetReceiveLibraryTimeout"
	SetExecutorConfig        = "SetExecutorConfig"
	SetSendUlnConfig         = "SetUlnConfig/send"
	SetReceiveUlnConfig      = "SetUlnConfig/receive"
)

// Call is one recorded invocation.
type Call struct {
	Method string
	Local  types.Endpoint
	Remote types.EID
	Value  any
}

// LibraryDefaults are the defaults a message library merges into an OApp's own config
// when it is read back.
type LibraryDefaults struct {
	Executor   types.ExecutorConfig
	SendUln    types.UlnConfig
	ReceiveUln types.UlnConfig
}

func (d *LibraryDefaults) executor(app types.ExecutorConfig) types.ExecutorConfig {
	if app.MaxMessageSize == 0 {
		app.MaxMessageSize = d.Executor.MaxMessageSize
	}
	if app.Executor == (common.Address{}) {
		app.Executor = d.Executor.Executor
	}
	return app
}

// uln applies the defaults the way the libraries do, driven by the counts app is
// encoded with: 0 takes the default, 255 keeps the list empty.
func (d *LibraryDefaults) uln(app types.UlnConfig, dir types.Direction) types.UlnConfig {
	def := d.SendUln
	if dir == types.Receive {
		def = d.ReceiveUln
	}
	required, optional := ethereum.DVNCounts(app)
	if app.Confirmations == 0 {
		app.Confirmations = def.Confirmations
	}
	if required == 0 {
		app.RequiredDVNs = def.RequiredDVNs
	}
	if optional == 0 {
		app.OptionalDVNs = def.OptionalDVNs
		app.OptionalDVNThreshold = def.OptionalDVNThreshold
	}
	return app
}

type fault struct {
	err   error
	apply bool
}

// FakeChain is an in-memory chain. State is keyed by remote eid since a graph
// holds one local endpoint per chain.
type FakeChain struct {
	name string
	eid  types.EID

	mu sync.Mutex

	Peers            map[types.EID]types.Bytes32
	SendLibraries    map[types.EID]common.Address
	ReceiveLibraries map[types.EID]types.ReceiveLibraryConfig
	Timeouts         map[types.EID]types.ReceiveLibraryTimeout
	Executors        map[types.EID]types.ExecutorConfig
	SendUlns         map[types.EID]types.UlnConfig
	ReceiveUlns      map[types.EID]types.UlnConfig

	// Defaults, when set, makes config reads return the effective config like
	// EndpointV2.getConfig instead of what was last written.
	Defaults *LibraryDefaults

	calls  []Call
	faults map[string][]fault
	txs    int

	// OnWrite runs before a write is applied, with the chain unlocked.
	OnWrite func(method string, remote types.EID)
}

func NewFakeChain(name string, eid types.EID) *FakeChain {
	return &FakeChain{
		name:             name,
		eid:              eid,
		Peers:            make(map[types.EID]types.Bytes32),
		SendLibraries:    make(map[types.EID]common.Address),
		ReceiveLibraries: make(map[types.EID]types.ReceiveLibraryConfig),
		Timeouts:         make(map[types.EID]types.ReceiveLibraryTimeout),
		Executors:        make(map[types.EID]types.ExecutorConfig),
		SendUlns:         make(map[types.EID]types.UlnConfig),
		ReceiveUlns:      make(map[types.EID]types.UlnConfig),
		faults:           make(map[string][]fault),
	}
}

func (c *FakeChain) Name() string { return c.name }

func (c *FakeChain) EID() types.EID { return c.eid }

func (c *FakeChain) InitializeClients(context.Context, log.Logger) error { return nil }

func (c *FakeChain) CloseClients() error { return nil }

// Fail makes the next call to method return err. Faults queue in order.
func (c *FakeChain) Fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[method] = append(c.faults[method], fault{err: err})
}

// FailAfterApply makes the next write to method change state and still return err,
// as when a transaction lands but its receipt is lost.
func (c *FakeChain) FailAfterApply(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[method] = append(c.faults[method], fault{err: err, apply: true})
}

// Calls returns every recorded call.
func (c *FakeChain) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsTo returns the recorded calls to method.
func (c *FakeChain) CallsTo(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Writes returns the recorded calls to setters.
func (c *FakeChain) Writes() []Call {
	var out []Call
	for _, call := range c.Calls() {
		if len(call.Method) > 3 && call.Method[:3] == "Set" {
			out = append(out, call)
		}
	}
	return out
}

// ResetCalls forgets recorded calls but keeps state and pending faults.
func (c *FakeChain) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func (c *FakeChain) record(method string, local types.Endpoint, remote types.EID, value any) (fault, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, Local: local, Remote: remote, Value: value})
	queue := c.faults[method]
	if len(queue) == 0 {
		return fault{}, false
	}
	c.faults[method] = queue[1:]
	return queue[0], true
}

func read[T any](c *FakeChain, ctx context.Context, method string, local types.Endpoint, remote types.EID, get func() T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if f, ok := c.record(method, local, remote, nil); ok {
		return zero, f.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return get(), nil
}

func write(c *FakeChain, ctx context.Context, method string, local types.Endpoint, remote types.EID, value any, apply func()) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, failed := c.record(method, local, remote, value)
	if c.OnWrite != nil {
		c.OnWrite(method, remote)
	}
	if failed && !f.apply {
		return nil, f.err
	}

	c.mu.Lock()
	apply()
	c.txs++
	receipt := &types.Receipt{TxHash: fmt.Sprintf("0x%064x", c.txs), BlockNumber: uint64(c.txs)}
	c.mu.Unlock()

	if failed {
		return nil, f.err
	}
	return receipt, nil
}

func (c *FakeChain) GetPeer(ctx context.Context, local types.Endpoint, remote types.EID) (types.Bytes32, error) {
	return read(c, ctx, GetPeer, local, remote, func() types.Bytes32 { return c.Peers[remote] })
}

func (c *FakeChain) GetSendLibrary(ctx context.Context, local types.Endpoint, remote types.EID) (common.Address, error) {
	return read(c, ctx, GetSendLibrary, local, remote, func() common.Address { return c.SendLibraries[remote] })
}

func (c *FakeChain) GetReceiveLibrary(ctx context.Context, local types.Endpoint, remote types.EID) (common.Address, error) {
	return read(c, ctx, GetReceiveLibrary, local, remote, func() common.Address { return c.ReceiveLibraries[remote].Library })
}

func (c *FakeChain) GetReceiveLibraryTimeout(ctx context.Context, local types.Endpoint, remote types.EID) (types.ReceiveLibraryTimeout, error) {
	return read(c, ctx, GetReceiveLibraryTimeout, local, remote, func() types.ReceiveLibraryTimeout { return c.Timeouts[remote] })
}

func (c *FakeChain) GetExecutorConfig(ctx context.Context, local types.Endpoint, remote types.EID) (types.ExecutorConfig, error) {
	return read(c, ctx, GetExecutorConfig, local, remote, func() types.ExecutorConfig {
		if c.Defaults != nil {
			return c.Defaults.executor(c.Executors[remote])
		}
		return c.Executors[remote]
	})
}

func (c *FakeChain) GetUlnConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction) (types.UlnConfig, error) {
	method, stored := GetSendUlnConfig, c.SendUlns
	if dir == types.Receive {
		method, stored = GetReceiveUlnConfig, c.ReceiveUlns
	}
	return read(c, ctx, method, local, remote, func() types.UlnConfig {
		if c.Defaults != nil {
			return c.Defaults.uln(stored[remote], dir)
		}
		return stored[remote]
	})
}

func (c *FakeChain) SetPeer(ctx context.Context, local types.Endpoint, remote types.EID, peer types.Bytes32) (*types.Receipt, error) {
	return write(c, ctx, SetPeer, local, remote, peer, func() { c.Peers[remote] = peer })
}

func (c *FakeChain) SetSendLibrary(ctx context.Context, local types.Endpoint, remote types.EID, lib common.Address) (*types.Receipt, error) {
	return write(c, ctx, SetSendLibrary, local, remote, lib, func() { c.SendLibraries[remote] = lib })
}

func (c *FakeChain) SetReceiveLibrary(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ReceiveLibraryConfig) (*types.Receipt, error) {
	return write(c, ctx, SetReceiveLibrary, local, remote, cfg, func() { c.ReceiveLibraries[remote] = cfg })
}

func (c *FakeChain) SetReceiveLibraryTimeout(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ReceiveLibraryTimeout) (*types.Receipt, error) {
	return write(c, ctx, SetReceiveLibraryTimeout, local, remote, cfg, func() { c.Timeouts[remote] = cfg })
}

func (c *FakeChain) SetExecutorConfig(ctx context.Context, local types.Endpoint, remote types.EID, cfg types.ExecutorConfig) (*types.Receipt, error) {
	return write(c, ctx, SetExecutorConfig, local, remote, cfg, func() { c.Executors[remote] = cfg })
}

func (c *FakeChain) SetUlnConfig(ctx context.Context, local types.Endpoint, remote types.EID, dir types.Direction, cfg types.UlnConfig) (*types.Receipt, error) {
	if dir == types.Send {
		return write(c, ctx, SetSendUlnConfig, local, remote, cfg, func() { c.SendUlns[remote] = cfg })
	}
	return write(c, ctx, SetReceiveUlnConfig, local, remote, cfg, func() { c.ReceiveUlns[remote] = cfg })
}

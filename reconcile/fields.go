package reconcile

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Field names, in the order a pathway converges them.
const (
	FieldPeer                  = "peer"
	FieldSendLibrary           = "sendLibrary"
	FieldReceiveLibrary        = "receiveLibrary"
	FieldReceiveLibraryTimeout = "receiveLibraryTimeout"
	FieldSendExecutor          = "sendConfig.executorConfig"
	FieldSendUln               = "sendConfig.ulnConfig"
	FieldReceiveUln            = "receiveConfig.ulnConfig"
)

// link is the local side of one pathway on its chain.
type link struct {
	chain  types.Chain
	local  types.Endpoint
	remote types.EID
}

func (l link) peer() Field[types.Bytes32] {
	return Field[types.Bytes32]{
		Name: FieldPeer,
		Read: func(ctx context.Context) (types.Bytes32, error) {
			return l.chain.GetPeer(ctx, l.local, l.remote)
		},
		Write: func(ctx context.Context, v types.Bytes32) (*types.Receipt, error) {
			return l.chain.SetPeer(ctx, l.local, l.remote, v)
		},
		Equal: func(a, b types.Bytes32) bool { return a == b },
	}
}

func (l link) sendLibrary() Field[common.Address] {
	return Field[common.Address]{
		Name: FieldSendLibrary,
		Read: func(ctx context.Context) (common.Address, error) {
			return l.chain.GetSendLibrary(ctx, l.local, l.remote)
		},
		Write: func(ctx context.Context, v common.Address) (*types.Receipt, error) {
			return l.chain.SetSendLibrary(ctx, l.local, l.remote, v)
		},
		Equal: func(a, b common.Address) bool { return a == b },
	}
}

// receiveLibrary compares the library only; the grace period is applied with a switch.
func (l link) receiveLibrary() Field[types.ReceiveLibraryConfig] {
	return Field[types.ReceiveLibraryConfig]{
		Name: FieldReceiveLibrary,
		Read: func(ctx context.Context) (types.ReceiveLibraryConfig, error) {
			lib, err := l.chain.GetReceiveLibrary(ctx, l.local, l.remote)
			return types.ReceiveLibraryConfig{Library: lib}, err
		},
		Write: func(ctx context.Context, v types.ReceiveLibraryConfig) (*types.Receipt, error) {
			return l.chain.SetReceiveLibrary(ctx, l.local, l.remote, v)
		},
		Equal: func(a, b types.ReceiveLibraryConfig) bool { return a.Library == b.Library },
	}
}

func (l link) receiveLibraryTimeout() Field[types.ReceiveLibraryTimeout] {
	return Field[types.ReceiveLibraryTimeout]{
		Name: FieldReceiveLibraryTimeout,
		Read: func(ctx context.Context) (types.ReceiveLibraryTimeout, error) {
			return l.chain.GetReceiveLibraryTimeout(ctx, l.local, l.remote)
		},
		Write: func(ctx context.Context, v types.ReceiveLibraryTimeout) (*types.Receipt, error) {
			return l.chain.SetReceiveLibraryTimeout(ctx, l.local, l.remote, v)
		},
		Equal: func(a, b types.ReceiveLibraryTimeout) bool { return a == b },
	}
}

func (l link) sendExecutor() Field[types.ExecutorConfig] {
	return Field[types.ExecutorConfig]{
		Name: FieldSendExecutor,
		Read: func(ctx context.Context) (types.ExecutorConfig, error) {
			return l.chain.GetExecutorConfig(ctx, l.local, l.remote)
		},
		Write: func(ctx context.Context, v types.ExecutorConfig) (*types.Receipt, error) {
			return l.chain.SetExecutorConfig(ctx, l.local, l.remote, v)
		},
		Equal: func(observed, desired types.ExecutorConfig) bool { return desired.SatisfiedBy(observed) },
	}
}

func (l link) uln(dir types.Direction) Field[types.UlnConfig] {
	name := FieldSendUln
	if dir == types.Receive {
		name = FieldReceiveUln
	}
	return Field[types.UlnConfig]{
		Name: name,
		Read: func(ctx context.Context) (types.UlnConfig, error) {
			return l.chain.GetUlnConfig(ctx, l.local, l.remote, dir)
		},
		Write: func(ctx context.Context, v types.UlnConfig) (*types.Receipt, error) {
			return l.chain.SetUlnConfig(ctx, l.local, l.remote, dir, v)
		},
		Equal: func(observed, desired types.UlnConfig) bool { return desired.SatisfiedBy(observed) },
	}
}

type step func(ctx context.Context, c *Converger) (*Change, error)

func converge[T any](f Field[T], desired T) step {
	return func(ctx context.Context, c *Converger) (*Change, error) {
		return Converge(ctx, c, f, desired)
	}
}

// steps lists the convergence units of a pathway in order. Sections left undeclared
// are not touched.
func (l link) steps(peer types.Bytes32, cfg *types.ResolvedPathwayConfig) []step {
	steps := []step{converge(l.peer(), peer)}
	if cfg.SendLibrary != nil {
		steps = append(steps, converge(l.sendLibrary(), *cfg.SendLibrary))
	}
	if cfg.ReceiveLibrary != nil {
		steps = append(steps, converge(l.receiveLibrary(), *cfg.ReceiveLibrary))
	}
	if cfg.ReceiveLibraryTimeout != nil {
		steps = append(steps, converge(l.receiveLibraryTimeout(), *cfg.ReceiveLibraryTimeout))
	}
	if cfg.SendExecutor != nil {
		steps = append(steps, converge(l.sendExecutor(), *cfg.SendExecutor))
	}
	if cfg.SendUln != nil {
		steps = append(steps, converge(l.uln(types.Send), *cfg.SendUln))
	}
	if cfg.ReceiveUln != nil {
		steps = append(steps, converge(l.uln(types.Receive), *cfg.ReceiveUln))
	}
	return steps
}

// Package reconcile drives the on-chain state of every pathway in a topology toward its
// declared configuration.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/pathway"
	"github.com/strangelove-ventures/oapp-wirer/topology"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Engine reconciles topologies against writable chains. An Engine may run concurrently
// with itself; runs touching the same pathway are serialised.
type Engine struct {
	logger   log.Logger
	chains   map[types.EID]types.Chain
	codecs   map[types.EID]types.AddressCodec
	resolver types.AddressResolver
	opts     Options
	metrics  *PromMetrics

	state *types.StateMap
	last  atomic.Pointer[Report]

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates an engine. chains holds every chain a local endpoint may live on; codecs
// selects the peer encoding of each remote eid and falls back to evm. resolver and metrics
// may be nil.
func NewEngine(
	logger log.Logger,
	chains map[types.EID]types.Chain,
	codecs map[types.EID]types.AddressCodec,
	resolver types.AddressResolver,
	opts Options,
	metrics *PromMetrics,
) *Engine {
	return &Engine{
		logger:   logger,
		chains:   chains,
		codecs:   codecs,
		resolver: resolver,
		opts:     opts.normalized(),
		metrics:  metrics,
		locks:    make(map[string]*sync.Mutex),
	}
}

// PublishTo makes the engine store every pathway state transition in sm.
func (e *Engine) PublishTo(sm *types.StateMap) {
	e.state = sm
}

// LastReport returns the report of the most recent completed run, or nil.
func (e *Engine) LastReport() *Report {
	return e.last.Load()
}

// Run reconciles every pathway of g. Failures are recorded per pathway and never stop
// sibling pathways. Once ctx is done no new pathway is started.
func (e *Engine) Run(ctx context.Context, g *topology.Graph) *Report {
	return e.run(ctx, g, e.opts)
}

// Plan is a Run that never writes.
func (e *Engine) Plan(ctx context.Context, g *topology.Graph) *Report {
	opts := e.opts
	opts.DryRun = true
	return e.run(ctx, g, opts)
}

func (e *Engine) run(ctx context.Context, g *topology.Graph, opts Options) *Report {
	started := time.Now()
	pathways := g.Pathways()
	results := make([]PathwayResult, len(pathways))

	e.logger.Info("Starting reconciliation", "pathways", len(pathways), "concurrency", opts.Concurrency, "dry-run", opts.DryRun)

	var eg errgroup.Group
	eg.SetLimit(opts.Concurrency)
	for i, p := range pathways {
		if ctx.Err() != nil {
			results[i] = e.skipped(p)
			continue
		}
		eg.Go(func() error {
			results[i] = e.reconcilePathway(ctx, g, p, opts)
			return nil
		})
	}
	_ = eg.Wait()
	e.prune(pathways)

	report := &Report{
		Started:  started,
		Duration: time.Since(started),
		DryRun:   opts.DryRun,
		Pathways: results,
		Summary:  summarize(results),
	}
	e.last.Store(report)
	if e.metrics != nil {
		e.metrics.observeRun(report)
	}

	e.logger.Info("Reconciliation complete",
		"unchanged", report.Summary.Unchanged,
		"updated", report.Summary.Updated,
		"diverged", report.Summary.Diverged,
		"failed", report.Summary.Failed,
		"skipped", report.Summary.Skipped,
		"writes", report.Summary.Writes,
		"duration", report.Duration,
	)
	return report
}

func (e *Engine) skipped(p topology.Pathway) PathwayResult {
	res := PathwayResult{
		Pathway: p.Key(),
		From:    p.From.EID,
		To:      p.To.EID,
		Status:  StatusSkipped,
		Err:     types.ErrCancelled,
		Error:   types.ErrCancelled.Error(),
	}
	e.publish(res)
	return res
}

func (e *Engine) reconcilePathway(ctx context.Context, g *topology.Graph, p topology.Pathway, opts Options) (res PathwayResult) {
	if ctx.Err() != nil {
		return e.skipped(p)
	}

	key := p.Key()
	logger := e.logger.With("pathway", key, "from", p.From.EID, "to", p.To.EID)

	mu := e.pathwayLock(key)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	res = PathwayResult{Pathway: key, From: p.From.EID, To: p.To.EID, Status: StatusUnresolved}
	e.publish(res)

	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Status = StatusFailed
			res.Error = res.Err.Error()
			logger.Error("Pathway failed", "err", res.Err)
		} else {
			logger.Info("Pathway reconciled", "status", res.Status, "writes", res.Writes)
		}
		e.publish(res)
		if e.metrics != nil {
			e.metrics.observePathway(res)
		}
	}()

	if opts.PathwayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.PathwayTimeout)
		defer cancel()
	}

	cfg, err := pathway.Resolve(key, g.ConfigLayers(p)...)
	if err != nil {
		res.Err = err
		return res
	}
	res.Status = StatusResolved
	res.Config = cfg

	chain, ok := e.chains[p.From.EID]
	if !ok {
		res.Err = fmt.Errorf("%w: no writable chain configured for eid %d", types.ErrValidation, p.From.EID)
		return res
	}

	local, err := e.resolveEndpoint(ctx, p.From)
	if err != nil {
		res.Err = err
		return res
	}
	remote, err := e.resolveEndpoint(ctx, p.To)
	if err != nil {
		res.Err = err
		return res
	}
	peer, err := e.codec(p.To.EID).Encode(remote.Address)
	if err != nil {
		res.Err = fmt.Errorf("encode peer %s: %w", remote, err)
		return res
	}

	conv := &Converger{
		Pathway: key,
		Logger:  logger,
		Options: opts,
		OnWrite: func(field string) {
			res.Status = StatusWriting
			e.publish(res)
		},
	}

	diverged := false
	l := link{chain: chain, local: local, remote: p.To.EID}
	for _, s := range l.steps(peer, cfg) {
		change, err := s(ctx, conv)
		if change != nil {
			res.Changes = append(res.Changes, *change)
			if change.Applied {
				res.Writes++
			} else {
				diverged = true
			}
		}
		if err != nil {
			res.Err = err
			return res
		}
	}

	res.Status = StatusConverged
	if diverged {
		res.Status = StatusDiverged
	}
	return res
}

func (e *Engine) resolveEndpoint(ctx context.Context, ep types.Endpoint) (types.Endpoint, error) {
	if ep.Address != "" {
		return ep, nil
	}
	if e.resolver == nil {
		return ep, fmt.Errorf("%w: endpoint %s has no address and no resolver is configured", types.ErrValidation, ep)
	}
	addr, err := e.resolver.Resolve(ctx, ep.EID, ep.ContractName)
	if err != nil {
		return ep, fmt.Errorf("resolve address of %s: %w", ep, err)
	}
	ep.Address = addr
	return ep, nil
}

func (e *Engine) codec(eid types.EID) types.AddressCodec {
	if c, ok := e.codecs[eid]; ok {
		return c
	}
	return address.EVM{}
}

func (e *Engine) pathwayLock(key string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	mu, ok := e.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[key] = mu
	}
	return mu
}

// prune drops published states of pathways no longer in the topology.
func (e *Engine) prune(pathways []topology.Pathway) {
	if e.state == nil {
		return
	}
	current := make(map[string]struct{}, len(pathways))
	for _, p := range pathways {
		current[p.Key()] = struct{}{}
	}
	for _, st := range e.state.All() {
		if _, ok := current[st.Pathway]; !ok {
			e.state.Delete(st.Pathway)
		}
	}
}

func (e *Engine) publish(res PathwayResult) {
	if e.state == nil {
		return
	}
	e.state.Store(res.Pathway, &types.PathwayState{
		Pathway: res.Pathway,
		From:    res.From,
		To:      res.To,
		Status:  string(res.Status),
		Writes:  res.Writes,
		Error:   res.Error,
		Updated: time.Now().Unix(),
	})
}

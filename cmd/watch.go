package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/reconcile"
	"github.com/strangelove-ventures/oapp-wirer/topology"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

const driftBufferSize = 64

func watchCmd(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the topology reconciled, serving status and reacting to on-chain changes",
		Long: `Reconcile the topology on startup and then every watch-interval seconds. Chains with a
websocket endpoint also trigger a run when a watched OApp's peer or library settings change.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.InitAppState()
		},
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s watch --config %s --topology %s
$ %s watch -p 9090`, appName, defaultConfigPath, defaultTopologyPath, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			port, err := cmd.Flags().GetInt16(flagMetricsPort)
			if err != nil {
				return err
			}
			metrics := reconcile.InitPromMetrics(port)

			engine, chains, err := a.NewEngine(ctx, metrics, false)
			if err != nil {
				return err
			}
			defer closeChains(chains)

			state := types.NewStateMap()
			engine.PublishTo(state)

			trigger := make(chan string, 1)
			if a.Config.API.Enabled {
				router, err := newRouter(engine, state, trigger, a.Config.API.TrustedProxies)
				if err != nil {
					return err
				}
				go serveAPI(ctx, a.Logger, a.Config.API.Listen, router)
			}

			drift := make(chan ethereum.Drift, driftBufferSize)
			if g, _ := a.LoadTopology(); g != nil {
				a.startDriftWatchers(ctx, g, chains, drift)
			}

			return a.watchLoop(ctx, engine, trigger, drift)
		},
	}
	return cmd
}

// watchLoop runs until ctx is done. The topology is re-read on every run so edits to the
// declaration apply without a restart.
func (a *AppState) watchLoop(ctx context.Context, engine *reconcile.Engine, trigger <-chan string, drift <-chan ethereum.Drift) error {
	run := func(reason string) {
		g, err := a.LoadTopology()
		if g == nil {
			a.Logger.Error("Unable to load topology", "err", err)
			return
		}
		logBuildErrors(a.Logger, err)
		a.Logger.Info("Reconciliation triggered", "reason", reason)
		engine.Run(ctx, g)
	}

	run("startup")

	ticker := time.NewTicker(a.watchInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("Shutting down")
			return nil
		case <-ticker.C:
			run("interval")
		case reason := <-trigger:
			run(reason)
		case d := <-drift:
			a.Logger.Info("On-chain change detected", "eid", d.EID, "event", d.Event, "oapp", d.OApp.Hex(), "remote_eid", d.RemoteEID, "tx", d.TxHash)
			drainDrift(drift)
			run("drift")
		}
	}
}

// drainDrift drops queued events so a burst of changes costs one run.
func drainDrift(drift <-chan ethereum.Drift) {
	for {
		select {
		case <-drift:
		default:
			return
		}
	}
}

// startDriftWatchers subscribes to every evm chain with a websocket endpoint that hosts a
// local endpoint of g.
func (a *AppState) startDriftWatchers(ctx context.Context, g *topology.Graph, chains map[types.EID]types.Chain, drift chan<- ethereum.Drift) {
	resolver, err := a.Resolver()
	if err != nil {
		a.Logger.Error("Drift watching disabled", "err", err)
		return
	}

	for eid, c := range chains {
		eth, ok := c.(*ethereum.Ethereum)
		if !ok || !eth.Watchable() {
			continue
		}
		local, ok := g.Endpoint(eid)
		if !ok {
			continue
		}
		if local.Address == "" {
			addr, err := resolver.Resolve(ctx, eid, local.ContractName)
			if err != nil {
				a.Logger.Error("Unable to resolve address for drift watching", "endpoint", local.String(), "err", err)
				continue
			}
			local.Address = addr
		}

		go func() {
			if err := eth.Watch(ctx, a.Logger, []types.Endpoint{local}, drift); err != nil {
				a.Logger.Error("Drift watcher stopped", "chain", eth.Name(), "err", err)
			}
		}()
	}
}

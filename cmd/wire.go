package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/strangelove-ventures/oapp-wirer/pathway"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func wireCmd(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wire",
		Short: "Reconcile every declared pathway once",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.InitAppState()
		},
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s wire --config %s --topology %s
$ %s wire --dry-run --json`, appName, defaultConfigPath, defaultTopologyPath, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, err := cmd.Flags().GetBool(flagDryRun)
			if err != nil {
				return err
			}
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			return runOnce(cmd, a, dryRun, jsn)
		},
	}
	addDryRunFlag(cmd)
	addJsonFlag(cmd)
	return cmd
}

func planCmd(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Report the changes wire would make without sending transactions",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.InitAppState()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			return runOnce(cmd, a, true, jsn)
		},
	}
	addJsonFlag(cmd)
	return cmd
}

// runOnce reconciles the topology and prints the report. Invalid declarations are logged and
// the valid subset still runs; the command fails if anything failed.
func runOnce(cmd *cobra.Command, a *AppState, dryRun, jsn bool) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, buildErr := a.LoadTopology()
	if g == nil {
		return buildErr
	}
	logBuildErrors(a.Logger, buildErr)

	engine, chains, err := a.NewEngine(ctx, nil, dryRun)
	if err != nil {
		return err
	}
	defer closeChains(chains)

	report := engine.Run(ctx, g)
	if err := printOutput(cmd.OutOrStdout(), report, jsn); err != nil {
		return err
	}
	return errors.Join(buildErr, report.Err())
}

func resolveCmd(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved configuration of every pathway without contacting any chain",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.Logger == nil {
				a.InitLogger()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}

			g, buildErr := a.LoadTopology()
			if g == nil {
				return buildErr
			}
			logBuildErrors(a.Logger, buildErr)

			resolved := make(map[string]*types.ResolvedPathwayConfig)
			errs := []error{buildErr}
			for _, p := range g.Pathways() {
				cfg, err := pathway.Resolve(p.Key(), g.ConfigLayers(p)...)
				if err != nil {
					a.Logger.Error("Invalid pathway config", "pathway", p.Key(), "err", err)
					errs = append(errs, err)
					continue
				}
				resolved[p.Key()] = cfg
			}

			if err := printOutput(cmd.OutOrStdout(), resolved, jsn); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	addJsonFlag(cmd)
	return cmd
}

func printOutput(w io.Writer, v any, jsn bool) error {
	var (
		out []byte
		err error
	)
	if jsn {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = yaml.Marshal(v)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func logBuildErrors(logger log.Logger, err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			logger.Error("Invalid topology declaration", "err", e)
		}
		return
	}
	logger.Error("Invalid topology declaration", "err", err)
}

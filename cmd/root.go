package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	appName             = "oapp-wirer"
	defaultConfigPath   = "./config.yaml"
	defaultTopologyPath = "./topology.yaml"
)

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	a := NewAppState()

	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "Reconciles LayerZero OApp pathways with their declared configuration",
		SilenceUsage: true,
	}
	addAppPersistantFlags(rootCmd, a)

	rootCmd.AddCommand(
		wireCmd(a),
		planCmd(a),
		resolveCmd(a),
		watchCmd(a),
		configShowCmd(a),
		versionCmd(),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

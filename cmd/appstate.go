package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cosmossdk.io/log"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/deployments"
	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/reconcile"
	"github.com/strangelove-ventures/oapp-wirer/topology"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

const (
	defaultEnvFile       = ".env"
	resolverCacheSize    = 256
	defaultWatchInterval = 300
)

// appState is the modifiable state of the application.
type AppState struct {
	Config *types.Config

	ConfigPath string

	TopologyPath string

	EnvFile string

	Debug bool

	LogLevel string

	Logger log.Logger
}

func NewAppState() *AppState {
	return &AppState{EnvFile: defaultEnvFile}
}

// InitAppState checks if a logger and config are present. If not, it adds them to the AppState
func (a *AppState) InitAppState() error {
	if a.Logger == nil {
		a.InitLogger()
	}
	if a.Config == nil {
		return a.loadConfigFile()
	}
	return nil
}

func (a *AppState) InitLogger() {
	// info level is default
	level := zerolog.InfoLevel
	switch a.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// a.Debug overrides a.loglevel
	if a.Debug {
		a.Logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.DebugLevel))
	} else {
		a.Logger = log.NewLogger(os.Stdout, log.LevelOption(level))
	}
}

// loadConfigFile loads a configuration into the AppState. It uses the AppState ConfigPath
// to determine file path to config. Signer keys may come from an optional .env file.
func (a *AppState) loadConfigFile() error {
	if a.Logger == nil {
		a.InitLogger()
	}

	if a.EnvFile != "" {
		if err := godotenv.Load(a.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unable to load env file %s: %w", a.EnvFile, err)
		}
	}

	config, err := ParseConfig(a.ConfigPath)
	if err != nil {
		a.Logger.Error("Unable to parse config file", "location", a.ConfigPath, "err", err)
		return err
	}
	a.Logger.Info("Successfully parsed config file", "location", a.ConfigPath)
	a.Config = config

	if err := a.validateConfig(); err != nil {
		a.Logger.Error("Invalid config", "err", err)
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// validateConfig checks the AppState Config for any invalid settings.
func (a *AppState) validateConfig() error {
	if len(a.Config.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	seen := make(map[types.EID]string, len(a.Config.Chains))
	for name, cfg := range a.Config.Chains {
		eid := cfg.EndpointID()
		if eid == 0 {
			return fmt.Errorf("eid must be set in the config (chain: %s)", name)
		}
		if other, ok := seen[eid]; ok {
			return fmt.Errorf("eid %d is configured for both %s and %s", eid, other, name)
		}
		seen[eid] = name

		family, prefix := cfg.AddressFamily()
		if _, err := address.ForFamily(family, prefix); err != nil {
			return fmt.Errorf("chain %s: %w", name, err)
		}

		if cc, ok := cfg.(*ethereum.ChainConfig); ok {
			if err := a.validateChain(name, cc.ChainID, cc.RPC, cc.RPCRateLimit, cc.TxConfirmationSecs); err != nil {
				return err
			}
		}
	}

	return a.validateReconcileSettings()
}

// validateChain ensures a writable chain is configured correctly
func (a *AppState) validateChain(
	name string,
	chainID int64,
	rpcURL string,
	rpcRateLimit int,
	txConfirmationSecs int,
) error {
	if name == "" {
		return fmt.Errorf("chain name must be set in the config")
	}

	if chainID <= 0 {
		return fmt.Errorf("chain-id must be set in the config (chain: %s) (chain-id: %d)", name, chainID)
	}

	if rpcURL == "" {
		return fmt.Errorf("rpc must be set in the config (chain: %s)", name)
	}

	if rpcRateLimit < 0 {
		return fmt.Errorf("rpc-rate-limit must not be negative (chain: %s) (rpc-rate-limit: %d)", name, rpcRateLimit)
	}

	if txConfirmationSecs < 0 {
		return fmt.Errorf("tx-confirmation-timeout must not be negative (chain: %s) (tx-confirmation-timeout: %d)", name, txConfirmationSecs)
	}

	return nil
}

// validateReconcileSettings rejects negative settings. Zero selects the default.
func (a *AppState) validateReconcileSettings() error {
	s := a.Config.Reconcile
	for _, v := range []struct {
		name  string
		value int
	}{
		{"concurrency", s.Concurrency},
		{"max-attempts", s.MaxAttempts},
		{"initial-backoff-ms", s.InitialBackoffMs},
		{"max-backoff-ms", s.MaxBackoffMs},
		{"pathway-timeout", s.PathwayTimeout},
		{"inflight-write-timeout", s.InflightWriteTimeout},
		{"watch-interval", s.WatchInterval},
	} {
		if v.value < 0 {
			return fmt.Errorf("reconcile.%s must not be negative (%s: %d)", v.name, v.name, v.value)
		}
	}
	return nil
}

// watchInterval is the period between scheduled runs in watch mode.
func (a *AppState) watchInterval() time.Duration {
	if a.Config.Reconcile.WatchInterval > 0 {
		return time.Duration(a.Config.Reconcile.WatchInterval) * time.Second
	}
	return defaultWatchInterval * time.Second
}

// LoadTopology parses and builds the topology declaration. A non-nil graph is returned
// alongside build errors and holds the valid subset.
func (a *AppState) LoadTopology() (*topology.Graph, error) {
	decl, err := topology.ParseDeclaration(a.TopologyPath)
	if err != nil {
		return nil, err
	}
	return topology.Build(decl)
}

// InitChains builds and connects every writable chain. Remote-only chains are skipped.
func (a *AppState) InitChains(ctx context.Context) (map[types.EID]types.Chain, error) {
	chains := make(map[types.EID]types.Chain)
	for name, cfg := range a.Config.Chains {
		c, err := cfg.Chain(name)
		if err != nil {
			closeChains(chains)
			return nil, fmt.Errorf("error creating chain %s: %w", name, err)
		}
		if c == nil {
			continue
		}
		if err := c.InitializeClients(ctx, a.Logger); err != nil {
			closeChains(chains)
			return nil, fmt.Errorf("error initializing client for chain %s: %w", name, err)
		}
		chains[c.EID()] = c
	}
	return chains, nil
}

func closeChains(chains map[types.EID]types.Chain) {
	for _, c := range chains {
		_ = c.CloseClients()
	}
}

// Codecs returns the peer address encoding of every configured eid.
func (a *AppState) Codecs() (map[types.EID]types.AddressCodec, error) {
	codecs := make(map[types.EID]types.AddressCodec, len(a.Config.Chains))
	for name, cfg := range a.Config.Chains {
		codec, err := cfg.Codec()
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", name, err)
		}
		codecs[cfg.EndpointID()] = codec
	}
	return codecs, nil
}

// Resolver chains the configured address sources: inline addresses first, then deployment
// artifacts, then the registry.
func (a *AppState) Resolver() (types.AddressResolver, error) {
	settings := a.Config.Deployments

	chain := deployments.Fallback{deployments.Static(settings.Addresses)}
	if settings.Directory != "" {
		networks := make(map[types.EID]string, len(a.Config.Chains))
		for name, cfg := range a.Config.Chains {
			networks[cfg.EndpointID()] = cfg.DeploymentsNetwork(name)
		}
		chain = append(chain, &deployments.Directory{Root: settings.Directory, Networks: networks})
	}
	if settings.RegistryURL != "" {
		chain = append(chain, deployments.NewRegistry(settings.RegistryURL, a.Logger))
	}

	return deployments.NewCached(chain, resolverCacheSize)
}

// NewEngine assembles a reconciliation engine over freshly connected chains. The caller
// closes the returned chains.
func (a *AppState) NewEngine(ctx context.Context, metrics *reconcile.PromMetrics, dryRun bool) (*reconcile.Engine, map[types.EID]types.Chain, error) {
	codecs, err := a.Codecs()
	if err != nil {
		return nil, nil, err
	}
	resolver, err := a.Resolver()
	if err != nil {
		return nil, nil, err
	}
	chains, err := a.InitChains(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := reconcile.OptionsFromSettings(a.Config.Reconcile)
	opts.DryRun = dryRun

	engine := reconcile.NewEngine(a.Logger, chains, codecs, resolver, opts, metrics)
	return engine, chains, nil
}

package types

type Config struct {
	Chains      map[string]ChainConfig `yaml:"chains"`
	Reconcile   ReconcileSettings      `yaml:"reconcile"`
	Deployments DeploymentSettings     `yaml:"deployments"`
	API         APISettings            `yaml:"api"`
}

type ConfigWrapper struct {
	Chains      map[string]map[string]any `yaml:"chains"`
	Reconcile   ReconcileSettings         `yaml:"reconcile"`
	Deployments DeploymentSettings        `yaml:"deployments"`
	API         APISettings               `yaml:"api"`
}

type ReconcileSettings struct {
	Concurrency           int  `yaml:"concurrency" json:"concurrency"`
	MaxAttempts           int  `yaml:"max-attempts" json:"max-attempts"`
	InitialBackoffMs      int  `yaml:"initial-backoff-ms" json:"initial-backoff-ms"`
	MaxBackoffMs          int  `yaml:"max-backoff-ms" json:"max-backoff-ms"`
	PathwayTimeout        int  `yaml:"pathway-timeout" json:"pathway-timeout"`
	InflightWriteTimeout  int  `yaml:"inflight-write-timeout" json:"inflight-write-timeout"`
	AbandonInflightWrites bool `yaml:"abandon-inflight-writes" json:"abandon-inflight-writes"`
	WatchInterval         int  `yaml:"watch-interval" json:"watch-interval"`
}

type DeploymentSettings struct {
	Directory   string `yaml:"directory" json:"directory"`
	RegistryURL string `yaml:"registry-url" json:"registry-url"`
	// Addresses maps "<eid>/<contractName>" to a native address.
	Addresses map[string]string `yaml:"addresses" json:"addresses"`
}

type APISettings struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	Listen         string   `yaml:"listen" json:"listen"`
	TrustedProxies []string `yaml:"trusted-proxies" json:"trusted-proxies"`
}

type ChainConfig interface {
	// EndpointID returns the eid served by the chain.
	EndpointID() EID

	// AddressFamily returns the native address family of the chain and,
	// for bech32 chains, the human readable prefix.
	AddressFamily() (family string, prefix string)

	// Codec returns the peer encoding of the chain's addresses.
	Codec() (AddressCodec, error)

	// DeploymentsNetwork returns the network name used to look up deployment artifacts.
	DeploymentsNetwork(name string) string

	// Chain builds a reader/writer for the chain. Remote-only chains return nil.
	Chain(name string) (Chain, error)
}

package ethereum

import (
	"fmt"
	"os"
	"strings"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.ChainConfig = (*ChainConfig)(nil)

type ChainConfig struct {
	EndpointEID        types.EID `yaml:"eid"`
	ChainID            int64     `yaml:"chain-id"`
	RPC                string    `yaml:"rpc"`
	WS                 string    `yaml:"ws"`
	EndpointV2         string    `yaml:"endpoint-v2"`
	Deployments        string    `yaml:"deployments-network"`
	RPCRateLimit       int       `yaml:"rpc-rate-limit"`
	TxConfirmationSecs int       `yaml:"tx-confirmation-timeout"`

	// falls back to the <CHAIN>_PRIV_KEY environment variable
	PrivateKey string `yaml:"private-key"`
}

func (c *ChainConfig) EndpointID() types.EID {
	return c.EndpointEID
}

func (c *ChainConfig) AddressFamily() (string, string) {
	return address.FamilyEVM, ""
}

func (c *ChainConfig) Codec() (types.AddressCodec, error) {
	return address.EVM{}, nil
}

func (c *ChainConfig) DeploymentsNetwork(name string) string {
	if c.Deployments != "" {
		return c.Deployments
	}
	return name
}

func (c *ChainConfig) Chain(name string) (types.Chain, error) {
	key := c.PrivateKey
	if key == "" {
		key = os.Getenv(PrivateKeyEnv(name))
	}
	if key == "" {
		return nil, fmt.Errorf("no signer key for chain %s: set private-key or %s", name, PrivateKeyEnv(name))
	}
	return NewChain(
		name,
		c.EndpointEID,
		c.ChainID,
		c.RPC,
		c.WS,
		c.EndpointV2,
		key,
		c.RPCRateLimit,
		c.TxConfirmationSecs,
	)
}

// PrivateKeyEnv is the environment variable holding the signer key of a chain.
func PrivateKeyEnv(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_PRIV_KEY"
}

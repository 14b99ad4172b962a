// Package remote configures chains that only ever appear on the remote side of a pathway.
// Nothing is written to them; they contribute an eid and a peer address encoding.
package remote

import (
	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.ChainConfig = (*ChainConfig)(nil)

type ChainConfig struct {
	Family      string    `yaml:"family"`
	EndpointEID types.EID `yaml:"eid"`
	// Bech32Prefix is the human readable part of bech32 addresses.
	Bech32Prefix string `yaml:"bech32-prefix"`
	Deployments  string `yaml:"deployments-network"`
	// Remote marks an evm chain the wirer holds no key for.
	Remote bool `yaml:"remote,omitempty"`
}

func (c *ChainConfig) EndpointID() types.EID {
	return c.EndpointEID
}

func (c *ChainConfig) AddressFamily() (string, string) {
	if c.Family == "" {
		return address.FamilyEVM, ""
	}
	return c.Family, c.Bech32Prefix
}

func (c *ChainConfig) DeploymentsNetwork(name string) string {
	if c.Deployments != "" {
		return c.Deployments
	}
	return name
}

// Chain returns nil: remote-only chains are never written to.
func (c *ChainConfig) Chain(string) (types.Chain, error) {
	return nil, nil
}

// Codec returns the peer encoding of the chain's addresses.
func (c *ChainConfig) Codec() (types.AddressCodec, error) {
	return address.ForFamily(c.AddressFamily())
}

package remote_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/remote"
)

func TestRemoteChainConfig(t *testing.T) {
	cfg := &remote.ChainConfig{Family: address.FamilySolana, EndpointEID: 40168}

	chain, err := cfg.Chain("solana-testnet")
	require.NoError(t, err)
	require.Nil(t, chain)

	codec, err := cfg.Codec()
	require.NoError(t, err)
	require.Equal(t, address.FamilySolana, codec.Family())
	require.Equal(t, "solana-testnet", cfg.DeploymentsNetwork("solana-testnet"))

	bech := &remote.ChainConfig{Family: address.FamilyBech32, EndpointEID: 40301}
	_, err = bech.Codec()
	require.Error(t, err)

	bech.Bech32Prefix = "noble"
	codec, err = bech.Codec()
	require.NoError(t, err)
	require.Equal(t, address.FamilyBech32, codec.Family())
}

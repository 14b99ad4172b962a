package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/cmd"
	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/remote"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func TestConfig(t *testing.T) {
	file, err := cmd.ParseConfig("../config/sample-config.yaml")
	require.NoError(t, err, "Error parsing config")
	require.Len(t, file.Chains, 5)

	// assert evm chainConfig correctly parsed
	sepolia, ok := file.Chains["sepolia"].(*ethereum.ChainConfig)
	require.True(t, ok)
	require.Equal(t, types.EID(40161), sepolia.EndpointEID)
	require.Equal(t, int64(11155111), sepolia.ChainID)
	require.Equal(t, "0x6EDCE65403992e310A62460808c4b910D972f10f", sepolia.EndpointV2)
	require.Equal(t, 10, sepolia.RPCRateLimit)

	// remote-only evm chain
	arb, ok := file.Chains["arbitrum-sepolia"].(*remote.ChainConfig)
	require.True(t, ok)
	family, _ := arb.AddressFamily()
	require.Equal(t, address.FamilyEVM, family)

	sol, ok := file.Chains["solana-testnet"].(*remote.ChainConfig)
	require.True(t, ok)
	require.Equal(t, address.FamilySolana, sol.Family)

	noble, ok := file.Chains["noble-testnet"].(*remote.ChainConfig)
	require.True(t, ok)
	require.Equal(t, "noble", noble.Bech32Prefix)

	require.Equal(t, 4, file.Reconcile.Concurrency)
	require.Equal(t, 300, file.Reconcile.WatchInterval)
	require.Equal(t, "0x0a3bb08b3a15a19b4de82f8acfc862606fb69a2d", file.Deployments.Addresses["40231/MyOApp"])
	require.True(t, file.API.Enabled)
}

func TestConfigMissingFile(t *testing.T) {
	_, err := cmd.ParseConfig("does-not-exist.yaml")
	require.Error(t, err)
}

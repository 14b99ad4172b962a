package ethereum_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func TestChainFromConfig(t *testing.T) {
	cfg := &ethereum.ChainConfig{
		EndpointEID:  40161,
		ChainID:      11155111,
		RPC:          "http://localhost:8545",
		EndpointV2:   "0x6EDCE65403992e310A62460808c4b910D972f10f",
		RPCRateLimit: 5,
	}

	t.Setenv(ethereum.PrivateKeyEnv("sepolia-testnet"), "")
	_, err := cfg.Chain("sepolia-testnet")
	require.Error(t, err)

	t.Setenv("SEPOLIA_TESTNET_PRIV_KEY", "1111111111111111111111111111111111111111111111111111111111111111")
	chain, err := cfg.Chain("sepolia-testnet")
	require.NoError(t, err)
	require.Equal(t, "sepolia-testnet", chain.Name())
	require.Equal(t, types.EID(40161), chain.EID())
	require.Equal(t, "0x19E7E376E7C213B7E7e7e46cc70A5dD086DAff2A", chain.(*ethereum.Ethereum).Signer().Hex())

	require.Equal(t, "sepolia-testnet", cfg.DeploymentsNetwork("sepolia-testnet"))
	cfg.Deployments = "sepolia"
	require.Equal(t, "sepolia", cfg.DeploymentsNetwork("sepolia-testnet"))

	family, prefix := cfg.AddressFamily()
	require.Equal(t, "evm", family)
	require.Empty(t, prefix)

	codec, err := cfg.Codec()
	require.NoError(t, err)
	require.Equal(t, family, codec.Family())
}

func TestInvalidEndpointAddress(t *testing.T) {
	cfg := &ethereum.ChainConfig{
		EndpointEID: 40161,
		PrivateKey:  "1111111111111111111111111111111111111111111111111111111111111111",
		EndpointV2:  "0x1234",
	}
	_, err := cfg.Chain("sepolia")
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestReadsRequireClients(t *testing.T) {
	chain, err := ethereum.NewChain("sepolia", 40161, 11155111, "http://localhost:8545", "", "", "1111111111111111111111111111111111111111111111111111111111111111", 0, 0)
	require.NoError(t, err)

	_, err = chain.GetPeer(context.Background(), types.Endpoint{EID: 40161, Address: "0x010f2Dd6a0D53B7A7b3c3d3F6E1C0b9e2bC7e8D4"}, 40106)
	require.Error(t, err)
}

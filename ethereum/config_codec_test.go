package ethereum_test

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/ethereum"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func TestExecutorConfigEncoding(t *testing.T) {
	cfg := types.ExecutorConfig{
		MaxMessageSize: 10000,
		Executor:       common.HexToAddress("0x718B92b5CB0a5552039B593faF724D182A881eDA"),
	}

	encoded, err := ethereum.EncodeExecutorConfig(cfg)
	require.NoError(t, err)
	// static tuple: two words, no offset
	require.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000002710"+
			"000000000000000000000000718b92b5cb0a5552039b593faf724d182a881eda",
		hex.EncodeToString(encoded))

	decoded, err := ethereum.DecodeExecutorConfig(encoded)
	require.NoError(t, err)
	require.Equal(t, cfg, decoded)
}

func TestUlnConfigEncoding(t *testing.T) {
	dvnA := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	dvnB := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	dvnC := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	cfg := types.UlnConfig{
		Confirmations:        42,
		RequiredDVNs:         []common.Address{dvnB, dvnA},
		OptionalDVNs:         []common.Address{dvnC},
		OptionalDVNThreshold: 1,
	}

	encoded, err := ethereum.EncodeUlnConfig(cfg)
	require.NoError(t, err)

	// dynamic tuple: offset word first
	require.Equal(t, common.LeftPadBytes([]byte{0x20}, 32), encoded[:32])
	// confirmations, then the counts
	require.Equal(t, common.LeftPadBytes([]byte{42}, 32), encoded[32:64])
	require.Equal(t, common.LeftPadBytes([]byte{2}, 32), encoded[64:96])
	require.Equal(t, common.LeftPadBytes([]byte{1}, 32), encoded[96:128])

	decoded, err := ethereum.DecodeUlnConfig(encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(42), decoded.Confirmations)
	require.Equal(t, uint8(1), decoded.OptionalDVNThreshold)
	// sorted on the way out
	require.Equal(t, []common.Address{dvnA, dvnB}, decoded.RequiredDVNs)
	require.Equal(t, []common.Address{dvnC}, decoded.OptionalDVNs)
	require.True(t, cfg.Equal(decoded))

	// input untouched
	require.Equal(t, dvnB, cfg.RequiredDVNs[0])
}

func TestUlnConfigEmptyLists(t *testing.T) {
	dvn := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	tests := []struct {
		name               string
		cfg                types.UlnConfig
		required, optional uint8
	}{
		{
			name: "both empty take the defaults",
			cfg:  types.UlnConfig{Confirmations: 1},
		},
		{
			name:     "no required DVNs",
			cfg:      types.UlnConfig{RequiredDVNs: []common.Address{}, OptionalDVNs: []common.Address{dvn}, OptionalDVNThreshold: 1},
			required: 255,
			optional: 1,
		},
		{
			name:     "no optional DVNs",
			cfg:      types.UlnConfig{RequiredDVNs: []common.Address{dvn}},
			required: 1,
			optional: 255,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			required, optional := ethereum.DVNCounts(tc.cfg)
			require.Equal(t, tc.required, required)
			require.Equal(t, tc.optional, optional)

			encoded, err := ethereum.EncodeUlnConfig(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, common.LeftPadBytes([]byte{tc.required}, 32), encoded[64:96])
			require.Equal(t, common.LeftPadBytes([]byte{tc.optional}, 32), encoded[96:128])

			decoded, err := ethereum.DecodeUlnConfig(encoded)
			require.NoError(t, err)
			require.True(t, tc.cfg.Equal(decoded))
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := ethereum.DecodeUlnConfig([]byte{0x01, 0x02})
	require.Error(t, err)

	_, err = ethereum.DecodeExecutorConfig(nil)
	require.Error(t, err)
}

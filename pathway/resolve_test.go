package pathway_test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/strangelove-ventures/oapp-wirer/pathway"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

const (
	dvnX     = "0x00000000000000000000000000000000000000bb"
	dvnY     = "0x00000000000000000000000000000000000000aa"
	dvnZ     = "0x00000000000000000000000000000000000000cc"
	executor = "0x718B92b5CB0a5552039B593faF724D182A881eDA"
	lib      = "0xcc1ae8Cf5D3904Cef3360A9532B477529b177cCE"
)

func ptr[T any](v T) *T { return &v }

func TestMergeFieldLevelOverride(t *testing.T) {
	base := &types.PathwayConfig{
		SendConfig: &types.SendConfigDecl{
			UlnConfig: &types.UlnConfigDecl{
				Confirmations:        ptr(uint64(42)),
				RequiredDVNs:         []string{},
				OptionalDVNs:         []string{dvnX, dvnY},
				OptionalDVNThreshold: ptr(uint8(2)),
			},
		},
	}
	override := &types.PathwayConfig{
		SendConfig: &types.SendConfigDecl{
			UlnConfig: &types.UlnConfigDecl{Confirmations: ptr(uint64(2))},
		},
	}

	merged := pathway.Merge(base, override)
	uln := merged.SendConfig.UlnConfig
	require.Equal(t, uint64(2), *uln.Confirmations)
	require.NotNil(t, uln.RequiredDVNs)
	require.Empty(t, uln.RequiredDVNs)
	require.Equal(t, []string{dvnX, dvnY}, uln.OptionalDVNs)
	require.Equal(t, uint8(2), *uln.OptionalDVNThreshold)

	// inputs untouched
	require.Equal(t, uint64(42), *base.SendConfig.UlnConfig.Confirmations)
	require.Nil(t, override.SendConfig.UlnConfig.OptionalDVNs)

	// no shared pointers
	*uln.Confirmations = 7
	uln.OptionalDVNs[0] = dvnZ
	require.Equal(t, uint64(2), *override.SendConfig.UlnConfig.Confirmations)
	require.Equal(t, dvnX, base.SendConfig.UlnConfig.OptionalDVNs[0])
}

func TestMergeNil(t *testing.T) {
	require.Nil(t, pathway.Merge(nil, nil))

	cfg := &types.PathwayConfig{SendLibrary: ptr(lib)}
	merged := pathway.Merge(nil, cfg)
	require.Equal(t, lib, *merged.SendLibrary)
	require.NotSame(t, cfg.SendLibrary, merged.SendLibrary)
}

func TestMergeExplicitEmptyListOverrides(t *testing.T) {
	base := &types.PathwayConfig{
		ReceiveConfig: &types.ReceiveConfigDecl{
			UlnConfig: &types.UlnConfigDecl{RequiredDVNs: []string{dvnX}},
		},
	}
	override := &types.PathwayConfig{
		ReceiveConfig: &types.ReceiveConfigDecl{
			UlnConfig: &types.UlnConfigDecl{RequiredDVNs: []string{}},
		},
	}
	merged := pathway.Merge(base, override)
	require.NotNil(t, merged.ReceiveConfig.UlnConfig.RequiredDVNs)
	require.Empty(t, merged.ReceiveConfig.UlnConfig.RequiredDVNs)
}

func TestResolveLayers(t *testing.T) {
	defaults := &types.PathwayConfig{
		SendLibrary: ptr(lib),
		SendConfig: &types.SendConfigDecl{
			ExecutorConfig: &types.ExecutorConfigDecl{MaxMessageSize: ptr(uint32(10000)), Executor: ptr(executor)},
		},
	}
	contract := &types.PathwayConfig{
		SendConfig: &types.SendConfigDecl{
			UlnConfig: &types.UlnConfigDecl{
				Confirmations:        ptr(uint64(42)),
				RequiredDVNs:         []string{},
				OptionalDVNs:         []string{dvnX, dvnY},
				OptionalDVNThreshold: ptr(uint8(2)),
			},
		},
	}
	override := &types.PathwayConfig{
		SendConfig: &types.SendConfigDecl{
			ExecutorConfig: &types.ExecutorConfigDecl{MaxMessageSize: ptr(uint32(99))},
			UlnConfig:      &types.UlnConfigDecl{Confirmations: ptr(uint64(2))},
		},
	}

	resolved, err := pathway.Resolve("40106->40161", defaults, contract, override)
	require.NoError(t, err)

	require.Equal(t, common.HexToAddress(lib), *resolved.SendLibrary)
	require.Equal(t, uint32(99), resolved.SendExecutor.MaxMessageSize)
	require.Equal(t, common.HexToAddress(executor), resolved.SendExecutor.Executor)
	require.Equal(t, uint64(2), resolved.SendUln.Confirmations)
	require.Equal(t, uint8(2), resolved.SendUln.OptionalDVNThreshold)
	require.Empty(t, resolved.SendUln.RequiredDVNs)
	// sorted ascending
	require.Equal(t, []common.Address{common.HexToAddress(dvnY), common.HexToAddress(dvnX)}, resolved.SendUln.OptionalDVNs)

	require.Nil(t, resolved.ReceiveUln)
	require.Nil(t, resolved.ReceiveLibrary)
	require.Nil(t, resolved.ReceiveLibraryTimeout)
}

func TestResolveNoLayers(t *testing.T) {
	resolved, err := pathway.Resolve("1->2", nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, &types.ResolvedPathwayConfig{}, resolved)
}

func TestResolveReceiveLibrary(t *testing.T) {
	cfg := &types.PathwayConfig{
		ReceiveLibraryConfig:        &types.ReceiveLibraryDecl{ReceiveLibrary: ptr(lib), GracePeriod: ptr(uint64(100))},
		ReceiveLibraryTimeoutConfig: &types.ReceiveLibraryTimeoutDecl{Lib: ptr(lib), Expiry: ptr(uint64(12345))},
	}
	resolved, err := pathway.Resolve("1->2", cfg)
	require.NoError(t, err)
	require.Equal(t, types.ReceiveLibraryConfig{Library: common.HexToAddress(lib), GracePeriod: 100}, *resolved.ReceiveLibrary)
	require.Equal(t, types.ReceiveLibraryTimeout{Library: common.HexToAddress(lib), Expiry: 12345}, *resolved.ReceiveLibraryTimeout)

	_, err = pathway.Resolve("1->2", &types.PathwayConfig{
		ReceiveLibraryConfig: &types.ReceiveLibraryDecl{GracePeriod: ptr(uint64(1))},
	})
	requireInvalidField(t, err, "receiveLibraryConfig.receiveLibrary")
}

func TestResolveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *types.PathwayConfig
		field string
	}{
		{
			name: "threshold above optional count",
			cfg: &types.PathwayConfig{SendConfig: &types.SendConfigDecl{UlnConfig: &types.UlnConfigDecl{
				OptionalDVNs:         []string{dvnX},
				OptionalDVNThreshold: ptr(uint8(2)),
			}}},
			field: "sendConfig.ulnConfig.optionalDVNThreshold",
		},
		{
			name: "zero threshold with optional dvns",
			cfg: &types.PathwayConfig{SendConfig: &types.SendConfigDecl{UlnConfig: &types.UlnConfigDecl{
				RequiredDVNs: []string{dvnX},
				OptionalDVNs: []string{dvnY},
			}}},
			field: "sendConfig.ulnConfig.optionalDVNThreshold",
		},
		{
			name: "zero max message size",
			cfg: &types.PathwayConfig{SendConfig: &types.SendConfigDecl{
				ExecutorConfig: &types.ExecutorConfigDecl{Executor: ptr(executor)},
			}},
			field: "sendConfig.executorConfig.maxMessageSize",
		},
		{
			name: "duplicate required dvn",
			cfg: &types.PathwayConfig{ReceiveConfig: &types.ReceiveConfigDecl{UlnConfig: &types.UlnConfigDecl{
				RequiredDVNs: []string{dvnX, "0x" + strings.ToUpper(dvnX[2:])},
			}}},
			field: "receiveConfig.ulnConfig.requiredDVNs",
		},
		{
			name: "required and optional overlap",
			cfg: &types.PathwayConfig{ReceiveConfig: &types.ReceiveConfigDecl{UlnConfig: &types.UlnConfigDecl{
				RequiredDVNs:         []string{dvnX},
				OptionalDVNs:         []string{dvnX, dvnY},
				OptionalDVNThreshold: ptr(uint8(1)),
			}}},
			field: "receiveConfig.ulnConfig.optionalDVNs",
		},
		{
			name:  "malformed library",
			cfg:   &types.PathwayConfig{SendLibrary: ptr("0x1234")},
			field: "sendLibrary",
		},
		{
			name: "malformed dvn",
			cfg: &types.PathwayConfig{SendConfig: &types.SendConfigDecl{UlnConfig: &types.UlnConfigDecl{
				RequiredDVNs: []string{dvnX, "not-an-address"},
			}}},
			field: "sendConfig.ulnConfig.requiredDVNs[1]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := pathway.Resolve("40106->40161", tc.cfg)
			require.Nil(t, resolved)
			requireInvalidField(t, err, tc.field)
		})
	}
}

func TestValidateTooManyDVNs(t *testing.T) {
	dvns := make([]common.Address, pathway.MaxDVNs+1)
	for i := range dvns {
		dvns[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}
	err := pathway.Validate("1->2", &types.ResolvedPathwayConfig{
		SendUln: &types.UlnConfig{RequiredDVNs: dvns},
	})
	requireInvalidField(t, err, "sendConfig.ulnConfig.requiredDVNs")

	require.NoError(t, pathway.Validate("1->2", &types.ResolvedPathwayConfig{
		SendUln: &types.UlnConfig{RequiredDVNs: dvns[:pathway.MaxDVNs]},
	}))
}

func requireInvalidField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrValidation)

	var fields []string
	for _, e := range flatten(err) {
		var invalid *types.InvalidPathwayConfigError
		if errors.As(e, &invalid) {
			require.NotEmpty(t, invalid.Pathway)
			fields = append(fields, invalid.Field)
		}
	}
	require.Contains(t, fields, field)
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

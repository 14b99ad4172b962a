package ethereum

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Message library config types.
const (
	ConfigTypeExecutor uint32 = 1
	ConfigTypeUln      uint32 = 2
)

// DVN counts with special meaning to the libraries.
const (
	defaultDVNCount = 0
	nilDVNCount     = 255
)

type executorConfigTuple struct {
	MaxMessageSize uint32
	Executor       common.Address
}

type ulnConfigTuple struct {
	Confirmations        uint64
	RequiredDVNCount     uint8
	OptionalDVNCount     uint8
	OptionalDVNThreshold uint8
	RequiredDVNs         []common.Address
	OptionalDVNs         []common.Address
}

// setConfigParam mirrors the endpoint's SetConfigParam struct.
type setConfigParam struct {
	Eid        uint32
	ConfigType uint32
	Config     []byte
}

var (
	executorConfigArgs = abi.Arguments{{Type: mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "maxMessageSize", Type: "uint32"},
		{Name: "executor", Type: "address"},
	})}}

	ulnConfigArgs = abi.Arguments{{Type: mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "confirmations", Type: "uint64"},
		{Name: "requiredDVNCount", Type: "uint8"},
		{Name: "optionalDVNCount", Type: "uint8"},
		{Name: "optionalDVNThreshold", Type: "uint8"},
		{Name: "requiredDVNs", Type: "address[]"},
		{Name: "optionalDVNs", Type: "address[]"},
	})}}
)

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

func EncodeExecutorConfig(cfg types.ExecutorConfig) ([]byte, error) {
	return executorConfigArgs.Pack(executorConfigTuple{
		MaxMessageSize: cfg.MaxMessageSize,
		Executor:       cfg.Executor,
	})
}

func DecodeExecutorConfig(b []byte) (types.ExecutorConfig, error) {
	out, err := executorConfigArgs.Unpack(b)
	if err != nil {
		return types.ExecutorConfig{}, fmt.Errorf("unable to decode executor config: %w", err)
	}
	tuple := *abi.ConvertType(out[0], new(executorConfigTuple)).(*executorConfigTuple)
	return types.ExecutorConfig{MaxMessageSize: tuple.MaxMessageSize, Executor: tuple.Executor}, nil
}

// DVNCounts returns the DVN counts cfg is encoded with. An empty list is sent as
// nilDVNCount so the library keeps it empty; only when both lists are empty do they
// fall back to the library default.
func DVNCounts(cfg types.UlnConfig) (required, optional uint8) {
	if cfg.DefaultDVNs() {
		return defaultDVNCount, defaultDVNCount
	}
	count := func(dvns []common.Address) uint8 {
		if len(dvns) == 0 {
			return nilDVNCount
		}
		return uint8(len(dvns))
	}
	return count(cfg.RequiredDVNs), count(cfg.OptionalDVNs)
}

// EncodeUlnConfig encodes cfg with its DVN lists sorted, as the libraries require.
func EncodeUlnConfig(cfg types.UlnConfig) ([]byte, error) {
	required := sortedAddresses(cfg.RequiredDVNs)
	optional := sortedAddresses(cfg.OptionalDVNs)
	requiredCount, optionalCount := DVNCounts(cfg)
	return ulnConfigArgs.Pack(ulnConfigTuple{
		Confirmations:        cfg.Confirmations,
		RequiredDVNCount:     requiredCount,
		OptionalDVNCount:     optionalCount,
		OptionalDVNThreshold: cfg.OptionalDVNThreshold,
		RequiredDVNs:         required,
		OptionalDVNs:         optional,
	})
}

func DecodeUlnConfig(b []byte) (types.UlnConfig, error) {
	out, err := ulnConfigArgs.Unpack(b)
	if err != nil {
		return types.UlnConfig{}, fmt.Errorf("unable to decode uln config: %w", err)
	}
	tuple := *abi.ConvertType(out[0], new(ulnConfigTuple)).(*ulnConfigTuple)

	cfg := types.UlnConfig{
		Confirmations:        tuple.Confirmations,
		RequiredDVNs:         sortedAddresses(tuple.RequiredDVNs),
		OptionalDVNs:         sortedAddresses(tuple.OptionalDVNs),
		OptionalDVNThreshold: tuple.OptionalDVNThreshold,
	}
	if tuple.RequiredDVNCount != nilDVNCount && int(tuple.RequiredDVNCount) != len(cfg.RequiredDVNs) {
		return cfg, fmt.Errorf("uln config declares %d required DVNs but lists %d", tuple.RequiredDVNCount, len(cfg.RequiredDVNs))
	}
	if tuple.OptionalDVNCount != nilDVNCount && int(tuple.OptionalDVNCount) != len(cfg.OptionalDVNs) {
		return cfg, fmt.Errorf("uln config declares %d optional DVNs but lists %d", tuple.OptionalDVNCount, len(cfg.OptionalDVNs))
	}
	return cfg, nil
}

func sortedAddresses(in []common.Address) []common.Address {
	out := append(make([]common.Address, 0, len(in)), in...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

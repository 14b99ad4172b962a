// Package pathway turns layered declarative configs into one validated config per pathway.
// Everything here is pure: no I/O, no logging.
package pathway

import (
	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Merge overlays override on base field by field. Each leaf takes the override's value when
// set, else the base's. Neither input is mutated; the result shares no pointers with them.
func Merge(base, override *types.PathwayConfig) *types.PathwayConfig {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.PathwayConfig{}
	}
	if override == nil {
		override = &types.PathwayConfig{}
	}

	return &types.PathwayConfig{
		SendLibrary:                 pick(base.SendLibrary, override.SendLibrary),
		ReceiveLibraryConfig:        mergeReceiveLibrary(base.ReceiveLibraryConfig, override.ReceiveLibraryConfig),
		ReceiveLibraryTimeoutConfig: mergeReceiveLibraryTimeout(base.ReceiveLibraryTimeoutConfig, override.ReceiveLibraryTimeoutConfig),
		SendConfig:                  mergeSendConfig(base.SendConfig, override.SendConfig),
		ReceiveConfig:               mergeReceiveConfig(base.ReceiveConfig, override.ReceiveConfig),
	}
}

// pick returns a copy of the override value if set, else a copy of the base value.
func pick[T any](base, override *T) *T {
	src := base
	if override != nil {
		src = override
	}
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func pickList(base, override []string) []string {
	src := base
	if override != nil {
		src = override
	}
	if src == nil {
		return nil
	}
	return append(make([]string, 0, len(src)), src...)
}

func mergeReceiveLibrary(base, override *types.ReceiveLibraryDecl) *types.ReceiveLibraryDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.ReceiveLibraryDecl{}
	}
	if override == nil {
		override = &types.ReceiveLibraryDecl{}
	}
	return &types.ReceiveLibraryDecl{
		ReceiveLibrary: pick(base.ReceiveLibrary, override.ReceiveLibrary),
		GracePeriod:    pick(base.GracePeriod, override.GracePeriod),
	}
}

func mergeReceiveLibraryTimeout(base, override *types.ReceiveLibraryTimeoutDecl) *types.ReceiveLibraryTimeoutDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.ReceiveLibraryTimeoutDecl{}
	}
	if override == nil {
		override = &types.ReceiveLibraryTimeoutDecl{}
	}
	return &types.ReceiveLibraryTimeoutDecl{
		Lib:    pick(base.Lib, override.Lib),
		Expiry: pick(base.Expiry, override.Expiry),
	}
}

func mergeSendConfig(base, override *types.SendConfigDecl) *types.SendConfigDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.SendConfigDecl{}
	}
	if override == nil {
		override = &types.SendConfigDecl{}
	}
	return &types.SendConfigDecl{
		ExecutorConfig: mergeExecutor(base.ExecutorConfig, override.ExecutorConfig),
		UlnConfig:      mergeUln(base.UlnConfig, override.UlnConfig),
	}
}

func mergeReceiveConfig(base, override *types.ReceiveConfigDecl) *types.ReceiveConfigDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.ReceiveConfigDecl{}
	}
	if override == nil {
		override = &types.ReceiveConfigDecl{}
	}
	return &types.ReceiveConfigDecl{
		UlnConfig: mergeUln(base.UlnConfig, override.UlnConfig),
	}
}

func mergeExecutor(base, override *types.ExecutorConfigDecl) *types.ExecutorConfigDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.ExecutorConfigDecl{}
	}
	if override == nil {
		override = &types.ExecutorConfigDecl{}
	}
	return &types.ExecutorConfigDecl{
		MaxMessageSize: pick(base.MaxMessageSize, override.MaxMessageSize),
		Executor:       pick(base.Executor, override.Executor),
	}
}

func mergeUln(base, override *types.UlnConfigDecl) *types.UlnConfigDecl {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		base = &types.UlnConfigDecl{}
	}
	if override == nil {
		override = &types.UlnConfigDecl{}
	}
	return &types.UlnConfigDecl{
		Confirmations:        pick(base.Confirmations, override.Confirmations),
		RequiredDVNs:         pickList(base.RequiredDVNs, override.RequiredDVNs),
		OptionalDVNs:         pickList(base.OptionalDVNs, override.OptionalDVNs),
		OptionalDVNThreshold: pick(base.OptionalDVNThreshold, override.OptionalDVNThreshold),
	}
}

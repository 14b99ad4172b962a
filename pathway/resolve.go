package pathway

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/address"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

// MaxDVNs is the largest DVN list a message library accepts.
const MaxDVNs = 127

// Resolve merges layers left to right (later layers win per field), parses every address and
// validates the result. key names the pathway in errors.
func Resolve(key string, layers ...*types.PathwayConfig) (*types.ResolvedPathwayConfig, error) {
	var merged *types.PathwayConfig
	for _, layer := range layers {
		merged = Merge(merged, layer)
	}
	if merged == nil {
		return &types.ResolvedPathwayConfig{}, nil
	}

	p := parser{key: key}
	resolved := &types.ResolvedPathwayConfig{}

	if merged.SendLibrary != nil {
		lib := p.address("sendLibrary", *merged.SendLibrary)
		resolved.SendLibrary = &lib
	}

	if decl := merged.ReceiveLibraryConfig; decl != nil {
		cfg := &types.ReceiveLibraryConfig{}
		if decl.ReceiveLibrary == nil {
			p.fail("receiveLibraryConfig.receiveLibrary", "required when receiveLibraryConfig is set", nil)
		} else {
			cfg.Library = p.address("receiveLibraryConfig.receiveLibrary", *decl.ReceiveLibrary)
		}
		if decl.GracePeriod != nil {
			cfg.GracePeriod = *decl.GracePeriod
		}
		resolved.ReceiveLibrary = cfg
	}

	if decl := merged.ReceiveLibraryTimeoutConfig; decl != nil {
		cfg := &types.ReceiveLibraryTimeout{}
		if decl.Lib == nil {
			p.fail("receiveLibraryTimeoutConfig.lib", "required when receiveLibraryTimeoutConfig is set", nil)
		} else {
			cfg.Library = p.address("receiveLibraryTimeoutConfig.lib", *decl.Lib)
		}
		if decl.Expiry != nil {
			cfg.Expiry = *decl.Expiry
		}
		resolved.ReceiveLibraryTimeout = cfg
	}

	if send := merged.SendConfig; send != nil {
		if decl := send.ExecutorConfig; decl != nil {
			cfg := &types.ExecutorConfig{}
			if decl.MaxMessageSize != nil {
				cfg.MaxMessageSize = *decl.MaxMessageSize
			}
			if decl.Executor != nil {
				cfg.Executor = p.address("sendConfig.executorConfig.executor", *decl.Executor)
			}
			resolved.SendExecutor = cfg
		}
		if send.UlnConfig != nil {
			resolved.SendUln = p.uln("sendConfig.ulnConfig", send.UlnConfig)
		}
	}

	if recv := merged.ReceiveConfig; recv != nil && recv.UlnConfig != nil {
		resolved.ReceiveUln = p.uln("receiveConfig.ulnConfig", recv.UlnConfig)
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := Validate(key, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Validate checks the invariants of a resolved config that the on-chain libraries would
// otherwise reject, or worse, accept.
func Validate(key string, cfg *types.ResolvedPathwayConfig) error {
	if cfg == nil {
		return nil
	}
	p := parser{key: key}

	if cfg.SendExecutor != nil && cfg.SendExecutor.MaxMessageSize == 0 {
		p.fail("sendConfig.executorConfig.maxMessageSize", "must be greater than zero", nil)
	}
	if cfg.SendUln != nil {
		p.validateUln("sendConfig.ulnConfig", cfg.SendUln)
	}
	if cfg.ReceiveUln != nil {
		p.validateUln("receiveConfig.ulnConfig", cfg.ReceiveUln)
	}

	return errors.Join(p.errs...)
}

// parser accumulates field errors for one pathway.
type parser struct {
	key  string
	errs []error
}

func (p *parser) fail(field, reason string, err error) {
	p.errs = append(p.errs, &types.InvalidPathwayConfigError{
		Pathway: p.key,
		Field:   field,
		Reason:  reason,
		Err:     err,
	})
}

func (p *parser) address(field, native string) common.Address {
	addr, err := address.ParseEVM(native)
	if err != nil {
		p.fail(field, "malformed address", err)
	}
	return addr
}

func (p *parser) uln(field string, decl *types.UlnConfigDecl) *types.UlnConfig {
	cfg := &types.UlnConfig{
		RequiredDVNs: p.dvns(field+".requiredDVNs", decl.RequiredDVNs),
		OptionalDVNs: p.dvns(field+".optionalDVNs", decl.OptionalDVNs),
	}
	if decl.Confirmations != nil {
		cfg.Confirmations = *decl.Confirmations
	}
	if decl.OptionalDVNThreshold != nil {
		cfg.OptionalDVNThreshold = *decl.OptionalDVNThreshold
	}
	return cfg
}

func (p *parser) dvns(field string, in []string) []common.Address {
	out := make([]common.Address, 0, len(in))
	for i, native := range in {
		out = append(out, p.address(fmt.Sprintf("%s[%d]", field, i), native))
	}
	sortAddresses(out)
	return out
}

func (p *parser) validateUln(field string, cfg *types.UlnConfig) {
	if len(cfg.RequiredDVNs) > MaxDVNs {
		p.fail(field+".requiredDVNs", fmt.Sprintf("at most %d DVNs allowed, got %d", MaxDVNs, len(cfg.RequiredDVNs)), nil)
	}
	if len(cfg.OptionalDVNs) > MaxDVNs {
		p.fail(field+".optionalDVNs", fmt.Sprintf("at most %d DVNs allowed, got %d", MaxDVNs, len(cfg.OptionalDVNs)), nil)
	}
	if int(cfg.OptionalDVNThreshold) > len(cfg.OptionalDVNs) {
		p.fail(field+".optionalDVNThreshold",
			fmt.Sprintf("threshold %d exceeds %d optional DVNs", cfg.OptionalDVNThreshold, len(cfg.OptionalDVNs)), nil)
	}
	if cfg.OptionalDVNThreshold == 0 && len(cfg.OptionalDVNs) > 0 {
		p.fail(field+".optionalDVNThreshold", "must be greater than zero when optional DVNs are set", nil)
	}
	if dup, ok := firstDuplicate(cfg.RequiredDVNs); ok {
		p.fail(field+".requiredDVNs", "duplicate DVN "+dup.Hex(), nil)
	}
	if dup, ok := firstDuplicate(cfg.OptionalDVNs); ok {
		p.fail(field+".optionalDVNs", "duplicate DVN "+dup.Hex(), nil)
	}
	required := make(map[common.Address]struct{}, len(cfg.RequiredDVNs))
	for _, dvn := range cfg.RequiredDVNs {
		required[dvn] = struct{}{}
	}
	for _, dvn := range cfg.OptionalDVNs {
		if _, ok := required[dvn]; ok {
			p.fail(field+".optionalDVNs", "DVN "+dvn.Hex()+" is also required", nil)
			break
		}
	}
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}

func firstDuplicate(addrs []common.Address) (common.Address, bool) {
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			return a, true
		}
		seen[a] = struct{}{}
	}
	return common.Address{}, false
}

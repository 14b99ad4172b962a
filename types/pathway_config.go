package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// PathwayConfig is the declared configuration of a pathway. Every leaf is optional so that
// layers can be merged field by field. A nil DVN list means "not set"; a non-nil empty list
// means "explicitly empty".
type PathwayConfig struct {
	SendLibrary                 *string                    `yaml:"sendLibrary,omitempty" json:"sendLibrary,omitempty"`
	ReceiveLibraryConfig        *ReceiveLibraryDecl        `yaml:"receiveLibraryConfig,omitempty" json:"receiveLibraryConfig,omitempty"`
	ReceiveLibraryTimeoutConfig *ReceiveLibraryTimeoutDecl `yaml:"receiveLibraryTimeoutConfig,omitempty" json:"receiveLibraryTimeoutConfig,omitempty"`
	SendConfig                  *SendConfigDecl            `yaml:"sendConfig,omitempty" json:"sendConfig,omitempty"`
	ReceiveConfig               *ReceiveConfigDecl         `yaml:"receiveConfig,omitempty" json:"receiveConfig,omitempty"`
}

type ReceiveLibraryDecl struct {
	ReceiveLibrary *string `yaml:"receiveLibrary,omitempty" json:"receiveLibrary,omitempty"`
	GracePeriod    *uint64 `yaml:"gracePeriod,omitempty" json:"gracePeriod,omitempty"`
}

type ReceiveLibraryTimeoutDecl struct {
	Lib    *string `yaml:"lib,omitempty" json:"lib,omitempty"`
	Expiry *uint64 `yaml:"expiry,omitempty" json:"expiry,omitempty"`
}

type SendConfigDecl struct {
	ExecutorConfig *ExecutorConfigDecl `yaml:"executorConfig,omitempty" json:"executorConfig,omitempty"`
	UlnConfig      *UlnConfigDecl      `yaml:"ulnConfig,omitempty" json:"ulnConfig,omitempty"`
}

type ReceiveConfigDecl struct {
	UlnConfig *UlnConfigDecl `yaml:"ulnConfig,omitempty" json:"ulnConfig,omitempty"`
}

type ExecutorConfigDecl struct {
	MaxMessageSize *uint32 `yaml:"maxMessageSize,omitempty" json:"maxMessageSize,omitempty"`
	Executor       *string `yaml:"executor,omitempty" json:"executor,omitempty"`
}

type UlnConfigDecl struct {
	Confirmations        *uint64  `yaml:"confirmations,omitempty" json:"confirmations,omitempty"`
	RequiredDVNs         []string `yaml:"requiredDVNs" json:"requiredDVNs"`
	OptionalDVNs         []string `yaml:"optionalDVNs" json:"optionalDVNs"`
	OptionalDVNThreshold *uint8   `yaml:"optionalDVNThreshold,omitempty" json:"optionalDVNThreshold,omitempty"`
}

// Direction selects the send or receive side of a pathway's verification config.
type Direction string

const (
	Send    Direction = "send"
	Receive Direction = "receive"
)

// ExecutorConfig is the on-chain executor setting of a send library.
type ExecutorConfig struct {
	MaxMessageSize uint32         `yaml:"maxMessageSize" json:"maxMessageSize"`
	Executor       common.Address `yaml:"executor" json:"executor"`
}

// SatisfiedBy reports whether the effective executor config observed meets e. A zero
// executor or size keeps the library default and matches any value.
func (e ExecutorConfig) SatisfiedBy(observed ExecutorConfig) bool {
	if e.MaxMessageSize != 0 && e.MaxMessageSize != observed.MaxMessageSize {
		return false
	}
	return e.Executor == (common.Address{}) || e.Executor == observed.Executor
}

// UlnConfig is the on-chain verification setting of a message library.
// DVN lists are kept sorted ascending, which is also the order the libraries require.
type UlnConfig struct {
	Confirmations        uint64           `yaml:"confirmations" json:"confirmations"`
	RequiredDVNs         []common.Address `yaml:"requiredDVNs" json:"requiredDVNs"`
	OptionalDVNs         []common.Address `yaml:"optionalDVNs" json:"optionalDVNs"`
	OptionalDVNThreshold uint8            `yaml:"optionalDVNThreshold" json:"optionalDVNThreshold"`
}

// Equal compares two configs; DVN order is not significant.
func (u UlnConfig) Equal(other UlnConfig) bool {
	return u.Confirmations == other.Confirmations &&
		u.OptionalDVNThreshold == other.OptionalDVNThreshold &&
		sameAddressSet(u.RequiredDVNs, other.RequiredDVNs) &&
		sameAddressSet(u.OptionalDVNs, other.OptionalDVNs)
}

// DefaultDVNs reports whether u leaves both DVN lists to the library default.
// A library never accepts a config without any DVN, so two empty lists cannot mean "none".
func (u UlnConfig) DefaultDVNs() bool {
	return len(u.RequiredDVNs) == 0 && len(u.OptionalDVNs) == 0
}

// SatisfiedBy reports whether observed, the effective config a library reports with its
// defaults merged in, meets u. Zero confirmations and DefaultDVNs take the defaults and
// so match whatever the library reports for them.
func (u UlnConfig) SatisfiedBy(observed UlnConfig) bool {
	if u.Confirmations != 0 && u.Confirmations != observed.Confirmations {
		return false
	}
	if u.DefaultDVNs() {
		return true
	}
	return u.OptionalDVNThreshold == observed.OptionalDVNThreshold &&
		sameAddressSet(u.RequiredDVNs, observed.RequiredDVNs) &&
		sameAddressSet(u.OptionalDVNs, observed.OptionalDVNs)
}

type ReceiveLibraryConfig struct {
	Library     common.Address `yaml:"receiveLibrary" json:"receiveLibrary"`
	GracePeriod uint64         `yaml:"gracePeriod" json:"gracePeriod"`
}

type ReceiveLibraryTimeout struct {
	Library common.Address `yaml:"lib" json:"lib"`
	Expiry  uint64         `yaml:"expiry" json:"expiry"`
}

// ResolvedPathwayConfig is the fully merged configuration applied to one pathway.
// A nil section was not declared at any layer and is left untouched on chain.
type ResolvedPathwayConfig struct {
	SendLibrary           *common.Address        `yaml:"sendLibrary,omitempty" json:"sendLibrary,omitempty"`
	ReceiveLibrary        *ReceiveLibraryConfig  `yaml:"receiveLibrary,omitempty" json:"receiveLibrary,omitempty"`
	ReceiveLibraryTimeout *ReceiveLibraryTimeout `yaml:"receiveLibraryTimeout,omitempty" json:"receiveLibraryTimeout,omitempty"`
	SendExecutor          *ExecutorConfig        `yaml:"sendExecutor,omitempty" json:"sendExecutor,omitempty"`
	SendUln               *UlnConfig             `yaml:"sendUln,omitempty" json:"sendUln,omitempty"`
	ReceiveUln            *UlnConfig             `yaml:"receiveUln,omitempty" json:"receiveUln,omitempty"`
}

func sameAddressSet(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[common.Address]int, len(a))
	for _, addr := range a {
		seen[addr]++
	}
	for _, addr := range b {
		if seen[addr] == 0 {
			return false
		}
		seen[addr]--
	}
	return true
}

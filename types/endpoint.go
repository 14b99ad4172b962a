package types

import (
	"encoding/hex"
	"fmt"
)

// EID identifies a chain and environment pair on the messaging layer.
type EID uint32

// Endpoint is the identity of one deployed application contract.
// Address may be empty, in which case it is resolved from ContractName at reconcile time.
type Endpoint struct {
	EID          EID    `yaml:"eid" json:"eid"`
	ContractName string `yaml:"contractName" json:"contractName"`
	Address      string `yaml:"address,omitempty" json:"address,omitempty"`
}

// SameContract reports whether two endpoints name the same contract.
func (e Endpoint) SameContract(other Endpoint) bool {
	return e.EID == other.EID &&
		e.ContractName == other.ContractName &&
		e.Address == other.Address
}

func (e Endpoint) String() string {
	if e.Address != "" {
		return fmt.Sprintf("%s@%d(%s)", e.ContractName, e.EID, e.Address)
	}
	return fmt.Sprintf("%s@%d", e.ContractName, e.EID)
}

// Bytes32 is the canonical peer identifier used by the messaging layer.
// The zero value is the "unset" sentinel.
type Bytes32 [32]byte

// ZeroBytes32 is the unset peer sentinel.
var ZeroBytes32 Bytes32

func (b Bytes32) IsZero() bool {
	return b == ZeroBytes32
}

func (b Bytes32) Hex() string {
	return "0x" + hex.EncodeToString(b[:])
}

func (b Bytes32) String() string {
	return b.Hex()
}

// MarshalText renders the identifier as 0x-prefixed hex so reports stay readable.
func (b Bytes32) MarshalText() ([]byte, error) {
	return []byte(b.Hex()), nil
}

// PeerLink is a local endpoint's record of a remote endpoint.
type PeerLink struct {
	Local     Endpoint `json:"local"`
	RemoteEID EID      `json:"remote_eid"`
	Peer      Bytes32  `json:"peer"`
}

// AddressCodec converts native addresses of one chain family to and from Bytes32.
type AddressCodec interface {
	// Family returns the address family name, e.g. "evm".
	Family() string
	Encode(native string) (Bytes32, error)
	Decode(b Bytes32) (string, error)
}

// Package address converts chain-native account addresses to the 32-byte peer identifiers
// used by the messaging layer, and back.
package address

import (
	"fmt"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

const (
	FamilyEVM    = "evm"
	FamilySolana = "solana"
	FamilyBech32 = "bech32"
)

// ForFamily returns the codec for an address family. An empty family means evm.
func ForFamily(family, prefix string) (types.AddressCodec, error) {
	switch family {
	case "", FamilyEVM:
		return EVM{}, nil
	case FamilySolana:
		return Solana{}, nil
	case FamilyBech32:
		if prefix == "" {
			return nil, fmt.Errorf("bech32 address family requires a prefix")
		}
		return Bech32{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown address family %q", family)
	}
}

// leftPad right-aligns a native address of at most 32 bytes.
func leftPad(native []byte) types.Bytes32 {
	var out types.Bytes32
	copy(out[32-len(native):], native)
	return out
}

// trimPadding returns the low-order size bytes of b, failing when any padding byte is set.
func trimPadding(family string, b types.Bytes32, size int) ([]byte, error) {
	for i := 0; i < 32-size; i++ {
		if b[i] != 0 {
			return nil, &types.InvalidAddressError{
				Family: family,
				Input:  b.Hex(),
				Reason: fmt.Sprintf("non-zero padding byte at offset %d", i),
			}
		}
	}
	out := make([]byte, size)
	copy(out, b[32-size:])
	return out, nil
}

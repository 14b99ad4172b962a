package address

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.AddressCodec = Solana{}

// Solana encodes base58 public keys, which already occupy all 32 bytes.
type Solana struct{}

func (Solana) Family() string { return FamilySolana }

func (Solana) Encode(native string) (types.Bytes32, error) {
	raw, err := base58.Decode(native)
	if err != nil {
		return types.Bytes32{}, &types.InvalidAddressError{Family: FamilySolana, Input: native, Reason: err.Error()}
	}
	if len(raw) != 32 {
		return types.Bytes32{}, &types.InvalidAddressError{
			Family: FamilySolana,
			Input:  native,
			Reason: fmt.Sprintf("expected 32 bytes, got %d", len(raw)),
		}
	}
	return leftPad(raw), nil
}

func (Solana) Decode(b types.Bytes32) (string, error) {
	return base58.Encode(b[:]), nil
}

package address

import (
	"fmt"

	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.AddressCodec = Bech32{}

// Bech32 encodes cosmos-family addresses: 20-byte accounts or 32-byte contracts.
// Decode treats the value as a 20-byte account unless any of bytes 0..11 is set.
type Bech32 struct {
	Prefix string
}

func (Bech32) Family() string { return FamilyBech32 }

func (c Bech32) Encode(native string) (types.Bytes32, error) {
	hrp, raw, err := bech32.DecodeAndConvert(native)
	if err != nil {
		return types.Bytes32{}, &types.InvalidAddressError{Family: FamilyBech32, Input: native, Reason: err.Error()}
	}
	if hrp != c.Prefix {
		return types.Bytes32{}, &types.InvalidAddressError{
			Family: FamilyBech32,
			Input:  native,
			Reason: fmt.Sprintf("expected prefix %q, got %q", c.Prefix, hrp),
		}
	}
	if len(raw) != 20 && len(raw) != 32 {
		return types.Bytes32{}, &types.InvalidAddressError{
			Family: FamilyBech32,
			Input:  native,
			Reason: fmt.Sprintf("expected 20 or 32 bytes, got %d", len(raw)),
		}
	}
	return leftPad(raw), nil
}

func (c Bech32) Decode(b types.Bytes32) (string, error) {
	size := 20
	if _, err := trimPadding(FamilyBech32, b, 20); err != nil {
		size = 32
	}
	raw, err := trimPadding(FamilyBech32, b, size)
	if err != nil {
		return "", err
	}
	out, err := bech32.ConvertAndEncode(c.Prefix, raw)
	if err != nil {
		return "", &types.InvalidAddressError{Family: FamilyBech32, Input: b.Hex(), Reason: err.Error()}
	}
	return out, nil
}

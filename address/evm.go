package address

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

var _ types.AddressCodec = EVM{}

// EVM encodes 20-byte hex account addresses. Decoded addresses use the EIP-55 checksum form.
type EVM struct{}

func (EVM) Family() string { return FamilyEVM }

func (EVM) Encode(native string) (types.Bytes32, error) {
	addr, err := ParseEVM(native)
	if err != nil {
		return types.Bytes32{}, err
	}
	return leftPad(addr.Bytes()), nil
}

// Decode returns the EIP-55 checksum form, so Decode(Encode(a)) equals a only up to
// letter case: a lowercase or uppercase input comes back checksummed.
func (EVM) Decode(b types.Bytes32) (string, error) {
	raw, err := trimPadding(FamilyEVM, b, common.AddressLength)
	if err != nil {
		return "", err
	}
	return common.BytesToAddress(raw).Hex(), nil
}

// ParseEVM parses a 0x-prefixed hex address. Unlike common.HexToAddress it never
// truncates or pads malformed input.
func ParseEVM(native string) (common.Address, error) {
	if !common.IsHexAddress(native) {
		return common.Address{}, &types.InvalidAddressError{
			Family: FamilyEVM,
			Input:  native,
			Reason: "expected 20 hex-encoded bytes",
		}
	}
	if len(native) != 2+2*common.AddressLength {
		return common.Address{}, &types.InvalidAddressError{
			Family: FamilyEVM,
			Input:  native,
			Reason: "missing 0x prefix",
		}
	}
	return common.HexToAddress(native), nil
}

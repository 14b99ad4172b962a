package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func addrs(hexes ...string) []common.Address {
	out := make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		out = append(out, common.HexToAddress(h))
	}
	return out
}

func TestValidationTaxonomy(t *testing.T) {
	validation := []error{
		&DuplicateEndpointError{EID: 1},
		&UnknownEndpointError{EID: 1},
		&DuplicatePathwayError{From: 1, To: 2},
		&SelfLoopError{EID: 1},
		&InvalidPathwayConfigError{Pathway: "1->2", Field: "sendConfig.executorConfig.maxMessageSize", Reason: "must be > 0"},
		&InvalidAddressError{Family: "evm", Input: "0xzz", Reason: "not hex"},
	}
	for _, err := range validation {
		wrapped := fmt.Errorf("building graph: %w", err)
		require.ErrorIs(t, wrapped, ErrValidation, err.Error())
		require.False(t, IsTransient(wrapped))
	}

	require.NotErrorIs(t, &StateConflictError{}, ErrValidation)
	require.NotErrorIs(t, &WriteRevertedError{}, ErrValidation)
}

func TestIsTransient(t *testing.T) {
	err := fmt.Errorf("reading peer: %w", &NetworkError{Op: "peers", Err: errors.New("timeout")})
	require.True(t, IsTransient(err))
	require.False(t, IsTransient(&WriteRevertedError{TxHash: "0x1", Reason: "status 0"}))
}

func TestInvalidPathwayConfigErrorUnwraps(t *testing.T) {
	inner := &InvalidAddressError{Family: "evm", Input: "nope", Reason: "not hex"}
	err := &InvalidPathwayConfigError{Pathway: "1->2", Field: "sendLibrary", Reason: "bad address", Err: inner}

	var addrErr *InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	require.Contains(t, err.Error(), "1->2")
	require.Contains(t, err.Error(), "sendLibrary")
}

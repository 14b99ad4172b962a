package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

type JsonError interface {
	Error() string
	ErrorCode() int
	ErrorData() interface{}
}

// revertCode is the JSON-RPC error code nodes use for "execution reverted".
const revertCode = 3

// permanentSendFailures are node rejections that no retry will fix.
var permanentSendFailures = []string{
	"execution reverted",
	"insufficient funds",
	"intrinsic gas too low",
	"exceeds block gas limit",
	"invalid sender",
}

// classifyCallError maps a failed eth_call to the error taxonomy. Reverts are permanent,
// everything else is treated as a transient transport failure.
func classifyCallError(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", method, ctxErr)
	}
	var jsonErr JsonError
	if errors.As(err, &jsonErr) && jsonErr.ErrorCode() == revertCode {
		return fmt.Errorf("%s: %w", method, err)
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%s: %w", method, err)
	}
	return &types.NetworkError{Op: method, Err: err}
}

// classifySendError maps a failed submission. Reverted gas estimation and signer problems
// become WriteRevertedError; transport failures stay transient so the engine re-reads.
func classifySendError(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", method, ctxErr)
	}
	var jsonErr JsonError
	if errors.As(err, &jsonErr) && jsonErr.ErrorCode() == revertCode {
		return &types.WriteRevertedError{Reason: fmt.Sprintf("%s: %s", method, err.Error())}
	}
	msg := err.Error()
	for _, failure := range permanentSendFailures {
		if strings.Contains(msg, failure) {
			return &types.WriteRevertedError{Reason: fmt.Sprintf("%s: %s", method, msg)}
		}
	}
	return &types.NetworkError{Op: method, Err: err}
}

// GetEcdsaKeyAddress returns the public ecdsa key and address given the private key
func GetEcdsaKeyAddress(privateKey string) (*ecdsa.PrivateKey, string, error) {
	privEcdsaKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, "", errors.New("unable to convert private key hex to ecdsa")
	}

	publicKey := privEcdsaKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, "", errors.New("error casting public key to ECDSA")
	}

	return privEcdsaKey, crypto.PubkeyToAddress(*publicKeyECDSA).Hex(), nil
}

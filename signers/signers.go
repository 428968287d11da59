// Package signers adapts wallets and keys to the one capability the unlock
// flow needs: signing EIP-712 typed data.
package signers

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	// ErrUserRejected is wrapped by signers when the account holder declines.
	ErrUserRejected = errors.New("user rejected signature request")

	// ErrSignerUnavailable is wrapped by signers that have no usable account.
	ErrSignerUnavailable = errors.New("signer unavailable")
)

// Signer signs EIP-712 typed data and returns a 65-byte R||S||V signature.
// Implementations may block for as long as the user takes to decide, but
// must return once ctx is done.
type Signer interface {
	SignTypedData(ctx context.Context, domain apitypes.TypedDataDomain, types apitypes.Types, message apitypes.TypedDataMessage) ([]byte, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, domain apitypes.TypedDataDomain, types apitypes.Types, message apitypes.TypedDataMessage) ([]byte, error)

func (f SignerFunc) SignTypedData(ctx context.Context, domain apitypes.TypedDataDomain, types apitypes.Types, message apitypes.TypedDataMessage) ([]byte, error) {
	return f(ctx, domain, types, message)
}

type signResult struct {
	sig []byte
	err error
}

// Call invokes signer and waits for its answer or for ctx, whichever comes
// first. A signer that ignores ctx is left to finish on its own; its late
// answer is dropped.
func Call(ctx context.Context, signer Signer, domain apitypes.TypedDataDomain, types apitypes.Types, message apitypes.TypedDataMessage) ([]byte, error) {
	if signer == nil {
		return nil, ErrSignerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan signResult, 1)
	go func() {
		sig, err := signer.SignTypedData(ctx, domain, types, message)
		done <- signResult{sig: sig, err: err}
	}()

	select {
	case r := <-done:
		return r.sig, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

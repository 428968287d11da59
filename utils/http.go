package utils

import (
	"context"
	"errors"
	"net/url"

	"github.com/vitwit/x402-unlock/types"
)

// MaxBodyBytes bounds how much of a response body is read.
const MaxBodyBytes = 1 << 20

// ResolveURL resolves resource against base. An absolute resource is
// returned unchanged; a relative one requires base.
func ResolveURL(base, resource string) (string, error) {
	ref, err := url.Parse(resource)
	if err != nil {
		return "", types.WrapError(types.ErrConfigError, err, "invalid resource url %q", resource)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return "", types.NewError(types.ErrConfigError, "relative resource %q without base url", resource)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", types.WrapError(types.ErrConfigError, err, "invalid base url %q", base)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// TransportError maps a failed round trip to Timeout or NetworkError.
func TransportError(op string, err error) *types.X402Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.ErrTimeout, err, "%s timed out", op)
	}
	return types.WrapError(types.ErrNetworkError, err, "%s failed", op)
}

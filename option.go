package x402

import (
	"net/http"
	"time"

	"github.com/vitwit/x402-unlock/authorization"
	"github.com/vitwit/x402-unlock/logger"
	"github.com/vitwit/x402-unlock/metrics"
)

type Option func(*Flow)

func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		f.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(f *Flow) {
		f.metrics = r
	}
}

// WithTimeout bounds each HTTP round trip. It overrides ClientConfig.RequestTimeout.
func WithTimeout(t time.Duration) Option {
	return func(f *Flow) {
		f.timeout = t
	}
}

// WithSignTimeout bounds the wait for the signer. It overrides ClientConfig.SignTimeout.
func WithSignTimeout(t time.Duration) Option {
	return func(f *Flow) {
		f.signTimeout = t
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Flow) {
		f.httpClient = c
	}
}

func WithNonceSource(n authorization.NonceSource) Option {
	return func(f *Flow) {
		f.nonces = n
	}
}

func WithClock(c authorization.Clock) Option {
	return func(f *Flow) {
		f.clock = c
	}
}

func WithOnTransition(cb TransitionCallback) Option {
	return func(f *Flow) {
		f.onTransition = cb
	}
}

// Package x402 unlocks paid HTTP resources with the x402 protocol: it fetches
// the 402 payment challenge, has a signer authorize an EIP-3009 USDC
// transfer, and retries the request with the signed payment.
package x402

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/vitwit/x402-unlock/authorization"
	"github.com/vitwit/x402-unlock/logger"
	"github.com/vitwit/x402-unlock/metrics"
	"github.com/vitwit/x402-unlock/negotiation"
	"github.com/vitwit/x402-unlock/signers"
	"github.com/vitwit/x402-unlock/submission"
	"github.com/vitwit/x402-unlock/types"
	"github.com/vitwit/x402-unlock/utils"
)

var (
	// ErrAttemptInFlight is returned by Unlock while another attempt owns the flow.
	ErrAttemptInFlight = errors.New("unlock attempt already in flight")

	// ErrAttemptAbandoned is returned by an attempt that was abandoned.
	ErrAttemptAbandoned = errors.New("unlock attempt abandoned")
)

// Flow drives one paid resource through challenge, signature and payment.
// Attempts are sequential: at most one runs at a time.
type Flow struct {
	config types.ClientConfig
	payer  string
	signer signers.Signer

	negotiator *negotiation.Negotiator
	encoder    *authorization.Encoder
	submitter  *submission.Submitter

	logger       logger.Logger
	metrics      metrics.Recorder
	timeout      time.Duration
	signTimeout  time.Duration
	httpClient   *http.Client
	nonces       authorization.NonceSource
	clock        authorization.Clock
	onTransition TransitionCallback

	mu         sync.Mutex
	status     Status
	attempt    uint64
	cancel     context.CancelFunc
	pending    []transition
	delivering bool
}

type transition struct {
	from State
	to   Status
}

// New creates a flow for config.Resource, paid by payer and signed by signer.
func New(config *types.ClientConfig, payer string, signer signers.Signer, opts ...Option) (*Flow, error) {
	if config == nil {
		return nil, types.NewError(types.ErrConfigError, "client config is nil")
	}
	if err := utils.ValidateClientConfig(config); err != nil {
		return nil, err
	}
	if !utils.ValidateAddress(payer) {
		return nil, types.NewError(types.ErrConfigError, "invalid payer address %q", payer)
	}
	if signer == nil {
		return nil, types.NewError(types.ErrSignerUnavailable, "no signer configured")
	}

	cfg := config.WithDefaults()
	f := &Flow{
		config:      cfg,
		payer:       payer,
		signer:      signer,
		timeout:     cfg.RequestTimeout,
		signTimeout: cfg.SignTimeout,
		status:      Status{State: StateReady},
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil && config.LogLevel != "" {
		f.logger = logger.NewZapLogger(config.LogLevel)
	}
	f.logger = logger.OrNoop(f.logger)

	if f.metrics == nil && cfg.EnableMetrics {
		f.metrics = metrics.Default()
	}
	f.metrics = metrics.OrNoop(f.metrics)

	f.negotiator = negotiation.NewNegotiator(cfg.BaseURL,
		negotiation.WithHTTPClient(f.httpClient),
		negotiation.WithTimeout(f.timeout),
		negotiation.WithLogger(f.logger),
	)
	f.encoder = authorization.NewEncoder(
		authorization.WithChainID(cfg.ChainID),
		authorization.WithTokenDomain(cfg.TokenName, cfg.TokenVersion),
		authorization.WithNonceSource(f.nonces),
		authorization.WithClock(f.clock),
		authorization.WithLogger(f.logger),
	)
	f.submitter = submission.NewSubmitter(cfg.BaseURL,
		submission.WithHTTPClient(f.httpClient),
		submission.WithTimeout(f.timeout),
		submission.WithResultField(cfg.ResultField),
		submission.WithLogger(f.logger),
	)

	return f, nil
}

// Status returns a snapshot of the flow.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Unlock runs one attempt and waits for it. It returns ErrAttemptInFlight,
// leaving the flow untouched, if an attempt is already running.
func (f *Flow) Unlock(ctx context.Context) (*types.UnlockResult, error) {
	gen, attemptCtx, err := f.begin(ctx)
	if err != nil {
		return nil, err
	}
	return f.run(attemptCtx, gen)
}

// Start runs one attempt in the background. It returns false, doing
// nothing, if an attempt is already running.
func (f *Flow) Start(ctx context.Context) bool {
	gen, attemptCtx, err := f.begin(ctx)
	if err != nil {
		return false
	}
	go f.run(attemptCtx, gen)
	return true
}

// Abandon cancels the running attempt, if any, and returns the flow to
// Ready. Whatever the abandoned attempt produces afterwards is discarded.
// Cancelling the context passed to Unlock or Start has the same effect.
func (f *Flow) Abandon() {
	f.abandon(0)
}

// abandon resets a busy flow to Ready. A non-zero gen restricts it to that
// attempt.
func (f *Flow) abandon(gen uint64) {
	f.mu.Lock()
	if !f.status.State.Busy() || (gen != 0 && gen != f.attempt) {
		f.mu.Unlock()
		return
	}
	from := f.status.State
	f.attempt++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.status = Status{State: StateReady}
	f.enqueue(from, f.status)
	f.mu.Unlock()

	f.logger.Info("unlock attempt abandoned", map[string]any{"from": from.String()})
	f.flush()
}

func (f *Flow) begin(ctx context.Context) (uint64, context.Context, error) {
	f.mu.Lock()
	if f.status.State.Busy() {
		f.mu.Unlock()
		return 0, nil, ErrAttemptInFlight
	}
	from := f.status.State
	f.attempt++
	gen := f.attempt
	attemptCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.status = Status{State: StateFetchingChallenge}
	f.enqueue(from, f.status)
	f.mu.Unlock()

	f.metrics.IncCounter(metrics.EventAttempt, map[string]string{})
	f.logger.Info("unlock attempt started", map[string]any{
		"resource": f.config.Resource,
		"attempt":  gen,
	})
	f.flush()
	return gen, attemptCtx, nil
}

func (f *Flow) run(ctx context.Context, gen uint64) (*types.UnlockResult, error) {
	started := time.Now()

	step := time.Now()
	req, err := f.negotiator.Negotiate(ctx, f.config.Resource)
	f.metrics.ObserveLatency(metrics.StepChallenge, time.Since(step), map[string]string{})
	if err != nil {
		return nil, f.fail(ctx, gen, nil, err)
	}
	labels := map[string]string{"network": req.Network}

	if !f.advance(gen, Status{State: StateAwaitingSignature, Requirement: req}) {
		return nil, ErrAttemptAbandoned
	}

	payment, err := f.sign(ctx, req, labels)
	if err != nil {
		return nil, f.fail(ctx, gen, req, err)
	}

	if !f.advance(gen, Status{State: StateSubmittingPayment, Requirement: req}) {
		return nil, ErrAttemptAbandoned
	}

	step = time.Now()
	result, err := f.submitter.Submit(ctx, f.config.Resource, payment)
	f.metrics.ObserveLatency(metrics.StepSubmit, time.Since(step), labels)
	if err != nil {
		return nil, f.fail(ctx, gen, req, err)
	}

	if !f.advance(gen, Status{State: StateReady, Requirement: req, Result: result}) {
		return nil, ErrAttemptAbandoned
	}

	f.metrics.ObserveLatency(metrics.StepUnlock, time.Since(started), labels)
	f.metrics.IncCounter(metrics.EventSuccess, labels)
	f.logger.Info("resource unlocked", map[string]any{
		"resource": f.config.Resource,
		"network":  req.Network,
		"amount":   req.MaxAmountRequired,
		"duration": time.Since(started).String(),
	})
	return result, nil
}

// sign builds the authorization for req and waits for the signer.
func (f *Flow) sign(ctx context.Context, req *types.PaymentRequirement, labels map[string]string) (*types.SignedPayment, error) {
	td, err := f.encoder.Build(req, f.payer)
	if err != nil {
		return nil, err
	}

	signCtx := ctx
	if f.signTimeout > 0 {
		var cancel context.CancelFunc
		signCtx, cancel = context.WithTimeout(ctx, f.signTimeout)
		defer cancel()
	}

	step := time.Now()
	sig, err := signers.Call(signCtx, f.signer, td.Domain, td.Types, td.Message)
	f.metrics.ObserveLatency(metrics.StepSign, time.Since(step), labels)
	if err != nil {
		return nil, signError(err)
	}
	if len(sig) == 0 {
		return nil, types.NewError(types.ErrUserRejected, "signer returned an empty signature")
	}

	return &types.SignedPayment{
		X402Version: int(types.X402Version1),
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: types.ExactPayload{
			Signature:     sig,
			Authorization: *td.Authorization,
		},
	}, nil
}

func signError(err error) *types.X402Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.WrapError(types.ErrTimeout, err, "signature request timed out")
	case errors.Is(err, signers.ErrSignerUnavailable):
		return types.WrapError(types.ErrSignerUnavailable, err, "signer unavailable")
	default:
		return types.WrapError(types.ErrUserRejected, err, "signature request rejected")
	}
}

// advance moves the flow to next unless the attempt gen was abandoned.
func (f *Flow) advance(gen uint64, next Status) bool {
	f.mu.Lock()
	if gen != f.attempt {
		f.mu.Unlock()
		return false
	}
	from := f.status.State
	f.status = next
	if !next.State.Busy() && f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.enqueue(from, next)
	f.mu.Unlock()

	f.logger.Debug("unlock state changed", map[string]any{
		"from": from.String(),
		"to":   next.State.String(),
	})
	f.flush()
	return true
}

// fail moves attempt gen to Error with err, returning the error to hand to
// the caller. An attempt whose context was cancelled is abandoned instead.
func (f *Flow) fail(ctx context.Context, gen uint64, req *types.PaymentRequirement, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		f.abandon(gen)
		return ErrAttemptAbandoned
	}

	xe := asX402Error(err)
	if !f.advance(gen, Status{State: StateError, Requirement: req, Err: xe}) {
		return ErrAttemptAbandoned
	}

	network := ""
	if req != nil {
		network = req.Network
	}
	f.metrics.IncCounter(metrics.EventFailure, map[string]string{"network": network, "code": xe.Code})
	f.logger.Warn("unlock attempt failed", map[string]any{
		"resource": f.config.Resource,
		"code":     xe.Code,
		"error":    xe,
	})
	return xe
}

func asX402Error(err error) *types.X402Error {
	var xe *types.X402Error
	if errors.As(err, &xe) {
		return xe
	}
	return utils.TransportError("unlock", err)
}

// enqueue records a state change for the transition callback. f.mu must be
// held so that changes queue in the order they were made.
func (f *Flow) enqueue(from State, to Status) {
	if f.onTransition != nil {
		f.pending = append(f.pending, transition{from: from, to: to})
	}
}

// flush delivers queued transitions outside the lock. Only one goroutine
// delivers at a time; others leave their transitions to it, which keeps
// callbacks in order and lets a callback call back into the flow.
func (f *Flow) flush() {
	f.mu.Lock()
	if f.delivering {
		f.mu.Unlock()
		return
	}
	f.delivering = true
	for len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		f.onTransition(next.from, next.to)
		f.mu.Lock()
	}
	f.delivering = false
	f.mu.Unlock()
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = int(types.X402Version1)
)

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	networks := types.SupportedNetworks()
	names := make([]string, len(networks))
	for i, n := range networks {
		names[i] = n.String()
	}

	return map[string]interface{}{
		"library_version":     Version,
		"protocol_version":    ProtocolVersion,
		"supported_networks":  names,
		"supported_schemes":   []string{string(types.SchemeExact)},
		"supported_standards": []string{"eip-3009"},
	}
}

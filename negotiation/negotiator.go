// Package negotiation performs the unpaid request that obtains a 402
// payment challenge and selects the requirement to pay.
package negotiation

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/vitwit/x402-unlock/logger"
	"github.com/vitwit/x402-unlock/types"
	"github.com/vitwit/x402-unlock/utils"
)

// Negotiator fetches payment challenges from a resource server.
type Negotiator struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     logger.Logger
}

type Option func(*Negotiator)

func WithHTTPClient(c *http.Client) Option {
	return func(n *Negotiator) {
		if c != nil {
			n.httpClient = c
		}
	}
}

// WithTimeout bounds the unpaid round trip. Zero means no bound beyond ctx.
func WithTimeout(t time.Duration) Option {
	return func(n *Negotiator) {
		n.timeout = t
	}
}

func WithLogger(l logger.Logger) Option {
	return func(n *Negotiator) {
		n.logger = logger.OrNoop(l)
	}
}

// NewNegotiator creates a negotiator resolving relative resources against baseURL.
func NewNegotiator(baseURL string, opts ...Option) *Negotiator {
	n := &Negotiator{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Negotiate requests resourceURL without payment and returns the first
// offered requirement. Anything but a 402 carrying a usable "exact"
// requirement is an error.
func (n *Negotiator) Negotiate(ctx context.Context, resourceURL string) (*types.PaymentRequirement, error) {
	target, err := utils.ResolveURL(n.baseURL, resourceURL)
	if err != nil {
		return nil, err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, types.WrapError(types.ErrConfigError, err, "failed to create challenge request")
	}
	req.Header.Set("Accept", "application/json")

	n.logger.Debug("requesting payment challenge", map[string]any{"url": target})

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, utils.TransportError("challenge request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, types.UnexpectedStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, utils.MaxBodyBytes))
	if err != nil {
		return nil, utils.TransportError("reading challenge body", err)
	}

	challenge, err := utils.ParsePaymentRequired(body)
	if err != nil {
		return nil, err
	}

	requirements := *challenge.PaymentRequirements
	if len(requirements) == 0 {
		return nil, types.NewError(types.ErrNoAcceptableRequirement, "payment challenge offers no requirements")
	}

	selected := requirements[0]
	if selected.Scheme != string(types.SchemeExact) {
		return nil, &types.X402Error{
			Code:    types.ErrNoAcceptableRequirement,
			Message: "unsupported payment scheme " + selected.Scheme,
			Data:    map[string]interface{}{"scheme": selected.Scheme},
		}
	}

	if err := utils.ValidateRequirement(&selected); err != nil {
		return nil, err
	}

	n.logger.Info("payment challenge received", map[string]any{
		"url":       target,
		"network":   selected.Network,
		"amount":    selected.MaxAmountRequired,
		"recipient": selected.Recipient,
		"offered":   len(requirements),
	})

	return &selected, nil
}

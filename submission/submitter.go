// Package submission retries a paid request with the signed payment and
// interprets the server's verdict.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vitwit/x402-unlock/logger"
	"github.com/vitwit/x402-unlock/types"
	"github.com/vitwit/x402-unlock/utils"
)

// Submitter sends signed payments to a resource server.
type Submitter struct {
	baseURL     string
	resultField string
	httpClient  *http.Client
	timeout     time.Duration
	logger      logger.Logger
}

type Option func(*Submitter)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout bounds the paid round trip. Zero means no bound beyond ctx.
func WithTimeout(t time.Duration) Option {
	return func(s *Submitter) {
		s.timeout = t
	}
}

// WithResultField sets the success body field holding the resource locator.
func WithResultField(field string) Option {
	return func(s *Submitter) {
		if field != "" {
			s.resultField = field
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger.OrNoop(l)
	}
}

func NewSubmitter(baseURL string, opts ...Option) *Submitter {
	s := &Submitter{
		baseURL:     baseURL,
		resultField: types.DefaultResultField,
		httpClient:  http.DefaultClient,
		logger:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// rejectionBody is the error shape returned by resource servers.
type rejectionBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit retries resourceURL with the X-PAYMENT header and returns the
// unlocked resource.
func (s *Submitter) Submit(ctx context.Context, resourceURL string, payment *types.SignedPayment) (*types.UnlockResult, error) {
	target, err := utils.ResolveURL(s.baseURL, resourceURL)
	if err != nil {
		return nil, err
	}

	header, err := utils.EncodePaymentHeader(payment)
	if err != nil {
		return nil, types.WrapError(types.ErrConfigError, err, "failed to encode payment header")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, types.WrapError(types.ErrConfigError, err, "failed to create payment request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(types.PaymentHeader, header)

	s.logger.Debug("submitting payment", map[string]any{
		"url":     target,
		"network": payment.Network,
		"from":    payment.Payload.Authorization.From,
		"value":   payment.Payload.Authorization.Value,
	})

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, utils.TransportError("payment request", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, utils.MaxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// an unreadable rejection is as good as an unparsable one
		if readErr != nil {
			body = nil
		}
		return nil, rejection(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, utils.TransportError("reading payment response", readErr)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, types.WrapError(types.ErrMalformedSuccessResponse, err, "success response is not a JSON object")
	}

	var locator string
	raw, ok := fields[s.resultField]
	if !ok || json.Unmarshal(raw, &locator) != nil || locator == "" {
		return nil, &types.X402Error{
			Code:    types.ErrMalformedSuccessResponse,
			Message: fmt.Sprintf("success response has no %s", s.resultField),
			Status:  resp.StatusCode,
		}
	}

	settlement := utils.DecodeSettlementHeader(resp.Header.Get(types.PaymentResponseHeader))
	if settlement != nil {
		s.logger.Info("payment settled", map[string]any{
			"success":     settlement.Success,
			"transaction": settlement.Transaction,
			"network":     settlement.Network,
		})
	}

	return &types.UnlockResult{
		ResourceURL: locator,
		StatusCode:  resp.StatusCode,
		Settlement:  settlement,
		Payment:     payment,
		Body:        fields,
	}, nil
}

func rejection(status int, body []byte) *types.X402Error {
	var rb rejectionBody
	if err := json.Unmarshal(body, &rb); err == nil {
		if rb.Message != "" {
			return types.PaymentRejectedError(rb.Message, status)
		}
		if rb.Error != "" {
			return types.PaymentRejectedError(rb.Error, status)
		}
	}
	return types.PaymentRejectedError(fmt.Sprintf("payment failed: %d", status), status)
}

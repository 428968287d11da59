package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vitwit/x402-unlock/types"
)

// EncodePaymentHeader converts a SignedPayment to the base64 encoded JSON
// carried in the X-PAYMENT header.
func EncodePaymentHeader(payment *types.SignedPayment) (string, error) {
	if payment == nil {
		return "", fmt.Errorf("payment is nil")
	}
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePaymentHeader is the inverse of EncodePaymentHeader.
func DecodePaymentHeader(encoded string) (*types.SignedPayment, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	var payment types.SignedPayment
	if err := json.Unmarshal(decoded, &payment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}
	return &payment, nil
}

// EncodeSettlementHeader converts a SettleResponse to base64 encoded JSON.
func EncodeSettlementHeader(settlement *types.SettleResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlementHeader decodes an X-PAYMENT-RESPONSE header value.
// Returns nil if the value is empty or cannot be parsed.
func DecodeSettlementHeader(encoded string) *types.SettleResponse {
	if encoded == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	var settlement types.SettleResponse
	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return nil
	}
	return &settlement
}

package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/x402-unlock/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParsePaymentRequired parses the JSON body of a 402 response.
func ParsePaymentRequired(data []byte) (*types.PaymentRequired, error) {
	var body types.PaymentRequired

	if err := json.Unmarshal(data, &body); err != nil {
		return nil, types.WrapError(types.ErrMalformedChallenge, err, "failed to parse payment challenge")
	}

	if body.PaymentRequirements == nil {
		return nil, types.NewError(types.ErrMalformedChallenge, "payment challenge has no paymentRequirements")
	}

	return &body, nil
}

// ValidateRequirement checks that every field needed for signing is present.
// Field contents are not checked here.
func ValidateRequirement(req *types.PaymentRequirement) error {
	if err := validate.Struct(req); err != nil {
		return types.WrapError(types.ErrMalformedChallenge, err, "incomplete payment requirement")
	}
	return nil
}

// ParseClientConfig parses ClientConfig from JSON
func ParseClientConfig(data []byte) (*types.ClientConfig, error) {
	var config types.ClientConfig

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &types.X402Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("failed to parse client config: %v", err),
		}
	}

	if err := ValidateClientConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateClientConfig validates a ClientConfig using its struct tags.
func ValidateClientConfig(config *types.ClientConfig) error {
	if err := validate.Struct(config); err != nil {
		return &types.X402Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return nil
}

package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks if an amount string is a valid, non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ParseAmountWithDecimals parses a decimal amount string and converts it to
// the asset's smallest unit. Amounts with more fractional digits than
// decimals are rejected rather than truncated.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("decimals cannot be negative")
	}

	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}

	// Multiply by 10^decimals to get the raw integer amount
	result := dec.Mul(decimal.New(1, int32(decimals)))
	if !result.Equal(result.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", amount, decimals)
	}

	return result.BigInt(), nil
}

// FormatAmountFromBigInt formats a big.Int amount to decimal string with specified decimals
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}

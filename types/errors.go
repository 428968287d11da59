package types

import (
	"errors"
	"fmt"
)

// Error types
type X402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status,omitempty"`
	Data    interface{} `json:"data,omitempty"`

	Err error `json:"-"`
}

func (e *X402Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *X402Error) Unwrap() error {
	return e.Err
}

// Is matches another *X402Error by code, so errors.Is(err, &X402Error{Code: ErrTimeout})
// works whatever the message.
func (e *X402Error) Is(target error) bool {
	t, ok := target.(*X402Error)
	return ok && t.Code == e.Code
}

// Error codes of an unlock attempt
const (
	ErrUnexpectedStatus         = "UNEXPECTED_STATUS"
	ErrMalformedChallenge       = "MALFORMED_CHALLENGE"
	ErrNoAcceptableRequirement  = "NO_ACCEPTABLE_REQUIREMENT"
	ErrInvalidAmount            = "INVALID_AMOUNT"
	ErrNetworkMismatch          = "NETWORK_MISMATCH"
	ErrUserRejected             = "USER_REJECTED"
	ErrSignerUnavailable        = "SIGNER_UNAVAILABLE"
	ErrPaymentRejected          = "PAYMENT_REJECTED"
	ErrMalformedSuccessResponse = "MALFORMED_SUCCESS_RESPONSE"
	ErrTimeout                  = "TIMEOUT"
	ErrNetworkError             = "NETWORK_ERROR"
	ErrConfigError              = "CONFIG_ERROR"
)

// NewError builds an X402Error with a formatted message.
func NewError(code string, format string, args ...interface{}) *X402Error {
	return &X402Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError builds an X402Error around a cause.
func WrapError(code string, err error, format string, args ...interface{}) *X402Error {
	return &X402Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func UnexpectedStatusError(status int) *X402Error {
	return &X402Error{
		Code:    ErrUnexpectedStatus,
		Message: fmt.Sprintf("expected 402, got %d", status),
		Status:  status,
	}
}

func PaymentRejectedError(message string, status int) *X402Error {
	return &X402Error{
		Code:    ErrPaymentRejected,
		Message: message,
		Status:  status,
	}
}

// ErrorCodeOf returns the X402Error code carried by err, or "" if none.
func ErrorCodeOf(err error) string {
	var xe *X402Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return ErrorCodeOf(err) == code
}

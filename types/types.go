// Package types holds the x402 data model shared by the negotiator, the
// authorization encoder, the signer adapters, the submitter and the flow.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// PaymentScheme represents different payment schemes
type PaymentScheme string

const (
	SchemeExact PaymentScheme = "exact"
)

const (
	// PaymentHeader carries the base64 encoded SignedPayment on the paid retry.
	PaymentHeader = "X-PAYMENT"

	// PaymentResponseHeader optionally carries the settlement result.
	PaymentResponseHeader = "X-PAYMENT-RESPONSE"

	// Domain of the only supported asset (USDC, EIP-3009).
	DefaultTokenName    = "USD Coin"
	DefaultTokenVersion = "2"
	DefaultDecimals     = 6

	// DefaultResultField is the success body field holding the unlocked resource.
	DefaultResultField = "videoUrl"
)

// UnixTime is a unix-seconds timestamp. It decodes from a JSON number or a
// numeric JSON string and always encodes as a number.
type UnixTime uint64

func (t UnixTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(t), 10)), nil
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unix timestamp %s: %w", data, err)
	}
	*t = UnixTime(v)
	return nil
}

func (t UnixTime) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Time converts the timestamp into a time.Time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// PaymentRequirement is one set of terms offered by a resource server in a
// 402 challenge.
type PaymentRequirement struct {
	// Scheme of the payment protocol to use. Only "exact" is supported.
	Scheme string `json:"scheme" validate:"required"`

	// Network the payment must be made on (e.g. "base", "arbitrum-one").
	Network string `json:"network" validate:"required"`

	// Address of the EIP-3009 compliant token contract.
	AssetContract string `json:"assetContract" validate:"required"`

	// Address to which the payment must be sent.
	Recipient string `json:"recipient" validate:"required"`

	// Amount to pay in human units of the asset (e.g. "0.01").
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required"`

	// Deadline of the authorization in unix seconds.
	ValidBefore UnixTime `json:"validBefore" validate:"required"`

	// Decimals of the asset as announced by the server. Amounts are always
	// scaled by DefaultDecimals; any other announced value is refused.
	Decimals *int `json:"decimals,omitempty"`

	Resource    string                 `json:"resource,omitempty"`
	Description string                 `json:"description,omitempty"`
	MimeType    string                 `json:"mimeType,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequired is the JSON body of a 402 response.
type PaymentRequired struct {
	X402Version int    `json:"x402Version,omitempty"`
	Error       string `json:"error,omitempty"`

	// PaymentRequirements is nil when the key is absent or null, which is
	// distinct from an empty list.
	PaymentRequirements *[]PaymentRequirement `json:"paymentRequirements"`
}

// Authorization holds the EIP-3009 transferWithAuthorization parameters.
type Authorization struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"` // uint256, smallest token unit

	ValidAfter  UnixTime `json:"validAfter"`
	ValidBefore UnixTime `json:"validBefore"`

	Nonce         common.Hash `json:"nonce"` // bytes32
	TokenContract string      `json:"tokenContract"`
}

// ExactPayload is the scheme specific part of a SignedPayment.
type ExactPayload struct {
	Signature     hexutil.Bytes `json:"signature"`
	Authorization Authorization `json:"authorization"`
}

// SignedPayment is the artifact sent back to the server in the X-PAYMENT header.
type SignedPayment struct {
	X402Version int          `json:"x402Version"`
	Scheme      string       `json:"scheme"`
	Network     string       `json:"network"`
	Payload     ExactPayload `json:"payload"`
}

// SettleResponse is the optional settlement result in X-PAYMENT-RESPONSE.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

// UnlockResult is delivered once the whole challenge, sign, submit pipeline
// completed.
type UnlockResult struct {
	// ResourceURL is the locator returned by the server (e.g. a video URL).
	ResourceURL string `json:"resourceUrl"`

	StatusCode int             `json:"statusCode"`
	Settlement *SettleResponse `json:"settlement,omitempty"`
	Payment    *SignedPayment  `json:"payment,omitempty"`

	// Body is the decoded success body, kept for callers needing other fields.
	Body map[string]json.RawMessage `json:"-"`
}

// ClientConfig contains configuration for an unlock flow.
type ClientConfig struct {
	// BaseURL of the paid service. Relative resources are resolved against it.
	BaseURL string `json:"baseUrl,omitempty" validate:"omitempty,url"`

	// Resource is the paid resource, absolute or relative to BaseURL.
	Resource string `json:"resource" validate:"required"`

	// ChainID of the connected wallet. Zero derives it from the requirement.
	ChainID int64 `json:"chainId,omitempty" validate:"gte=0"`

	RequestTimeout time.Duration `json:"requestTimeout,omitempty" validate:"gte=0"`
	SignTimeout    time.Duration `json:"signTimeout,omitempty" validate:"gte=0"`

	TokenName    string `json:"tokenName,omitempty"`
	TokenVersion string `json:"tokenVersion,omitempty"`
	ResultField  string `json:"resultField,omitempty"`

	LogLevel      string `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}

// WithDefaults returns a copy of the config with empty fields defaulted.
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.TokenName == "" {
		c.TokenName = DefaultTokenName
	}
	if c.TokenVersion == "" {
		c.TokenVersion = DefaultTokenVersion
	}
	if c.ResultField == "" {
		c.ResultField = DefaultResultField
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

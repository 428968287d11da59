package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnixTime_JSON(t *testing.T) {
	var v struct {
		At UnixTime `json:"at"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"at":9999999999}`), &v))
	assert.Equal(t, UnixTime(9999999999), v.At)

	require.NoError(t, json.Unmarshal([]byte(`{"at":"1700000000"}`), &v))
	assert.Equal(t, UnixTime(1700000000), v.At)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"at":-1}`), &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":1700000000}`, string(out))
}

func TestSignedPayment_WireFormat(t *testing.T) {
	p := SignedPayment{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base",
		Payload: ExactPayload{
			Signature: []byte{0xde, 0xad, 0xbe, 0xef},
			Authorization: Authorization{
				From:          "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				To:            "0xRecip",
				Value:         "10000",
				ValidAfter:    0,
				ValidBefore:   9999999999,
				Nonce:         common.HexToHash("0x01"),
				TokenContract: "0xA0b8",
			},
		},
	}

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"x402Version": 1,
		"scheme": "exact",
		"network": "base",
		"payload": {
			"signature": "0xdeadbeef",
			"authorization": {
				"from": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				"to": "0xRecip",
				"value": "10000",
				"validAfter": 0,
				"validBefore": 9999999999,
				"nonce": "0x0000000000000000000000000000000000000000000000000000000000000001",
				"tokenContract": "0xA0b8"
			}
		}
	}`, string(out))
}

func TestPaymentRequirement_Decimals(t *testing.T) {
	var req PaymentRequirement
	require.NoError(t, json.Unmarshal([]byte(`{"maxAmountRequired":"0.01"}`), &req))
	assert.Nil(t, req.Decimals)

	require.NoError(t, json.Unmarshal([]byte(`{"maxAmountRequired":"0.01","decimals":18}`), &req))
	require.NotNil(t, req.Decimals)
	assert.Equal(t, 18, *req.Decimals)
}

func TestNetwork_ChainID(t *testing.T) {
	tests := []struct {
		network Network
		want    int64
		ok      bool
	}{
		{"base", 8453, true},
		{"base-sepolia", 84532, true},
		{"arbitrum-one", 42161, true},
		{"ethereum", 1, true},
		{"eip155:10", 10, true},
		{"eip155:abc", 0, false},
		{"eip155:0", 0, false},
		{"BASE", 0, false},
		{"solana", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := tt.network.ChainID()
		assert.Equal(t, tt.ok, ok, tt.network)
		assert.Equal(t, tt.want, got, tt.network)
	}

	assert.True(t, NetworkBaseSepolia.IsTestnet())
	assert.False(t, NetworkArbitrumOne.IsTestnet())
	assert.True(t, NetworkPolygon.IsEVM())
	assert.Contains(t, SupportedNetworks(), NetworkArbitrumOne)
}

func TestX402Error(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapError(ErrNetworkError, cause, "challenge request failed")

	assert.Equal(t, "challenge request failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &X402Error{Code: ErrNetworkError})
	assert.NotErrorIs(t, err, &X402Error{Code: ErrTimeout})

	wrapped := fmt.Errorf("attempt: %w", err)
	assert.Equal(t, ErrNetworkError, ErrorCodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrNetworkError))
	assert.Equal(t, "", ErrorCodeOf(cause))

	status := UnexpectedStatusError(200)
	assert.Equal(t, "expected 402, got 200", status.Error())
	assert.Equal(t, 200, status.Status)

	rejected := PaymentRejectedError("Insufficient funds", 402)
	assert.Equal(t, ErrPaymentRejected, rejected.Code)
	assert.Equal(t, "Insufficient funds", rejected.Error())
}

func TestClientConfig_WithDefaults(t *testing.T) {
	cfg := ClientConfig{Resource: "/api/unlock-video"}.WithDefaults()
	assert.Equal(t, DefaultTokenName, cfg.TokenName)
	assert.Equal(t, DefaultTokenVersion, cfg.TokenVersion)
	assert.Equal(t, DefaultResultField, cfg.ResultField)
	assert.Equal(t, "info", cfg.LogLevel)

	custom := ClientConfig{TokenName: "USDC", ResultField: "contentUrl"}.WithDefaults()
	assert.Equal(t, "USDC", custom.TokenName)
	assert.Equal(t, "contentUrl", custom.ResultField)
}

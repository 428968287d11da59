// Package authorization builds EIP-3009 transfer authorizations for a
// payment requirement, together with the EIP-712 typed data a wallet signs
// for them.
package authorization

import (
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402-unlock/logger"
	"github.com/vitwit/x402-unlock/types"
	"github.com/vitwit/x402-unlock/utils"
	"github.com/vitwit/x402-unlock/utils/eip712"
)

// TypedDataRequest is everything a signer needs for one authorization.
type TypedDataRequest struct {
	Domain      apitypes.TypedDataDomain
	Types       apitypes.Types
	PrimaryType string
	Message     apitypes.TypedDataMessage

	ChainID       int64
	Authorization *types.Authorization
}

// TypedData assembles the request into a go-ethereum TypedData.
func (r *TypedDataRequest) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types:       r.Types,
		PrimaryType: r.PrimaryType,
		Domain:      r.Domain,
		Message:     r.Message,
	}
}

// Encoder turns payment requirements into authorizations. It is safe for
// concurrent use.
type Encoder struct {
	tokenName    string
	tokenVersion string
	chainID      int64
	nonces       NonceSource
	clock        Clock
	logger       logger.Logger
}

type Option func(*Encoder)

// WithChainID pins the chain the signer is connected to. Requirements for
// any other chain fail with NetworkMismatch.
func WithChainID(chainID int64) Option {
	return func(e *Encoder) {
		e.chainID = chainID
	}
}

func WithTokenDomain(name, version string) Option {
	return func(e *Encoder) {
		if name != "" {
			e.tokenName = name
		}
		if version != "" {
			e.tokenVersion = version
		}
	}
}

func WithNonceSource(n NonceSource) Option {
	return func(e *Encoder) {
		if n != nil {
			e.nonces = n
		}
	}
}

func WithClock(c Clock) Option {
	return func(e *Encoder) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Encoder) {
		e.logger = logger.OrNoop(l)
	}
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		tokenName:    types.DefaultTokenName,
		tokenVersion: types.DefaultTokenVersion,
		nonces:       KeccakNonce{},
		clock:        time.Now,
		logger:       logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildAuthorization builds the authorization for req paid by payer, using
// the default nonce source.
func BuildAuthorization(req *types.PaymentRequirement, payer string, clock Clock) (*types.Authorization, error) {
	return NewEncoder(WithClock(clock)).Authorization(req, payer)
}

// Authorization derives value and nonce for req. The amount is scaled by
// six decimals, validBefore is copied from the requirement and validAfter is
// zero.
func (e *Encoder) Authorization(req *types.PaymentRequirement, payer string) (*types.Authorization, error) {
	if req == nil {
		return nil, types.NewError(types.ErrMalformedChallenge, "payment requirement is nil")
	}
	if payer == "" {
		return nil, types.NewError(types.ErrConfigError, "payer address is empty")
	}

	if req.Decimals != nil && *req.Decimals != types.DefaultDecimals {
		return nil, types.NewError(types.ErrInvalidAmount, "unsupported asset decimals %d, want %d", *req.Decimals, types.DefaultDecimals)
	}

	value, err := utils.ParseAmountWithDecimals(req.MaxAmountRequired, types.DefaultDecimals)
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidAmount, err, "invalid amount %q", req.MaxAmountRequired)
	}

	nonce, err := e.nonces.Nonce(e.clock())
	if err != nil {
		return nil, types.WrapError(types.ErrConfigError, err, "failed to generate nonce")
	}

	return &types.Authorization{
		From:          payer,
		To:            req.Recipient,
		Value:         value.String(),
		ValidAfter:    0,
		ValidBefore:   req.ValidBefore,
		Nonce:         nonce,
		TokenContract: req.AssetContract,
	}, nil
}

// ChainID maps network to its chain id and checks it against the pinned
// chain, if any.
func (e *Encoder) ChainID(network string) (int64, error) {
	chainID, ok := types.Network(network).ChainID()
	if !ok {
		return 0, types.NewError(types.ErrNetworkMismatch, "network %q has no known chain id", network)
	}

	if e.chainID != 0 && chainID != e.chainID {
		return 0, &types.X402Error{
			Code:    types.ErrNetworkMismatch,
			Message: "requirement network does not match the signer chain",
			Data: map[string]interface{}{
				"network":         network,
				"networkChainId":  chainID,
				"expectedChainId": e.chainID,
			},
		}
	}
	return chainID, nil
}

// Build checks the network, then builds the authorization and its typed data.
func (e *Encoder) Build(req *types.PaymentRequirement, payer string) (*TypedDataRequest, error) {
	if req == nil {
		return nil, types.NewError(types.ErrMalformedChallenge, "payment requirement is nil")
	}

	chainID, err := e.ChainID(req.Network)
	if err != nil {
		return nil, err
	}

	auth, err := e.Authorization(req, payer)
	if err != nil {
		return nil, err
	}

	domain := eip712.Domain{
		Name:              e.tokenName,
		Version:           e.tokenVersion,
		ChainID:           chainID,
		VerifyingContract: req.AssetContract,
	}

	e.logger.Debug("built transfer authorization", map[string]any{
		"network":     req.Network,
		"chainId":     chainID,
		"value":       auth.Value,
		"validBefore": auth.ValidBefore.String(),
		"nonce":       auth.Nonce.Hex(),
	})

	return &TypedDataRequest{
		Domain:        domain.TypedDataDomain(),
		Types:         eip712.Types(),
		PrimaryType:   eip712.PrimaryType,
		Message:       eip712.Message(auth),
		ChainID:       chainID,
		Authorization: auth,
	}, nil
}

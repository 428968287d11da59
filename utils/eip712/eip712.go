// Package eip712 describes the EIP-712 typed data signed for an EIP-3009
// transferWithAuthorization and computes its digest.
package eip712

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402-unlock/types"
)

const (
	DomainType  = "EIP712Domain"
	PrimaryType = "TransferWithAuthorization"
)

// EIP3009Type is the encoded type string of the primary type.
const EIP3009Type = "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"

// Domain is the EIP-712 domain of the token contract.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// TypedDataDomain converts the domain to its go-ethereum form.
func (d Domain) TypedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(big.NewInt(d.ChainID)),
		VerifyingContract: d.VerifyingContract,
	}
}

// Types returns a fresh copy of the type schema; callers may mutate it.
func Types() apitypes.Types {
	return apitypes.Types{
		DomainType: []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		PrimaryType: []apitypes.Type{
			{Name: "from", Type: "address"},
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
			{Name: "nonce", Type: "bytes32"},
		},
	}
}

// Message builds the typed-data message of an authorization. Addresses are
// passed through as given so that malformed ones fail at hashing time.
func Message(auth *types.Authorization) apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"from":        auth.From,
		"to":          auth.To,
		"value":       auth.Value,
		"validAfter":  auth.ValidAfter.String(),
		"validBefore": auth.ValidBefore.String(),
		"nonce":       auth.Nonce.Hex(),
	}
}

// PrimaryTypeOf returns the single non-domain type of a schema.
func PrimaryTypeOf(schema apitypes.Types) (string, error) {
	primary := ""
	for name := range schema {
		if name == DomainType {
			continue
		}
		if primary != "" {
			return "", fmt.Errorf("ambiguous primary type: %s and %s", primary, name)
		}
		primary = name
	}
	if primary == "" {
		return "", errors.New("schema has no primary type")
	}
	return primary, nil
}

// Digest returns keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func Digest(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := td.HashStruct(DomainType, td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256(rawData), nil
}

// RecoverSigner recovers the Ethereum address that signed the given digest.
// sig must be 65 bytes (R||S||V). V may be 0/1 or 27/28.
func RecoverSigner(digest []byte, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}

	// copy to avoid mutating caller slice
	s := make([]byte, 65)
	copy(s, sig)

	if s[64] >= 27 {
		s[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("sig to pub failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

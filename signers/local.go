package signers

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402-unlock/utils"
	"github.com/vitwit/x402-unlock/utils/eip712"
)

// LocalSigner signs with an in-process private key. It never prompts, so it
// suits servers, scripts and tests.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := utils.PrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewLocalSignerFromKey(key), nil
}

func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		privateKey: key,
		address:    utils.AddressFromPrivateKey(key),
	}
}

// Address returns the checksummed address of the key.
func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

func (s *LocalSigner) SignTypedData(ctx context.Context, domain apitypes.TypedDataDomain, types apitypes.Types, message apitypes.TypedDataMessage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	primaryType, err := eip712.PrimaryTypeOf(types)
	if err != nil {
		return nil, err
	}

	digest, err := eip712.Digest(apitypes.TypedData{
		Types:       types,
		PrimaryType: primaryType,
		Domain:      domain,
		Message:     message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	return utils.SignHash(digest, s.privateKey)
}

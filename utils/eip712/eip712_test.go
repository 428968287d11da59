package eip712

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402-unlock/types"
)

const domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

func word(i *big.Int) []byte {
	return common.LeftPadBytes(i.Bytes(), 32)
}

func addressWord(hex string) []byte {
	return common.LeftPadBytes(common.HexToAddress(hex).Bytes(), 32)
}

// manualDigest encodes domain and struct by hand, word by word.
func manualDigest(d Domain, auth *types.Authorization) []byte {
	value, _ := new(big.Int).SetString(auth.Value, 10)

	domainSep := crypto.Keccak256(
		crypto.Keccak256([]byte(domainTypeString)),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		word(big.NewInt(d.ChainID)),
		addressWord(d.VerifyingContract),
	)

	structHash := crypto.Keccak256(
		crypto.Keccak256([]byte(EIP3009Type)),
		addressWord(auth.From),
		addressWord(auth.To),
		word(value),
		word(new(big.Int).SetUint64(uint64(auth.ValidAfter))),
		word(new(big.Int).SetUint64(uint64(auth.ValidBefore))),
		auth.Nonce.Bytes(),
	)

	return crypto.Keccak256([]byte{0x19, 0x01}, domainSep, structHash)
}

func testAuthorization() *types.Authorization {
	return &types.Authorization{
		From:          "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:            "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Value:         "10000",
		ValidAfter:    0,
		ValidBefore:   9999999999,
		Nonce:         crypto.Keccak256Hash([]byte("nonce")),
		TokenContract: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
	}
}

func TestDigest_MatchesManualEncoding(t *testing.T) {
	auth := testAuthorization()
	domain := Domain{
		Name:              types.DefaultTokenName,
		Version:           types.DefaultTokenVersion,
		ChainID:           42161,
		VerifyingContract: auth.TokenContract,
	}

	td := apitypes.TypedData{
		Types:       Types(),
		PrimaryType: PrimaryType,
		Domain:      domain.TypedDataDomain(),
		Message:     Message(auth),
	}

	got, err := Digest(td)
	require.NoError(t, err)
	assert.Equal(t, manualDigest(domain, auth), got)
}

func TestDigest_ChangesWithChain(t *testing.T) {
	auth := testAuthorization()
	build := func(chainID int64) []byte {
		d := Domain{Name: "USD Coin", Version: "2", ChainID: chainID, VerifyingContract: auth.TokenContract}
		digest, err := Digest(apitypes.TypedData{
			Types:       Types(),
			PrimaryType: PrimaryType,
			Domain:      d.TypedDataDomain(),
			Message:     Message(auth),
		})
		require.NoError(t, err)
		return digest
	}

	assert.NotEqual(t, build(8453), build(42161))
}

func TestDigest_RejectsMalformedAddress(t *testing.T) {
	auth := testAuthorization()
	auth.To = "0xRecip"

	d := Domain{Name: "USD Coin", Version: "2", ChainID: 8453, VerifyingContract: auth.TokenContract}
	_, err := Digest(apitypes.TypedData{
		Types:       Types(),
		PrimaryType: PrimaryType,
		Domain:      d.TypedDataDomain(),
		Message:     Message(auth),
	})
	assert.Error(t, err)
}

func TestTypeString(t *testing.T) {
	td := apitypes.TypedData{Types: Types()}
	assert.Equal(t, EIP3009Type, string(td.EncodeType(PrimaryType)))
}

func TestPrimaryTypeOf(t *testing.T) {
	name, err := PrimaryTypeOf(Types())
	require.NoError(t, err)
	assert.Equal(t, PrimaryType, name)

	_, err = PrimaryTypeOf(apitypes.Types{DomainType: nil})
	assert.Error(t, err)

	ambiguous := Types()
	ambiguous["Permit"] = []apitypes.Type{{Name: "owner", Type: "address"}}
	_, err = PrimaryTypeOf(ambiguous)
	assert.Error(t, err)
}

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := crypto.Keccak256([]byte("payload"))

	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	addr, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	// wallet style V
	sig[64] += 27
	v := sig[64]
	addr, err = RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
	assert.Equal(t, v, sig[64], "caller slice must not be modified")

	_, err = RecoverSigner(digest, sig[:64])
	assert.Error(t, err)
}

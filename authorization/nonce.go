package authorization

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Clock returns the current time. It is injected so tests can freeze it.
type Clock func() time.Time

// NonceSource produces the 32-byte EIP-3009 nonce of an authorization.
type NonceSource interface {
	Nonce(now time.Time) (common.Hash, error)
}

// NonceFunc adapts a function to NonceSource.
type NonceFunc func(now time.Time) (common.Hash, error)

func (f NonceFunc) Nonce(now time.Time) (common.Hash, error) {
	return f(now)
}

var nonceCounter atomic.Uint64

// KeccakNonce hashes the clock milliseconds, a process-wide counter and 16
// random bytes. The counter keeps nonces distinct within one millisecond
// even if the random source were to repeat.
type KeccakNonce struct{}

func (KeccakNonce) Nonce(now time.Time) (common.Hash, error) {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(now.UnixMilli()))
	binary.BigEndian.PutUint64(buf[8:16], nonceCounter.Add(1))
	if _, err := rand.Read(buf[16:]); err != nil {
		return common.Hash{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return crypto.Keccak256Hash(buf[:]), nil
}

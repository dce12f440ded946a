package accounts

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultActivationKeyTTL is the activation key lifetime.
	DefaultActivationKeyTTL = 10 * time.Minute
	// DefaultResetKeyTTL is the password reset key lifetime.
	DefaultResetKeyTTL = 24 * time.Hour

	activationKeySpace = 1000000
)

// RandomSource draws activation keys. *math/rand/v2.Rand satisfies it, so
// tests can pass a seeded generator.
type RandomSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return binary.LittleEndian.Uint64(b[:])
}

// NewCryptoRandomSource returns a RandomSource backed by crypto/rand.
func NewCryptoRandomSource() RandomSource {
	return rand.New(cryptoSource{})
}

// NewSeededRandomSource returns a deterministic RandomSource.
func NewSeededRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedSource serializes access to sources that are not safe for
// concurrent use, such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func newLockedSource(src RandomSource) RandomSource {
	if src == nil {
		src = NewCryptoRandomSource()
	}
	if l, ok := src.(*lockedSource); ok {
		return l
	}
	return &lockedSource{src: src}
}

// generateKey draws a zero padded six digit key in [000000, 999999] and the
// expiry for a key issued at now.
func generateKey(src RandomSource, now time.Time, ttl time.Duration) (string, time.Time) {
	return fmt.Sprintf("%06d", src.IntN(activationKeySpace)), now.Add(ttl)
}

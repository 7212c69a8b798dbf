package random

import (
	"crypto/rand"
	"math/big"
)

// Random provides random number generation that can be mocked for
// testing, most importantly for deterministic board generation.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// Shuffle randomizes the order of n elements via swap
	Shuffle(n int, swap func(i, j int))
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// Should never happen with crypto/rand
		return 0
	}
	return int(result.Int64())
}

// Shuffle performs a Fisher-Yates shuffle over n elements
func (r *CryptoRandom) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, r.Intn(i+1))
	}
}

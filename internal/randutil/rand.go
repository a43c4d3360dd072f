// Package randutil centralises how random generators are constructed so that
// production shuffles and reproducible test deals share one code path.
package randutil

import (
	crand "crypto/rand"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Tests and replays use it to reproduce a deal exactly.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewSecure returns a ChaCha8 generator keyed from crypto/rand. Each table
// hand uses a fresh one so the shuffle cannot be predicted from earlier deals.
func NewSecure() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("randutil: reading crypto seed: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Source builds generators for hands. Tables take one so tests can inject
// deterministic deals.
type Source func() *rand.Rand

// Seeded returns a Source that yields a new deterministic generator per call,
// advancing the seed each time.
func Seeded(seed int64) Source {
	next := seed
	return func() *rand.Rand {
		r := New(next)
		next++
		return r
	}
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

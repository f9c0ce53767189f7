package lifecycle

import (
	"math/rand"
	"sync"
)

// RandomSource supplies the jitter used by the grace-period calculation and
// the backoff policy. It is injected so tests can make jitter deterministic.
type RandomSource interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// MathRandom is a RandomSource backed by math/rand, safe for concurrent use
// by a single runner goroutine calling it from multiple helper calls.
type MathRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMathRandom returns a RandomSource seeded with seed. Tests should pass a
// fixed seed for reproducibility; production callers seed from the clock.
func NewMathRandom(seed int64) *MathRandom {
	return &MathRandom{rnd: rand.New(rand.NewSource(seed))}
}

// Float64 implements RandomSource.
func (m *MathRandom) Float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rnd.Float64()
}

// FixedRandom is a RandomSource that always returns the same value. Useful
// in tests that want to pin jitter to its minimum or maximum extreme.
type FixedRandom struct {
	Value float64
}

// Float64 implements RandomSource.
func (f FixedRandom) Float64() float64 {
	return f.Value
}

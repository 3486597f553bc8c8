package rng

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// FallbackLabel names the fixed root used when a caller forks from a source
// that was never seeded.
const FallbackLabel = "rng:fallback-root"

// fallbackForks counts, process-wide, forks that went through the fallback
// root. Per-session counts live on Scopes.
var fallbackForks atomic.Int64

// FallbackForks reports how many forks in this process were served by the
// fallback root.
func FallbackForks() int64 {
	return fallbackForks.Load()
}

// Source is a SplitMix64 generator. The whole state is one word, so a source
// can be captured with Seed and rewound with Reset.
// Not safe for concurrent use; owned by the game loop.
type Source struct {
	state  uint64
	seeded bool
}

// New returns a source seeded with seed.
func New(seed uint64) *Source {
	return &Source{state: seed, seeded: true}
}

// NewLabeled returns a source whose seed is derived from a label alone.
func NewLabeled(label string) *Source {
	return New(mix(xxhash.Sum64String(label)))
}

// Seeded reports whether the source has been seeded.
func (s *Source) Seeded() bool {
	return s != nil && s.seeded
}

// Seed returns the current state. Passing it to Reset continues the stream
// from exactly this point.
func (s *Source) Seed() uint64 {
	return s.state
}

// Reset rewinds the source to the start of the sequence for seed.
func (s *Source) Reset(seed uint64) {
	s.state = seed
	s.seeded = true
}

func (s *Source) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	return mix(s.state)
}

func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

// Range returns a value in [min, max).
func (s *Source) Range(min, max float64) float64 {
	return min + s.Float()*(max-min)
}

// Int returns a value in [min, max], both inclusive. One draw is always
// consumed, even for an empty or single-value range.
func (s *Source) Int(min, max int) int {
	f := s.Float()
	if max <= min {
		return min
	}
	n := max - min + 1
	v := int(f * float64(n))
	if v >= n {
		v = n - 1
	}
	return min + v
}

// Chance returns true with probability p. Always consumes one draw.
func (s *Source) Chance(p float64) bool {
	return s.Float() < p
}

// Pick returns a uniformly chosen element of items. The second result is
// false for an empty list, in which case no draw is consumed.
func Pick[T any](s *Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.Int(0, len(items)-1)], true
}

// Fork derives an independent child stream from the current state and label.
// The parent stream is not advanced, so identical (state, label) pairs always
// give identical children.
//
// Forking an unseeded source falls back to a root derived from FallbackLabel
// and is counted in FallbackForks.
func (s *Source) Fork(label string) *Source {
	if !s.Seeded() {
		fallbackForks.Add(1)
		return NewLabeled(FallbackLabel).Fork(label)
	}
	return New(mix(s.state ^ xxhash.Sum64String(label)))
}

package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func draw(s *Source, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Float()
	}
	return out
}

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(2025), New(2025)
	assert.Equal(t, draw(a, 64), draw(b, 64))
	assert.NotEqual(t, draw(New(1), 8), draw(New(2), 8))
}

func TestFloatBounds(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		f := s.Float()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestIntInclusive(t *testing.T) {
	s := New(99)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := s.Int(-2, 2)
		require.GreaterOrEqual(t, v, -2)
		require.LessOrEqual(t, v, 2)
		seen[v] = true
	}
	assert.Len(t, seen, 5)

	before := s.Seed()
	assert.Equal(t, 3, s.Int(3, 3))
	assert.NotEqual(t, before, s.Seed(), "degenerate range still consumes a draw")
}

func TestRangeAndChance(t *testing.T) {
	s := New(3)
	for i := 0; i < 500; i++ {
		v := s.Range(10, 20)
		require.GreaterOrEqual(t, v, 10.0)
		require.Less(t, v, 20.0)
	}
	assert.False(t, s.Chance(0))
	assert.True(t, s.Chance(1))
}

func TestPick(t *testing.T) {
	s := New(11)
	_, ok := Pick[string](s, nil)
	assert.False(t, ok)

	items := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		v, ok := Pick(s, items)
		require.True(t, ok)
		assert.Contains(t, items, v)
	}
}

func TestForkDoesNotPerturbParent(t *testing.T) {
	a, b := New(42), New(42)
	_ = a.Fork("spawn")
	_ = a.Fork("variants")
	assert.Equal(t, draw(b, 16), draw(a, 16))
}

func TestForkIsDeterministicPerLabel(t *testing.T) {
	p := New(42)
	assert.Equal(t, draw(p.Fork("x"), 8), draw(p.Fork("x"), 8))
	assert.NotEqual(t, draw(p.Fork("x"), 8), draw(p.Fork("y"), 8))
}

func TestResetRewinds(t *testing.T) {
	s := New(5)
	mark := s.Seed()
	first := draw(s, 10)
	s.Reset(mark)
	assert.Equal(t, first, draw(s, 10))
}

func TestForkUnseededFallsBack(t *testing.T) {
	before := FallbackForks()
	var nilSrc *Source
	child := nilSrc.Fork("spawn")
	require.NotNil(t, child)
	assert.True(t, child.Seeded())
	assert.Equal(t, before+1, FallbackForks())

	var zero Source
	again := zero.Fork("spawn")
	assert.Equal(t, child.Seed(), again.Seed())
	assert.Equal(t, before+2, FallbackForks())
}

func TestScopesCaptureRestore(t *testing.T) {
	sc := NewScopes(2025, zap.NewNop())
	sc.Get(ScopeSpawn).Float()
	sc.Get(ScopeVariants).Float()
	sc.Sub(ScopeEntities)
	sc.Sub(ScopeEntities)

	captured := sc.Capture()
	require.Len(t, captured, len(DefaultScopes))

	wantSpawn := draw(sc.Get(ScopeSpawn), 5)
	wantChild := sc.Sub(ScopeEntities).Seed()

	other := NewScopes(1, zap.NewNop())
	require.NoError(t, other.Restore(2025, captured))
	assert.Equal(t, wantSpawn, draw(other.Get(ScopeSpawn), 5))
	assert.Equal(t, wantChild, other.Sub(ScopeEntities).Seed())
	assert.Equal(t, uint64(3), other.Sequence(ScopeEntities))
}

func TestScopesRestoreRejectsMissing(t *testing.T) {
	sc := NewScopes(2025, zap.NewNop())
	captured := sc.Capture()[:2]
	before := sc.Capture()
	assert.Error(t, sc.Restore(2025, captured))
	assert.Equal(t, before, sc.Capture())
}

func TestScopesAreIndependent(t *testing.T) {
	a := NewScopes(77, zap.NewNop())
	b := NewScopes(77, zap.NewNop())

	// Heavy fragment activity on a must not shift a's spawn stream.
	for i := 0; i < 100; i++ {
		a.Get(ScopeFragments).Float()
	}
	assert.Equal(t, draw(b.Get(ScopeSpawn), 10), draw(a.Get(ScopeSpawn), 10))
}

func TestScopesResetRestartsStreams(t *testing.T) {
	sc := NewScopes(9, zap.NewNop())
	first := draw(sc.Get(ScopeSpawn), 4)
	sc.Sub(ScopeEntities)
	sc.Reset(9)
	assert.Equal(t, first, draw(sc.Get(ScopeSpawn), 4))
	assert.Zero(t, sc.Sequence(ScopeEntities))
}

func TestScopesCountOwnFallbacks(t *testing.T) {
	a := NewScopes(1, zap.NewNop())
	b := NewScopes(1, zap.NewNop())

	a.root = &Source{} // lost its seed
	a.Get("debris")
	a.Sub("debris")
	assert.Equal(t, int64(1), a.FallbackForks())
	assert.Zero(t, b.FallbackForks())

	a.Reset(1)
	assert.Zero(t, a.FallbackForks())
}

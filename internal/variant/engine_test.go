package variant

import (
	"path/filepath"
	"testing"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/data"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func shippedEngine(t *testing.T) *Engine {
	t.Helper()
	tbl, err := data.LoadVariantTable(filepath.Join("..", "..", "data", "yaml", "variants.yaml"))
	require.NoError(t, err)
	return NewEngine(tbl, zap.NewNop())
}

const alwaysRare = `
common: common
dense: dense
dense_fragment: { start_wave: 1, base_chance: 1.0 }
sizes:
  large:
    base_chance: 1.0
    weights:
      - { variant: a, weight: 1 }
      - { variant: late, weight: 1 }
  medium:
    base_chance: 1.0
    weights:
      - { variant: a, weight: 1 }
      - { variant: dense, weight: 5 }
variants:
  - { id: common, sizes: [large, medium, small] }
  - { id: a, sizes: [large, medium], unlock_wave: 1 }
  - { id: late, sizes: [large], unlock_wave: 5 }
  - { id: dense, sizes: [medium], unlock_wave: 1 }
`

func engineFrom(t *testing.T, doc string) *Engine {
	t.Helper()
	tbl, err := data.ParseVariantTable([]byte(doc))
	require.NoError(t, err)
	return NewEngine(tbl, zap.NewNop())
}

func TestDecideEligibility(t *testing.T) {
	e := shippedEngine(t)
	src := rng.New(2025)
	for wave := 1; wave <= 12; wave++ {
		for _, size := range component.Sizes {
			for i := 0; i < 300; i++ {
				id := e.Decide(size, Context{Wave: wave}, src)
				require.Truef(t, e.Allowed(id, size, wave), "%s on %s at wave %d", id, size, wave)
			}
		}
	}
}

func TestDecideRespectsUnlockWave(t *testing.T) {
	e := engineFrom(t, alwaysRare)
	src := rng.New(1)
	for i := 0; i < 200; i++ {
		assert.Equal(t, ID("a"), e.Decide(component.SizeLarge, Context{Wave: 1}, src))
	}
	seenLate := false
	for i := 0; i < 200; i++ {
		if e.Decide(component.SizeLarge, Context{Wave: 5}, src) == "late" {
			seenLate = true
		}
	}
	assert.True(t, seenLate)
}

func TestDecideExclusionFallsBackToCommon(t *testing.T) {
	e := engineFrom(t, alwaysRare)
	src := rng.New(3)
	id := e.Decide(component.SizeLarge, Context{Wave: 1, Exclude: []ID{"a"}}, src)
	assert.Equal(t, e.Common(), id, "no eligible variant left")
}

func TestDecideIsReproducible(t *testing.T) {
	e := shippedEngine(t)
	run := func() []ID {
		src := rng.New(99)
		var out []ID
		for i := 0; i < 100; i++ {
			out = append(out, e.Decide(component.Sizes[i%3], Context{Wave: 1 + i%8}, src))
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestMissingRuleUsesCommon(t *testing.T) {
	e := NewEngine(nil, zap.NewNop())
	src := rng.New(1)
	before := src.Seed()
	assert.Equal(t, DefaultCommon, e.Decide(component.SizeLarge, Context{Wave: 3}, src))
	assert.Equal(t, before, src.Seed())
	assert.Zero(t, e.WaveBonus(10))
	assert.Zero(t, e.DenseChance(10))
	assert.Equal(t, 1.0, e.Def("anything").Health)
}

func TestWaveBonusMonotonicAndCapped(t *testing.T) {
	e := shippedEngine(t)
	assert.Zero(t, e.WaveBonus(1))
	assert.Zero(t, e.WaveBonus(2))
	prev := 0.0
	for w := 3; w < 40; w++ {
		b := e.WaveBonus(w)
		assert.GreaterOrEqual(t, b, prev)
		assert.LessOrEqual(t, b, 0.15)
		prev = b
	}
	assert.InDelta(t, 0.15, e.WaveBonus(40), 1e-9)
}

func TestDenseFragmentExclusivity(t *testing.T) {
	e := engineFrom(t, alwaysRare)
	src := rng.New(2025)
	for i := 0; i < 500; i++ {
		ids := e.DecideFragments(component.SizeLarge, 4, 3, src)
		require.Len(t, ids, 4)
		dense := 0
		for _, id := range ids {
			if id == e.Dense() {
				dense++
			}
			assert.True(t, e.Allowed(id, component.SizeMedium, 3))
		}
		assert.Equal(t, 1, dense, "chance 1.0 gives exactly one dense fragment")
	}
}

func TestDenseFragmentsOnlyFromLargest(t *testing.T) {
	e := shippedEngine(t)
	src := rng.New(8)
	for i := 0; i < 300; i++ {
		for _, id := range e.DecideFragments(component.SizeMedium, 2, 10, src) {
			assert.NotEqual(t, e.Dense(), id)
			assert.True(t, e.Allowed(id, component.SizeSmall, 10))
		}
	}
	assert.Nil(t, e.DecideFragments(component.SizeLarge, 0, 1, src))
	for _, id := range e.DecideFragments(component.SizeSmall, 2, 1, src) {
		assert.Equal(t, e.Common(), id)
	}
}

func TestDenseChanceScalesWithWave(t *testing.T) {
	e := shippedEngine(t)
	assert.Zero(t, e.DenseChance(1))
	assert.InDelta(t, 0.10, e.DenseChance(2), 1e-9)
	assert.InDelta(t, 0.14, e.DenseChance(4), 1e-9)
	assert.InDelta(t, 0.35, e.DenseChance(50), 1e-9)
}

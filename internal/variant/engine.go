// Package variant decides which rarity/behaviour modifier a newly spawned or
// fragmented entity receives. Decisions are pure functions of the table, the
// context and the draws taken from the caller's scoped generator.
package variant

import (
	"slices"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/data"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"go.uber.org/zap"
)

// ID names a variant, e.g. "common" or "volatile".
type ID string

// DefaultCommon is used when the table does not name a common variant.
const DefaultCommon ID = "common"

// Context carries the per-decision inputs besides the size class.
type Context struct {
	Wave    int
	Exclude []ID // variants that must not be returned, e.g. a rare sibling
}

func (c Context) excluded(id ID) bool {
	return slices.Contains(c.Exclude, id)
}

// Def exposes the gameplay modifiers of a variant.
type Def struct {
	ID         ID
	Health     float64
	Speed      float64
	Explodes   bool
	Fragments  int
	UnlockWave int
}

var commonDef = Def{ID: DefaultCommon, Health: 1, Speed: 1, UnlockWave: 1}

// Engine evaluates the variant table.
type Engine struct {
	table  *data.VariantTable
	common ID
	dense  ID
	log    *zap.Logger
	warned map[string]bool
}

// NewEngine builds an engine over table. A nil table is allowed: every
// decision then returns the common variant and the gap is logged once.
func NewEngine(table *data.VariantTable, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		table:  table,
		common: DefaultCommon,
		log:    log,
		warned: make(map[string]bool),
	}
	if table != nil {
		if table.Common != "" {
			e.common = ID(table.Common)
		}
		e.dense = ID(table.Dense)
	}
	return e
}

// Common returns the default variant.
func (e *Engine) Common() ID { return e.common }

// Dense returns the dense fragment variant, or "" when none is configured.
func (e *Engine) Dense() ID { return e.dense }

func (e *Engine) warnOnce(key, msg string, fields ...zap.Field) {
	if e.warned[key] {
		return
	}
	e.warned[key] = true
	e.log.Warn(msg, fields...)
}

// Def returns the modifiers of id. Unknown ids resolve to neutral modifiers.
func (e *Engine) Def(id ID) Def {
	v := e.table.Get(string(id))
	if v == nil {
		if id != e.common {
			e.warnOnce("def:"+string(id), "variant definition missing, using neutral stats", zap.String("variant", string(id)))
		}
		d := commonDef
		d.ID = id
		return d
	}
	return Def{
		ID:         ID(v.ID),
		Health:     v.Health,
		Speed:      v.Speed,
		Explodes:   v.Explodes,
		Fragments:  v.Fragments,
		UnlockWave: v.UnlockWave,
	}
}

// Allowed reports whether id may appear on size at wave.
func (e *Engine) Allowed(id ID, size component.Size, wave int) bool {
	if id == e.common {
		return true
	}
	v := e.table.Get(string(id))
	if v == nil {
		return false
	}
	return v.UnlockWave <= wave && slices.Contains(v.Sizes, size.String())
}

// WaveBonus is added to every base chance. Zero before the start wave,
// then grows linearly up to the configured maximum.
func (e *Engine) WaveBonus(wave int) float64 {
	if e.table == nil {
		return 0
	}
	b := e.table.WaveBonus
	if b.PerWave <= 0 || wave < b.StartWave {
		return 0
	}
	v := float64(wave-b.StartWave+1) * b.PerWave
	if b.Max > 0 && v > b.Max {
		v = b.Max
	}
	return v
}

// DenseChance is the probability that one fragment of a largest-size
// destruction becomes dense.
func (e *Engine) DenseChance(wave int) float64 {
	if e.table == nil || e.dense == "" {
		return 0
	}
	r := e.table.DenseRule
	if wave < r.StartWave {
		return 0
	}
	v := r.BaseChance + float64(wave-r.StartWave)*r.PerWave
	if r.MaxChance > 0 && v > r.MaxChance {
		v = r.MaxChance
	}
	return v
}

// Decide picks a variant for an entity of the given size.
//
// One Chance roll is taken against base chance plus wave bonus; on success a
// second draw selects among eligible variants by cumulative weight. A miss,
// or an empty eligible set, yields the common variant.
func (e *Engine) Decide(size component.Size, ctx Context, src *rng.Source) ID {
	rule, ok := e.table.Rule(size.String())
	if !ok {
		e.warnOnce("rule:"+size.String(), "variant rule missing for size, using common", zap.Stringer("size", size))
		return e.common
	}

	chance := rule.BaseChance + e.WaveBonus(ctx.Wave)
	if !src.Chance(chance) {
		return e.common
	}

	total := 0
	for _, w := range rule.Weights {
		if e.eligible(w, size, ctx) {
			total += w.Weight
		}
	}
	if total <= 0 {
		return e.common
	}

	r := src.Float() * float64(total)
	cum := 0
	for _, w := range rule.Weights {
		if !e.eligible(w, size, ctx) {
			continue
		}
		cum += w.Weight
		if r < float64(cum) {
			return ID(w.Variant)
		}
	}
	return e.common
}

func (e *Engine) eligible(w data.WeightEntry, size component.Size, ctx Context) bool {
	id := ID(w.Variant)
	return w.Weight > 0 && id != e.common && !ctx.excluded(id) && e.Allowed(id, size, ctx.Wave)
}

// DecideFragments assigns variants to the count fragments of a destroyed
// parent. The fragments are one size class below the parent.
//
// For a largest-size parent a single roll decides whether one fragment, at an
// index drawn from the same generator, becomes dense. Every other fragment is
// decided independently; once a fragment holds the dense variant it is
// excluded for the rest, so at most one dense fragment comes out of one
// destruction.
func (e *Engine) DecideFragments(parent component.Size, count, wave int, src *rng.Source) []ID {
	if count <= 0 {
		return nil
	}
	out := make([]ID, count)
	fragSize, ok := parent.Smaller()
	if !ok {
		for i := range out {
			out[i] = e.common
		}
		return out
	}

	denseIdx := -1
	if parent == component.Largest && e.dense != "" {
		if e.table.Get(string(e.dense)) == nil {
			e.warnOnce("dense-def", "dense variant not defined, fragments decided independently", zap.String("variant", string(e.dense)))
		}
		if src.Chance(e.DenseChance(wave)) {
			idx := src.Int(0, count-1)
			if e.Allowed(e.dense, fragSize, wave) {
				denseIdx = idx
			}
		}
	}

	ctx := Context{Wave: wave}
	if denseIdx >= 0 {
		ctx.Exclude = append(ctx.Exclude, e.dense)
	}
	for i := range out {
		if i == denseIdx {
			out[i] = e.dense
			continue
		}
		id := e.Decide(fragSize, ctx, src)
		if id == e.dense && !ctx.excluded(id) {
			ctx.Exclude = append(ctx.Exclude, id)
		}
		out[i] = id
	}
	return out
}

package wave

import (
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/rng"
)

// Director is the dedicated orchestrator. It runs its own phase machine and
// keeps mirror counters fed by Observe, which the hub compares against the
// registry. It proposes; the registry's counters stay authoritative.
type Director struct {
	params  Params
	weights []SizeWeight

	phase   Phase
	wave    int
	quota   int
	spawned int
	killed  int
}

// NewDirector creates a director. weights overrides the shared size
// distribution when non-nil.
func NewDirector(p Params, weights []SizeWeight) *Director {
	if weights == nil {
		weights = p.Sizes
	}
	return &Director{params: p, weights: weights}
}

func (d *Director) Name() string { return "director" }

// Sync realigns the director with registry state after reset or import.
func (d *Director) Sync(st State) {
	d.phase = st.Phase
	d.wave = st.Number
	d.quota = st.Total
	d.spawned = st.Spawned
	d.killed = st.Killed
}

func (d *Director) Observe(f Feedback) {
	d.killed += f.Killed
	d.quota += f.Fragments
	d.spawned += f.Fragments
}

func (d *Director) Counters() Counters {
	return Counters{Wave: d.wave, Quota: d.quota, Spawned: d.spawned, Killed: d.killed}
}

func (d *Director) validate(st State) error {
	switch {
	case d.phase != st.Phase:
		return fmt.Errorf("%w: director phase %v, registry phase %v", ErrMalformedState, d.phase, st.Phase)
	case d.phase != PhaseInitial && d.wave != st.Number:
		return fmt.Errorf("%w: director wave %d, registry wave %d", ErrMalformedState, d.wave, st.Number)
	case d.phase == PhaseActive && d.quota <= 0:
		return fmt.Errorf("%w: active wave %d has no quota", ErrMalformedState, d.wave)
	case d.spawned < 0 || d.killed < 0:
		return fmt.Errorf("%w: negative counters", ErrMalformedState)
	}
	return nil
}

func (d *Director) Plan(st State, in Input, src *rng.Source) (Plan, error) {
	if err := d.validate(st); err != nil {
		return Plan{}, err
	}
	var plan Plan
	switch d.phase {
	case PhaseInitial:
		first := d.params.Setup(1)
		plan = Plan{Start: &first}
	case PhaseActive:
		plan = d.params.tickActive(st, in, d.weights, src)
		d.spawned += len(plan.Spawns)
		if plan.Complete {
			d.phase = PhaseBreak
		}
	case PhaseBreak:
		plan = d.params.tickBreak(st, in)
	default:
		return Plan{}, fmt.Errorf("%w: unknown phase %v", ErrMalformedState, d.phase)
	}
	if plan.Start != nil {
		d.phase = PhaseActive
		d.wave = plan.Start.Number
		d.quota = plan.Start.Quota
		d.spawned = 0
		d.killed = 0
	}
	return plan, nil
}

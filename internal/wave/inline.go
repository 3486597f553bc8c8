package wave

import (
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/rng"
)

// Inline is the legacy scheduler. It keeps no state of its own and reads
// everything from the registry's wave state each tick.
type Inline struct {
	params Params
}

func NewInline(p Params) *Inline {
	return &Inline{params: p}
}

func (o *Inline) Name() string { return "inline" }

func (o *Inline) Plan(st State, in Input, src *rng.Source) (Plan, error) {
	switch st.Phase {
	case PhaseInitial:
		first := o.params.Setup(1)
		return Plan{Start: &first}, nil
	case PhaseActive:
		return o.params.tickActive(st, in, o.params.Sizes, src), nil
	case PhaseBreak:
		return o.params.tickBreak(st, in), nil
	}
	return Plan{}, fmt.Errorf("inline scheduler: unknown phase %v", st.Phase)
}

package wave

import (
	"math"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
)

// SizeWeight is one entry of a top-level size distribution.
type SizeWeight struct {
	Size   component.Size
	Weight int
}

// Params are the wave tuning values shared by both orchestrators.
type Params struct {
	BaseQuota      int
	Multiplier     float64
	MaxQuota       int
	MaxOnScreen    int
	BaseDelay      time.Duration
	MinDelay       time.Duration
	CadenceDecay   float64
	JitterMin      float64
	JitterMax      float64
	ActiveDuration time.Duration
	BreakDuration  time.Duration
	Margin         float64
	AimJitter      float64
	Sizes          []SizeWeight
}

// WeightsFrom orders a config distribution largest first.
func WeightsFrom(w config.SizeWeights) []SizeWeight {
	return []SizeWeight{
		{component.SizeLarge, w.Large},
		{component.SizeMedium, w.Medium},
		{component.SizeSmall, w.Small},
	}
}

// ParamsFrom converts the [wave] config section.
func ParamsFrom(c config.WaveConfig) Params {
	return Params{
		BaseQuota:      c.BaseQuota,
		Multiplier:     c.Multiplier,
		MaxQuota:       c.MaxQuota,
		MaxOnScreen:    c.MaxOnScreen,
		BaseDelay:      c.BaseSpawnDelay,
		MinDelay:       c.MinSpawnDelay,
		CadenceDecay:   c.CadenceDecay,
		JitterMin:      c.CadenceJitterMin,
		JitterMax:      c.CadenceJitterMax,
		ActiveDuration: c.ActiveDuration,
		BreakDuration:  c.BreakDuration,
		Margin:         c.SpawnMargin,
		AimJitter:      c.AimJitter,
		Sizes:          WeightsFrom(c.SizeWeights),
	}
}

// Quota returns the total to spawn for wave n:
// floor(base * multiplier^(n-1)), capped at MaxQuota, at least 1.
func (p Params) Quota(n int) int {
	if n < 1 {
		n = 1
	}
	f := math.Floor(float64(p.BaseQuota) * math.Pow(p.Multiplier, float64(n-1)))
	if p.MaxQuota > 0 && f > float64(p.MaxQuota) {
		return p.MaxQuota
	}
	if f < 1 || math.IsNaN(f) {
		return 1
	}
	return int(f)
}

// Cadence returns the base spawn delay for wave n.
func (p Params) Cadence(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseDelay
	if p.CadenceDecay > 0 {
		d = time.Duration(float64(p.BaseDelay) * math.Pow(p.CadenceDecay, float64(n-1)))
	}
	if d < p.MinDelay {
		d = p.MinDelay
	}
	return d
}

// Setup returns the setup for wave n.
func (p Params) Setup(n int) Setup {
	return Setup{
		Number:         n,
		Quota:          p.Quota(n),
		Cadence:        p.Cadence(n),
		ActiveDuration: p.ActiveDuration,
	}
}

// drawDelay draws one spawn delay within the jitter band of cadence.
// One draw from the spawn scope.
func (p Params) drawDelay(cadence time.Duration, src *rng.Source) time.Duration {
	return time.Duration(float64(cadence) * src.Range(p.JitterMin, p.JitterMax))
}

// drawOrder draws one spawn: size, edge, position along the edge, aim
// jitter and speed. Five draws from the spawn scope, always in this order.
func (p Params) drawOrder(weights []SizeWeight, in Input, src *rng.Source) SpawnOrder {
	size := pickSize(weights, src)
	side := src.Int(0, 3)
	along := src.Float()
	pos := edgePoint(in.Bounds, side, along, p.Margin)
	aim := math.Atan2(in.Target.Y-pos.Y, in.Target.X-pos.X)
	aim += src.Range(-p.AimJitter, p.AimJitter)
	return SpawnOrder{
		Size:      size,
		Pos:       pos,
		Heading:   aim,
		SpeedRoll: src.Float(),
	}
}

func pickSize(weights []SizeWeight, src *rng.Source) component.Size {
	total := 0
	for _, w := range weights {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	r := src.Float() * float64(total)
	if total <= 0 {
		return component.SizeLarge
	}
	cum := 0
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		cum += w.Weight
		if r < float64(cum) {
			return w.Size
		}
	}
	return weights[len(weights)-1].Size
}

// edgePoint places a point margin units inside one edge of r.
// side: 0 top, 1 right, 2 bottom, 3 left.
func edgePoint(r component.Rect, side int, along, margin float64) component.Vec2 {
	w, h := r.Width(), r.Height()
	margin = math.Min(margin, math.Min(w, h)/2)
	switch side {
	case 0:
		return component.Vec2{X: r.Min.X + along*w, Y: r.Min.Y + margin}
	case 1:
		return component.Vec2{X: r.Max.X - margin, Y: r.Min.Y + along*h}
	case 2:
		return component.Vec2{X: r.Min.X + along*w, Y: r.Max.Y - margin}
	default:
		return component.Vec2{X: r.Min.X + margin, Y: r.Min.Y + along*h}
	}
}

// canSpawn reports whether another top-level spawn fits this tick.
func (p Params) canSpawn(st State, spawned int, in Input, queued int) bool {
	if spawned >= st.Total {
		return false
	}
	return p.MaxOnScreen <= 0 || in.Live+queued < p.MaxOnScreen
}

// tickActive runs the shared spawn/complete rules for one active tick.
// Both orchestrators call it so their draws stay in lockstep.
func (p Params) tickActive(st State, in Input, weights []SizeWeight, src *rng.Source) Plan {
	plan := Plan{ActiveRemaining: st.ActiveRemaining}
	timed := p.ActiveDuration > 0
	if timed {
		plan.ActiveRemaining -= in.Dt
	}

	timer := st.SpawnTimer - in.Dt
	spawned := st.Spawned
	for timer <= 0 && p.canSpawn(st, spawned, in, len(plan.Spawns)) {
		plan.Spawns = append(plan.Spawns, p.drawOrder(weights, in, src))
		spawned++
		timer += p.drawDelay(st.Cadence, src)
	}
	if timer < 0 {
		timer = 0
	}
	plan.SpawnTimer = timer

	switch {
	case timed && plan.ActiveRemaining <= 0:
		plan.Complete = true
		plan.TimedOut = true
	case len(plan.Spawns) == 0 && st.Killed >= st.Total && in.Live == 0:
		plan.Complete = true
	}
	if plan.Complete {
		plan.ActiveRemaining = 0
		plan.BreakRemaining = p.BreakDuration
	}
	return plan
}

// tickBreak counts down the break and starts the next wave when it ends.
func (p Params) tickBreak(st State, in Input) Plan {
	remain := st.BreakRemaining - in.Dt
	if remain > 0 {
		return Plan{BreakRemaining: remain}
	}
	next := p.Setup(st.Number + 1)
	return Plan{Start: &next}
}

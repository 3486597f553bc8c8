package replay

import (
	"context"
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/world"
	"go.uber.org/zap"
)

// Result summarises a replayed session.
type Result struct {
	Digest uint64
	Events int
	Ticks  uint64
	Wave   int
	Live   int
	Stats  world.Stats
}

// Run replays j on a fresh hub built from deps. The journal's seed and
// orchestrator override the configured ones; the bus and arena are always
// fresh so earlier sessions cannot leak into the digest. Rewards are left
// to the caller: they observe the simulation but never steer it.
func Run(ctx context.Context, deps world.Deps, j *Journal) (*Result, error) {
	if err := j.validate(); err != nil {
		return nil, err
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("replay: nil config")
	}
	cfg := *deps.Config
	cfg.Session.Seed = j.Seed
	cfg.Wave.Orchestrator = j.Orchestrator
	deps.Config = &cfg
	deps.Bus = nil
	deps.Physics = nil
	deps.Arena = world.NewStaticArena(cfg.Arena)

	h, err := world.New(deps)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer h.Close()

	d := Attach(h.Bus())
	for i, f := range j.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Orchestrator != "" {
			if err := h.SetOrchestrator(f.Orchestrator); err != nil {
				return nil, fmt.Errorf("replay: frame %d: %w", i, err)
			}
		}
		for _, hit := range f.Hits {
			h.Queue(hit)
		}
		if err := h.Tick(f.Dt); err != nil {
			return nil, fmt.Errorf("replay: frame %d: %w", i, err)
		}
	}
	d.Detach()

	deps.Log.Debug("journal replayed",
		zap.Int("frames", len(j.Frames)),
		zap.Int("events", d.Events()),
		zap.Uint64("digest", d.Sum64()),
	)
	return &Result{
		Digest: d.Sum64(),
		Events: d.Events(),
		Ticks:  h.Stats().Ticks,
		Wave:   h.Wave().Number,
		Live:   h.Live(),
		Stats:  h.Stats(),
	}, nil
}

// Verify replays j and checks it reproduces want.
func Verify(ctx context.Context, deps world.Deps, j *Journal, want uint64) (*Result, error) {
	res, err := Run(ctx, deps, j)
	if err != nil {
		return nil, err
	}
	if res.Digest != want {
		return res, fmt.Errorf("%w: got %016x, want %016x", ErrDiverged, res.Digest, want)
	}
	return res, nil
}

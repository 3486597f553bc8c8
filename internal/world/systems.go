package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/core/event"
	"github.com/fgferre/asteroids-roguefield/internal/core/system"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/wave"
	"go.uber.org/zap"
)

// inputSystem applies queued hits (Phase 0).
type inputSystem struct {
	h     *Hub
	spare []Hit
}

func (s *inputSystem) Phase() system.Phase { return system.PhaseInput }

func (s *inputSystem) Update(_ time.Duration) {
	h := s.h
	if len(h.hits) == 0 {
		return
	}
	hits := h.hits
	h.hits = s.spare[:0]
	for _, hit := range hits {
		e, ok := h.index.Get(hit.Target)
		if !ok || !e.Alive() {
			continue
		}
		if hit.Kill {
			h.destroy(e, event.CauseDirect, 0)
		} else {
			h.damage(e, hit.Amount, event.CauseHit, 0)
		}
	}
	s.spare = hits[:0]
}

// waveSystem asks the orchestrator for a plan and applies it (Phase 1).
// The registry is the only writer of wave state.
type waveSystem struct {
	h *Hub
}

func (s *waveSystem) Phase() system.Phase { return system.PhaseWave }

func (s *waveSystem) Update(dt time.Duration) {
	h := s.h
	in := wave.Input{
		Dt:     dt,
		Live:   h.Live(),
		Bounds: h.bounds(),
		Target: h.arena.PlayerPosition(),
	}
	src := h.scopes.Get(rng.ScopeSpawn)
	plan, err := h.orch.Plan(h.wave, in, src)
	if err != nil && errors.Is(err, wave.ErrMalformedState) && !h.fellBack {
		h.fallback(err)
		plan, err = h.orch.Plan(h.wave, in, src)
	}
	if err != nil {
		h.once.Warn("plan:"+err.Error(), "wave plan failed, tick skipped", zap.Error(err))
		return
	}
	s.apply(plan)
}

func (s *waveSystem) apply(plan wave.Plan) {
	h := s.h
	if plan.Start != nil {
		h.wave = wave.Begin(*plan.Start)
		h.log.Info("wave started",
			zap.Int("wave", h.wave.Number),
			zap.Int("quota", h.wave.Total),
			zap.Duration("cadence", h.wave.Cadence))
		emit(h, event.WaveStarted{Wave: h.wave.Number, Quota: h.wave.Total})
		return
	}

	switch h.wave.Phase {
	case wave.PhaseActive:
		for _, order := range plan.Spawns {
			h.spawn(order)
			h.wave.Spawned++
		}
		h.wave.SpawnTimer = plan.SpawnTimer
		h.wave.ActiveRemaining = plan.ActiveRemaining
		if plan.Complete {
			s.complete(plan)
		}
	case wave.PhaseBreak:
		h.wave.BreakRemaining = plan.BreakRemaining
	}
}

func (s *waveSystem) complete(plan wave.Plan) {
	h := s.h
	h.wave.Phase = wave.PhaseBreak
	h.wave.BreakRemaining = plan.BreakRemaining
	if plan.TimedOut {
		h.stats.WavesTimedOut++
	} else {
		h.stats.WavesCleared++
	}
	h.log.Info("wave completed",
		zap.Int("wave", h.wave.Number),
		zap.Int("spawned", h.wave.Spawned),
		zap.Int("killed", h.wave.Killed),
		zap.Bool("timed_out", plan.TimedOut))
	if wr, ok := h.rewards().(WaveRewarder); ok && !plan.TimedOut {
		wr.WaveCleared(h.wave.Number)
	}
	emit(h, event.WaveCompleted{
		Wave:     h.wave.Number,
		Spawned:  h.wave.Spawned,
		Killed:   h.wave.Killed,
		TimedOut: plan.TimedOut,
	})
}

// motionSystem integrates kinematics and keeps physics in step (Phase 2).
type motionSystem struct {
	h *Hub
}

func (s *motionSystem) Phase() system.Phase { return system.PhaseUpdate }

func (s *motionSystem) Update(dt time.Duration) {
	h := s.h
	secs := dt.Seconds()
	bounds := h.bounds()
	mover, _ := h.physics.(Mover)
	for _, e := range h.live.Active() {
		e.Kinematics.Integrate(secs)
		e.Kinematics.Pos = bounds.Wrap(e.Kinematics.Pos)
		if mover != nil {
			mover.Move(e)
		}
	}
}

// checkSystem compares the orchestrator's own counters with the registry's
// when debug.consistency_checks is on (Phase 3). Registry counters win.
type checkSystem struct {
	h *Hub
}

func (s *checkSystem) Phase() system.Phase { return system.PhasePostUpdate }

func (s *checkSystem) Update(_ time.Duration) {
	h := s.h
	if !h.cfg.Debug.ConsistencyChecks || h.wave.Phase != wave.PhaseActive {
		return
	}
	rep, ok := h.orch.(wave.Reporter)
	if !ok {
		return
	}
	c := rep.Counters()
	st := h.wave
	if c.Wave == st.Number && c.Quota == st.Total && c.Spawned == st.Spawned && c.Killed == st.Killed {
		return
	}
	h.stats.ConsistencyWarnings++
	h.once.Warn(fmt.Sprintf("drift:%d", st.Number), "orchestrator counters drifted from registry",
		zap.String("orchestrator", h.orch.Name()),
		zap.Int("wave", st.Number),
		zap.Int("registry_total", st.Total), zap.Int("orchestrator_total", c.Quota),
		zap.Int("registry_spawned", st.Spawned), zap.Int("orchestrator_spawned", c.Spawned),
		zap.Int("registry_killed", st.Killed), zap.Int("orchestrator_killed", c.Killed))
}

// outputSystem delivers the tick's events (Phase 4).
type outputSystem struct {
	h *Hub
}

func (s *outputSystem) Phase() system.Phase { return system.PhaseOutput }

func (s *outputSystem) Update(_ time.Duration) {
	s.h.bus.Flush()
}

// cleanupSystem releases tombstoned entities to the pool (Phase 5).
// Must run last so nothing iterates the live collection while it compacts.
type cleanupSystem struct {
	h *Hub
}

func (s *cleanupSystem) Phase() system.Phase { return system.PhaseCleanup }

func (s *cleanupSystem) Update(_ time.Duration) {
	s.h.live.Flush(s.h.release)
}

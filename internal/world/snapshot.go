package world

import (
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
	"github.com/fgferre/asteroids-roguefield/internal/wave"
	"go.uber.org/zap"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is a self-contained copy of a session. Wave, Stats and Scopes are
// required; a snapshot missing any of them is rejected.
type Snapshot struct {
	Version      int                `json:"version" msgpack:"version"`
	Tick         uint64             `json:"tick" msgpack:"tick"`
	RootSeed     uint64             `json:"root_seed" msgpack:"root_seed"`
	Orchestrator string             `json:"orchestrator" msgpack:"orchestrator"`
	FellBack     bool               `json:"fell_back,omitempty" msgpack:"fell_back,omitempty"`
	NextID       ecs.PoolID         `json:"next_id" msgpack:"next_id"`
	Wave         *wave.State        `json:"wave" msgpack:"wave"`
	Stats        *Stats             `json:"stats" msgpack:"stats"`
	Scopes       []rng.Captured     `json:"scopes" msgpack:"scopes"`
	Entities     []EntityDescriptor `json:"entities" msgpack:"entities"`
}

// EntityDescriptor is everything needed to rebuild one live entity.
// Seed is the current state of the entity's private stream.
type EntityDescriptor struct {
	ID         ecs.PoolID           `json:"id" msgpack:"id"`
	Parent     ecs.PoolID           `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Size       component.Size       `json:"size" msgpack:"size"`
	Variant    string               `json:"variant" msgpack:"variant"`
	Wave       int                  `json:"wave" msgpack:"wave"`
	Generation int                  `json:"generation" msgpack:"generation"`
	HP         float64              `json:"hp" msgpack:"hp"`
	MaxHP      float64              `json:"max_hp" msgpack:"max_hp"`
	Radius     float64              `json:"radius" msgpack:"radius"`
	Kinematics component.Kinematics `json:"kinematics" msgpack:"kinematics"`
	Seed       uint64               `json:"seed" msgpack:"seed"`
}

// Export returns a deep copy of the session. Destroyed entities still
// awaiting cleanup are omitted. Export between ticks: queued hits are not
// part of the snapshot.
func (h *Hub) Export() *Snapshot {
	st := h.wave
	stats := h.stats.clone()
	stats.Ticks = h.runner.Ticks()
	snap := &Snapshot{
		Version:      SnapshotVersion,
		Tick:         h.runner.Ticks(),
		RootSeed:     h.seed,
		Orchestrator: h.orch.Name(),
		FellBack:     h.fellBack,
		NextID:       h.ids.Next(),
		Wave:         &st,
		Stats:        &stats,
		Scopes:       h.scopes.Capture(),
	}
	active := h.live.Active()
	snap.Entities = make([]EntityDescriptor, 0, len(active))
	for _, e := range active {
		snap.Entities = append(snap.Entities, EntityDescriptor{
			ID:         e.ID,
			Parent:     e.Parent,
			Size:       e.Size,
			Variant:    string(e.Variant),
			Wave:       e.Wave,
			Generation: e.Generation,
			HP:         e.HP,
			MaxHP:      e.MaxHP,
			Radius:     e.Radius,
			Kinematics: e.Kinematics,
			Seed:       e.privateSeed(),
		})
	}
	return snap
}

// Import replaces the session with snap. The live collection is torn down,
// scopes are reseeded from the captured seeds and each entity is rebuilt
// through the pool with its stored identity. Anything malformed resets the
// hub instead and returns ErrMalformedSnapshot.
func (h *Hub) Import(snap *Snapshot) error {
	if h.closed {
		return ErrClosed
	}
	if err := h.validateSnapshot(snap); err != nil {
		return h.rejectSnapshot(err)
	}
	orch := h.orch
	if snap.Orchestrator != orch.Name() {
		o, err := newOrchestrator(h.cfg.Wave, snap.Orchestrator)
		if err != nil {
			return h.rejectSnapshot(err)
		}
		orch = o
	}

	h.releaseAll()
	h.bus.Discard()
	h.hits = h.hits[:0]
	if err := h.scopes.Restore(snap.RootSeed, snap.Scopes); err != nil {
		return h.rejectSnapshot(err)
	}
	h.seed = snap.RootSeed
	h.ids.Restart(snap.NextID)
	h.wave = *snap.Wave
	h.stats = snap.Stats.clone()
	h.runner.SetTicks(snap.Tick)
	h.orch = orch
	h.fellBack = snap.FellBack

	for _, d := range snap.Entities {
		e := h.acquire(d.ID)
		e.Parent = d.Parent
		e.Size = d.Size
		e.Variant = variant.ID(d.Variant)
		e.Wave = d.Wave
		e.Generation = d.Generation
		e.HP = d.HP
		e.MaxHP = d.MaxHP
		e.Radius = d.Radius
		e.Kinematics = d.Kinematics
		e.rand = rng.New(d.Seed)
		h.live.Add(e)
		h.index.Set(e.ID, e)
		h.physics.Register(e)
	}
	h.syncOrchestrator()
	h.resetRewards()
	h.log.Info("snapshot imported",
		zap.Uint64("tick", snap.Tick),
		zap.Int("wave", h.wave.Number),
		zap.Int("entities", len(snap.Entities)))
	return nil
}

func (h *Hub) rejectSnapshot(err error) error {
	h.log.Warn("snapshot rejected, resetting session", zap.Error(err))
	h.ResetSeed(h.cfg.Session.Seed)
	return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
}

func (h *Hub) validateSnapshot(snap *Snapshot) error {
	switch {
	case snap == nil:
		return fmt.Errorf("nil snapshot")
	case snap.Version != SnapshotVersion:
		return fmt.Errorf("version %d, want %d", snap.Version, SnapshotVersion)
	case snap.Wave == nil:
		return fmt.Errorf("wave section missing")
	case snap.Stats == nil:
		return fmt.Errorf("stats section missing")
	case len(snap.Scopes) == 0:
		return fmt.Errorf("scope section missing")
	}
	st := snap.Wave
	switch {
	case st.Phase < wave.PhaseInitial || st.Phase > wave.PhaseBreak:
		return fmt.Errorf("wave phase %d invalid", int(st.Phase))
	case st.Phase == wave.PhaseActive && st.Total <= 0:
		return fmt.Errorf("active wave %d has no quota", st.Number)
	case st.Spawned < 0 || st.Killed < 0 || st.Total < 0:
		return fmt.Errorf("negative wave counters")
	}

	seen := make(map[ecs.PoolID]bool, len(snap.Entities))
	for i, d := range snap.Entities {
		switch {
		case d.ID.IsZero():
			return fmt.Errorf("entity %d has no identity", i)
		case d.ID >= snap.NextID:
			return fmt.Errorf("entity %d identity %d not below next id %d", i, d.ID, snap.NextID)
		case seen[d.ID]:
			return fmt.Errorf("entity identity %d duplicated", d.ID)
		case !d.Size.Valid():
			return fmt.Errorf("entity %d size %d invalid", d.ID, int(d.Size))
		case d.Variant == "":
			return fmt.Errorf("entity %d has no variant", d.ID)
		case d.MaxHP <= 0 || d.HP <= 0 || d.HP > d.MaxHP:
			return fmt.Errorf("entity %d health %v/%v invalid", d.ID, d.HP, d.MaxHP)
		}
		seen[d.ID] = true
	}
	return nil
}

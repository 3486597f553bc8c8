package event

import (
	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
)

// Destruction causes carried by EntityDestroyed.
const (
	CauseHit       = "hit"
	CauseExplosion = "explosion"
	CauseDirect    = "direct"
)

// EntitySpawned is emitted for every entity entering the live collection,
// including fragments.
type EntitySpawned struct {
	EntityID   ecs.PoolID
	ParentID   ecs.PoolID // zero for top-level spawns
	Position   component.Vec2
	Size       component.Size
	Variant    string
	Wave       int
	Generation int
}

// EntityDestroyed is emitted once per destruction.
type EntityDestroyed struct {
	EntityID  ecs.PoolID
	Position  component.Vec2
	Size      component.Size
	Variant   string
	Wave      int
	Cause     string
	Fragments []ecs.PoolID
}

type WaveStarted struct {
	Wave  int
	Quota int
}

type WaveCompleted struct {
	Wave     int
	Spawned  int
	Killed   int
	TimedOut bool
}

// OrchestratorFallback is emitted when the session switches to the inline
// scheduler after the dedicated orchestrator reported malformed state.
type OrchestratorFallback struct {
	From   string
	Reason string
}

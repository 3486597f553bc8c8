package world

import (
	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
)

// Entity is a destructible asteroid. Instances are pooled: they are only
// created through Hub.acquire and every field is overwritten on reuse.
// Accessed only from the tick goroutine; no locks.
type Entity struct {
	ID         ecs.PoolID
	Parent     ecs.PoolID // zero for top-level spawns
	Size       component.Size
	Variant    variant.ID
	Wave       int // wave of origin
	Generation int // fragmentation depth, 0 for top-level
	HP         float64
	MaxHP      float64
	Radius     float64
	Kinematics component.Kinematics

	// Destroyed is the tombstone. The entity stays in the live collection
	// until the cleanup phase releases it.
	Destroyed bool

	rand   *rng.Source // private stream, forked from the entities scope
	pooled bool        // false when built outside the pool after exhaustion
}

func newEntity() *Entity { return &Entity{} }

// reset clears every per-instance field before the entity goes back to the pool.
func (e *Entity) reset() {
	*e = Entity{}
}

// Pos is shorthand for the entity position.
func (e *Entity) Pos() component.Vec2 { return e.Kinematics.Pos }

// Alive reports whether the entity is live and not tombstoned.
func (e *Entity) Alive() bool { return e != nil && !e.Destroyed }

func isDestroyed(e *Entity) bool { return e.Destroyed }

// privateSeed returns the current state of the entity's own stream.
func (e *Entity) privateSeed() uint64 {
	if e.rand == nil {
		return 0
	}
	return e.rand.Seed()
}

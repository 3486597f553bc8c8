package main

import (
	"math"

	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/fgferre/asteroids-roguefield/internal/world"
)

// shooter is where the autopilot sends its input: the hub directly, or a
// recorder journaling it.
type shooter interface {
	Hit(id ecs.PoolID, amount float64)
	Kill(id ecs.PoolID)
}

const (
	fireEvery   = 4    // ticks between shots
	shotDamage  = 25.0 // per hit
	bombEvery   = 90   // ticks between kills of the oldest entity
	targetRange = 600.0
)

// autopilot stands in for a player. It only reads hub state, so its input
// is a pure function of the session and replays identically.
type autopilot struct {
	hub   *world.Hub
	arena world.Arena
}

func newAutopilot(h *world.Hub, a world.Arena) *autopilot {
	return &autopilot{hub: h, arena: a}
}

func (p *autopilot) step(out shooter, tick uint64) {
	if tick%fireEvery == 0 {
		if e := p.target(); e != nil {
			out.Hit(e.ID, shotDamage)
		}
	}
	if tick > 0 && tick%bombEvery == 0 {
		if es := p.hub.Entities(); len(es) > 0 {
			out.Kill(es[0].ID)
		}
	}
}

// target returns the closest entity in range, lowest id on ties.
func (p *autopilot) target() *world.Entity {
	var best *world.Entity
	bestD := math.Inf(1)
	player := p.arena.PlayerPosition()
	for _, e := range p.hub.Entities() {
		d := e.Pos().Dist(player)
		if d <= targetRange && d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

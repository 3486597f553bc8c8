package world

import (
	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/config"
)

// Physics keeps entities in a spatial index for area queries.
type Physics interface {
	Register(e *Entity)
	Unregister(e *Entity)
	// Nearby returns the live entities whose centre lies within radius of
	// point, ordered by pool identity.
	Nearby(point component.Vec2, radius float64) []*Entity
}

// Mover is implemented by physics backends that must be told when an entity
// has moved.
type Mover interface {
	Move(e *Entity)
}

// Reward is told about every destruction. The hub never computes reward
// values itself.
type Reward interface {
	DropRewards(destroyed *Entity, fragments []*Entity)
}

// WaveRewarder is implemented by rewards that also pay out on wave completion.
type WaveRewarder interface {
	WaveCleared(wave int)
}

// RewardResetter is implemented by rewards that keep per-session totals.
// The hub calls it whenever the session is replaced.
type RewardResetter interface {
	ResetRewards()
}

// Arena answers read-only player and world queries. ApplyDirectDamage is the
// only mutation the hub performs on it.
type Arena interface {
	PlayerPosition() component.Vec2
	Bounds() component.Rect
	Level() int
	ApplyDirectDamage(amount float64, cause string)
}

// StaticArena is a fixed arena with a stationary player.
type StaticArena struct {
	Player component.Vec2
	Rect   component.Rect
	Lvl    int
	HP     float64

	Damage map[string]float64 // accumulated damage per cause
}

// NewStaticArena builds the arena described by the [arena] config section.
func NewStaticArena(c config.ArenaConfig) *StaticArena {
	return &StaticArena{
		Player: component.Vec2{X: c.PlayerX, Y: c.PlayerY},
		Rect:   component.Rect{Max: component.Vec2{X: c.Width, Y: c.Height}},
		Lvl:    c.PlayerLevel,
		HP:     c.PlayerHP,
		Damage: make(map[string]float64),
	}
}

func (a *StaticArena) PlayerPosition() component.Vec2 { return a.Player }
func (a *StaticArena) Bounds() component.Rect         { return a.Rect }
func (a *StaticArena) Level() int                     { return a.Lvl }

func (a *StaticArena) ApplyDirectDamage(amount float64, cause string) {
	a.HP -= amount
	if a.Damage == nil {
		a.Damage = make(map[string]float64)
	}
	a.Damage[cause] += amount
}

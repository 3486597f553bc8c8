package wave

import (
	"errors"
	"fmt"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
)

// ErrMalformedState is returned by an orchestrator whose own bookkeeping no
// longer describes a valid wave.
var ErrMalformedState = errors.New("wave: malformed orchestrator state")

// Phase is the wave life-cycle stage.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseActive
	PhaseBreak
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseActive:
		return "active"
	case PhaseBreak:
		return "break"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is the wave state. The registry is its only writer; orchestrators
// receive a copy and propose changes through Plan.
type State struct {
	Number          int           `json:"number" msgpack:"number"`
	Phase           Phase         `json:"phase" msgpack:"phase"`
	Total           int           `json:"total" msgpack:"total"` // total to spawn, grows with fragments
	Spawned         int           `json:"spawned" msgpack:"spawned"`
	Killed          int           `json:"killed" msgpack:"killed"`
	ActiveRemaining time.Duration `json:"active_remaining" msgpack:"active_remaining"`
	BreakRemaining  time.Duration `json:"break_remaining" msgpack:"break_remaining"`
	SpawnTimer      time.Duration `json:"spawn_timer" msgpack:"spawn_timer"`
	Cadence         time.Duration `json:"cadence" msgpack:"cadence"`
}

// Begin returns the state of a freshly started wave.
func Begin(s Setup) State {
	return State{
		Number:          s.Number,
		Phase:           PhaseActive,
		Total:           s.Quota,
		ActiveRemaining: s.ActiveDuration,
		Cadence:         s.Cadence,
	}
}

// Input is what the hub tells an orchestrator about the current tick.
type Input struct {
	Dt     time.Duration
	Live   int // active, non-destroyed entities
	Bounds component.Rect
	Target component.Vec2 // spawn aim point, usually the player
}

// Setup describes a wave about to start.
type Setup struct {
	Number         int
	Quota          int
	Cadence        time.Duration
	ActiveDuration time.Duration
}

// SpawnOrder is one top-level spawn decided by an orchestrator.
type SpawnOrder struct {
	Size      component.Size
	Pos       component.Vec2
	Heading   float64 // radians
	SpeedRoll float64 // [0,1) position within the size's speed band
}

// Plan is an orchestrator's proposal for one tick. The hub applies it.
type Plan struct {
	Start           *Setup
	Spawns          []SpawnOrder
	SpawnTimer      time.Duration
	ActiveRemaining time.Duration
	BreakRemaining  time.Duration
	Complete        bool
	TimedOut        bool
}

// Counters is an orchestrator's own view of the wave, used for consistency
// checks against the registry.
type Counters struct {
	Wave    int
	Quota   int
	Spawned int
	Killed  int
}

// Feedback reports destruction activity back to an observing orchestrator.
type Feedback struct {
	Killed    int
	Fragments int
}

// Orchestrator decides wave transitions and spawn timing.
type Orchestrator interface {
	Name() string
	Plan(st State, in Input, src *rng.Source) (Plan, error)
}

// Observer is implemented by orchestrators that track destruction.
type Observer interface {
	Observe(Feedback)
}

// Syncer is implemented by orchestrators that keep their own state and must
// be realigned after a reset or snapshot import.
type Syncer interface {
	Sync(State)
}

// Reporter exposes an orchestrator's own counters.
type Reporter interface {
	Counters() Counters
}

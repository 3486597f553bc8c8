package replay

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/fgferre/asteroids-roguefield/internal/world"
)

// JournalVersion is bumped whenever the journal layout changes.
const JournalVersion = 1

var (
	ErrNotFresh = errors.New("replay: hub has already ticked")
	ErrDiverged = errors.New("replay: digest mismatch")
)

// Journal is the complete input of a session: the seed, the orchestrator it
// started with, and one frame per tick. Replaying it against the same
// configuration and variant table reproduces the session.
type Journal struct {
	Version      int     `json:"version" msgpack:"version"`
	Seed         uint64  `json:"seed" msgpack:"seed"`
	Orchestrator string  `json:"orchestrator" msgpack:"orchestrator"`
	Frames       []Frame `json:"frames" msgpack:"frames"`
}

// Frame is the input of one tick. Orchestrator is set only when the session
// switched orchestrators right before this tick.
type Frame struct {
	Dt           time.Duration `json:"dt" msgpack:"dt"`
	Hits         []world.Hit   `json:"hits,omitempty" msgpack:"hits,omitempty"`
	Orchestrator string        `json:"orchestrator,omitempty" msgpack:"orchestrator,omitempty"`
}

func (j *Journal) validate() error {
	if j == nil {
		return errors.New("replay: nil journal")
	}
	if j.Version != JournalVersion {
		return fmt.Errorf("replay: journal version %d, want %d", j.Version, JournalVersion)
	}
	for i, f := range j.Frames {
		if f.Dt < 0 {
			return fmt.Errorf("replay: frame %d has negative dt", i)
		}
	}
	return nil
}

// Recorder forwards input to a hub and journals it.
type Recorder struct {
	hub      *world.Hub
	journal  Journal
	pending  []world.Hit
	switchTo string
	digest   *Digest
}

// NewRecorder starts journaling a hub that has not ticked yet.
func NewRecorder(h *world.Hub) (*Recorder, error) {
	if h.Stats().Ticks != 0 {
		return nil, ErrNotFresh
	}
	return &Recorder{
		hub: h,
		journal: Journal{
			Version:      JournalVersion,
			Seed:         h.Seed(),
			Orchestrator: h.Orchestrator(),
		},
		digest: Attach(h.Bus()),
	}, nil
}

func (r *Recorder) Queue(hit world.Hit) {
	r.hub.Queue(hit)
	r.pending = append(r.pending, hit)
}

func (r *Recorder) Hit(id ecs.PoolID, amount float64) {
	r.Queue(world.Hit{Target: id, Amount: amount})
}

func (r *Recorder) Kill(id ecs.PoolID) {
	r.Queue(world.Hit{Target: id, Kill: true})
}

// SetOrchestrator switches the hub's orchestrator and journals the switch
// against the next tick.
func (r *Recorder) SetOrchestrator(name string) error {
	if err := r.hub.SetOrchestrator(name); err != nil {
		return err
	}
	r.switchTo = name
	return nil
}

// Tick advances the hub and journals the frame. Ticks ignored by a paused
// hub are not journaled; queued hits carry over to the next recorded frame.
func (r *Recorder) Tick(dt time.Duration) error {
	if r.hub.Paused() {
		return r.hub.Tick(dt)
	}
	if err := r.hub.Tick(dt); err != nil {
		return err
	}
	r.journal.Frames = append(r.journal.Frames, Frame{Dt: dt, Hits: r.pending, Orchestrator: r.switchTo})
	r.pending, r.switchTo = nil, ""
	return nil
}

// Sum64 is the digest of everything the hub emitted while recorded.
func (r *Recorder) Sum64() uint64 { return r.digest.Sum64() }

// Journal returns a copy of the frames recorded so far.
func (r *Recorder) Journal() *Journal {
	j := r.journal
	j.Frames = make([]Frame, len(r.journal.Frames))
	for i, f := range r.journal.Frames {
		f.Hits = slices.Clone(f.Hits)
		j.Frames[i] = f
	}
	return &j
}

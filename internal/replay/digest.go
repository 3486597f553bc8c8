package replay

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/fgferre/asteroids-roguefield/internal/core/event"
)

// Digest folds the hub's lifecycle events into a running xxhash. Two
// sessions with equal digests spawned and destroyed the same entities, in
// the same order, at the same positions.
type Digest struct {
	h      *xxhash.Digest
	buf    []byte
	events int
	active bool
}

// Attach subscribes a new digest to b. The bus has no unsubscribe, so a
// detached digest simply stops folding.
func Attach(b *event.Bus) *Digest {
	d := &Digest{h: xxhash.New(), buf: make([]byte, 0, 128), active: true}
	event.Subscribe(b, func(ev event.EntitySpawned) {
		d.fold('s', uint64(ev.EntityID), uint64(ev.ParentID), math.Float64bits(ev.Position.X),
			math.Float64bits(ev.Position.Y), uint64(ev.Size), uint64(ev.Wave), uint64(ev.Generation))
		d.str(ev.Variant)
	})
	event.Subscribe(b, func(ev event.EntityDestroyed) {
		d.fold('d', uint64(ev.EntityID), math.Float64bits(ev.Position.X), math.Float64bits(ev.Position.Y),
			uint64(len(ev.Fragments)))
		d.str(ev.Cause)
	})
	event.Subscribe(b, func(ev event.WaveCompleted) {
		timedOut := uint64(0)
		if ev.TimedOut {
			timedOut = 1
		}
		d.fold('w', uint64(ev.Wave), uint64(ev.Spawned), uint64(ev.Killed), timedOut)
	})
	return d
}

func (d *Digest) fold(tag byte, vals ...uint64) {
	if !d.active {
		return
	}
	d.events++
	d.buf = append(d.buf[:0], tag)
	for _, v := range vals {
		d.buf = binary.LittleEndian.AppendUint64(d.buf, v)
	}
	_, _ = d.h.Write(d.buf)
}

func (d *Digest) str(s string) {
	if !d.active {
		return
	}
	_, _ = d.h.WriteString(s)
	_, _ = d.h.Write([]byte{0})
}

// Detach stops folding events.
func (d *Digest) Detach() { d.active = false }

func (d *Digest) Sum64() uint64 { return d.h.Sum64() }

// Events is the number of events folded so far.
func (d *Digest) Events() int { return d.events }

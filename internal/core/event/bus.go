package event

import (
	"reflect"
	"sync"
)

type queued struct {
	t reflect.Type
	v any
}

// Bus queues events during a tick and delivers them, in emission order, when
// Flush is called by the output phase. Events emitted by a handler during
// Flush are delivered on the next Flush.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	queue    []queued
	spare    []queued
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		queue:    make([]queued, 0, 64),
		spare:    make([]queued, 0, 64),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event. Emitting on a nil bus is a no-op.
func Emit[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	b.queue = append(b.queue, queued{t: typeOf[T](), v: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// HasSubscribers reports whether any handler listens for T.
func HasSubscribers[T any](b *Bus) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[typeOf[T]()]) > 0
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int { return len(b.queue) }

// Flush delivers all queued events and returns how many were delivered.
func (b *Bus) Flush() int {
	if len(b.queue) == 0 {
		return 0
	}
	pending := b.queue
	b.queue = b.spare[:0]
	for _, ev := range pending {
		for _, h := range b.handlers[ev.t] {
			h(ev.v)
		}
	}
	n := len(pending)
	clear(pending)
	b.spare = pending[:0]
	return n
}

// Discard drops queued events without delivering them.
func (b *Bus) Discard() {
	clear(b.queue)
	b.queue = b.queue[:0]
}

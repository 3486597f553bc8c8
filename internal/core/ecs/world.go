package ecs

// Arena is the live collection. Instances are destroyed by tombstone and only
// removed in Flush, so the collection is never mutated while a tick iterates
// it. The active cache is rebuilt lazily after any mutation.
type Arena[T any] struct {
	items   []T
	dead    func(T) bool
	pending int

	active      []T
	activeValid bool
}

// NewArena creates an arena; dead reports whether an item carries a tombstone.
func NewArena[T any](dead func(T) bool) *Arena[T] {
	return &Arena[T]{
		items:  make([]T, 0, 256),
		dead:   dead,
		active: make([]T, 0, 256),
	}
}

// Add appends an item to the live collection.
func (a *Arena[T]) Add(v T) {
	a.items = append(a.items, v)
	a.activeValid = false
}

// Len counts every item including tombstoned ones awaiting Flush.
func (a *Arena[T]) Len() int { return len(a.items) }

// Items returns the backing slice in insertion order. Callers must not
// append to or reorder it.
func (a *Arena[T]) Items() []T { return a.items }

// MarkForRelease records that an item was tombstoned this tick.
func (a *Arena[T]) MarkForRelease() {
	a.pending++
	a.activeValid = false
}

// Pending returns the number of tombstones awaiting Flush.
func (a *Arena[T]) Pending() int { return a.pending }

// Active returns the live, non-tombstoned items in insertion order. The slice
// is reused between calls and is only valid until the next mutation.
func (a *Arena[T]) Active() []T {
	if a.activeValid {
		return a.active
	}
	a.active = a.active[:0]
	for _, v := range a.items {
		if !a.dead(v) {
			a.active = append(a.active, v)
		}
	}
	a.activeValid = true
	return a.active
}

// Flush compacts out tombstoned items, calling release once for each.
// Called by the cleanup system at the end of every tick.
func (a *Arena[T]) Flush(release func(T)) int {
	if a.pending == 0 {
		return 0
	}
	kept := a.items[:0]
	removed := 0
	for _, v := range a.items {
		if a.dead(v) {
			release(v)
			removed++
			continue
		}
		kept = append(kept, v)
	}
	var zero T
	for i := len(kept); i < len(a.items); i++ {
		a.items[i] = zero
	}
	a.items = kept
	a.pending = 0
	a.activeValid = false
	return removed
}

// Drain removes every item, calling release for each.
func (a *Arena[T]) Drain(release func(T)) {
	var zero T
	for i, v := range a.items {
		release(v)
		a.items[i] = zero
	}
	a.items = a.items[:0]
	a.active = a.active[:0]
	a.pending = 0
	a.activeValid = false
}

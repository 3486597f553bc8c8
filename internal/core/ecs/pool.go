package ecs

// PoolStats is a point-in-time view of pool usage.
type PoolStats struct {
	Created  int // instances built for the pool
	Reused   int // acquisitions served from the idle list
	Overflow int // acquisitions built outside the pool after exhaustion
	Idle     int
	Live     int
}

// Pool recycles instances through an idle list. When MaxLive pooled
// instances are out, Acquire builds instances outside the pool instead of
// blocking; OnExhausted fires once the first time that happens.
type Pool[T any] struct {
	newFn   func() T
	resetFn func(T)

	idle    []T
	maxIdle int
	maxLive int

	stats PoolStats

	OnExhausted func(live int)
	exhausted   bool
}

// NewPool creates a pool. maxLive <= 0 means unbounded; maxIdle <= 0 keeps
// every released instance.
func NewPool[T any](newFn func() T, resetFn func(T), maxLive, maxIdle int) *Pool[T] {
	return &Pool[T]{
		newFn:   newFn,
		resetFn: resetFn,
		idle:    make([]T, 0, 64),
		maxIdle: maxIdle,
		maxLive: maxLive,
	}
}

// Acquire returns an idle instance or constructs one. The second result is
// false when the instance was built outside the pool and should not be
// returned to it.
func (p *Pool[T]) Acquire() (T, bool) {
	if n := len(p.idle); n > 0 {
		v := p.idle[n-1]
		var zero T
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.stats.Reused++
		p.stats.Live++
		return v, true
	}
	if p.maxLive > 0 && p.stats.Live >= p.maxLive {
		if !p.exhausted {
			p.exhausted = true
			if p.OnExhausted != nil {
				p.OnExhausted(p.stats.Live)
			}
		}
		p.stats.Overflow++
		return p.newFn(), false
	}
	p.stats.Created++
	p.stats.Live++
	return p.newFn(), true
}

// Release resets v and keeps it for reuse. Instances acquired outside the
// pool are reset and dropped.
func (p *Pool[T]) Release(v T, pooled bool) {
	if p.resetFn != nil {
		p.resetFn(v)
	}
	if !pooled {
		return
	}
	if p.stats.Live > 0 {
		p.stats.Live--
	}
	if p.maxIdle > 0 && len(p.idle) >= p.maxIdle {
		return
	}
	p.idle = append(p.idle, v)
}

// Clear drops every idle instance.
func (p *Pool[T]) Clear() {
	var zero T
	for i := range p.idle {
		p.idle[i] = zero
	}
	p.idle = p.idle[:0]
	p.stats.Live = 0
}

func (p *Pool[T]) Stats() PoolStats {
	s := p.stats
	s.Idle = len(p.idle)
	return s
}

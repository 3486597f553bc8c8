package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityAllocatorMonotonic(t *testing.T) {
	a := NewIdentityAllocator()
	first := a.Claim(0)
	second := a.Claim(0)
	assert.Equal(t, PoolID(1), first)
	assert.Equal(t, PoolID(2), second)

	a.Free(first)
	third := a.Claim(0)
	assert.Equal(t, PoolID(3), third, "freed ids are not handed out again as fresh ids")
	assert.Equal(t, 2, a.Held())
}

func TestIdentityAllocatorPreferred(t *testing.T) {
	a := NewIdentityAllocator()
	assert.Equal(t, PoolID(10), a.Claim(10))
	assert.Equal(t, PoolID(11), a.Next())

	// Taken preference falls back to a fresh id.
	assert.Equal(t, PoolID(11), a.Claim(10))
	assert.True(t, a.InUse(10))
	assert.True(t, a.InUse(11))

	a.Restart(5)
	assert.Zero(t, a.Held())
	assert.Equal(t, PoolID(5), a.Claim(0))
}

type thing struct {
	n    int
	dead bool
}

func TestArenaDeferredFlush(t *testing.T) {
	ar := NewArena(func(v *thing) bool { return v.dead })
	items := []*thing{{n: 1}, {n: 2}, {n: 3}, {n: 4}}
	for _, it := range items {
		ar.Add(it)
	}
	require.Len(t, ar.Active(), 4)

	items[1].dead = true
	ar.MarkForRelease()
	// Still present until flush, but out of the active view.
	assert.Equal(t, 4, ar.Len())
	assert.Len(t, ar.Active(), 3)

	var released []int
	n := ar.Flush(func(v *thing) { released = append(released, v.n) })
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{2}, released)
	require.Equal(t, 3, ar.Len())
	assert.Equal(t, 1, ar.Items()[0].n)
	assert.Equal(t, 3, ar.Items()[1].n)
	assert.Equal(t, 4, ar.Items()[2].n)

	// A second flush with nothing pending releases nothing.
	assert.Zero(t, ar.Flush(func(*thing) { t.Fatal("double release") }))
}

func TestArenaActiveCacheInvalidation(t *testing.T) {
	ar := NewArena(func(v *thing) bool { return v.dead })
	a := &thing{n: 1}
	ar.Add(a)
	assert.Len(t, ar.Active(), 1)
	ar.Add(&thing{n: 2})
	assert.Len(t, ar.Active(), 2)

	var drained int
	ar.Drain(func(*thing) { drained++ })
	assert.Equal(t, 2, drained)
	assert.Zero(t, ar.Len())
	assert.Empty(t, ar.Active())
}

func TestPoolReuse(t *testing.T) {
	built := 0
	p := NewPool(func() *thing { built++; return &thing{} }, func(v *thing) { v.n = 0 }, 0, 0)

	a, pooled := p.Acquire()
	require.True(t, pooled)
	a.n = 9
	p.Release(a, true)

	b, _ := p.Acquire()
	assert.Same(t, a, b)
	assert.Zero(t, b.n)
	assert.Equal(t, 1, built)

	st := p.Stats()
	assert.Equal(t, 1, st.Created)
	assert.Equal(t, 1, st.Reused)
	assert.Equal(t, 1, st.Live)
}

func TestPoolExhaustionFallsBack(t *testing.T) {
	warned := 0
	p := NewPool(func() *thing { return &thing{} }, nil, 2, 0)
	p.OnExhausted = func(int) { warned++ }

	a, _ := p.Acquire()
	_, _ = p.Acquire()
	c, pooled := p.Acquire()
	require.NotNil(t, c)
	assert.False(t, pooled)
	_, _ = p.Acquire()
	assert.Equal(t, 1, warned, "exhaustion warns once")
	assert.Equal(t, 2, p.Stats().Overflow)

	p.Release(c, false)
	assert.Zero(t, p.Stats().Idle, "overflow instances are not pooled")
	p.Release(a, true)
	assert.Equal(t, 1, p.Stats().Idle)
}

func TestPoolMaxIdle(t *testing.T) {
	p := NewPool(func() *thing { return &thing{} }, nil, 0, 1)
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	p.Release(a, true)
	p.Release(b, true)
	assert.Equal(t, 1, p.Stats().Idle)
	p.Clear()
	assert.Zero(t, p.Stats().Idle)
}

package world

import (
	"testing"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/stretchr/testify/assert"
)

func gridEntity(id ecs.PoolID, x, y float64) *Entity {
	return &Entity{ID: id, Kinematics: component.Kinematics{Pos: component.Vec2{X: x, Y: y}}}
}

func ids(es []*Entity) []ecs.PoolID {
	out := make([]ecs.PoolID, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func TestGridNearbyOrderedAndFiltered(t *testing.T) {
	g := NewGrid(32)
	for _, e := range []*Entity{
		gridEntity(5, 10, 10),
		gridEntity(2, 40, 10),
		gridEntity(9, 12, 45),
		gridEntity(3, 300, 300),
		gridEntity(7, -20, 10),
	} {
		g.Register(e)
	}
	assert.Equal(t, []ecs.PoolID{2, 5, 7, 9}, ids(g.Nearby(component.Vec2{X: 10, Y: 10}, 40)))
	assert.Equal(t, []ecs.PoolID{5}, ids(g.Nearby(component.Vec2{X: 10, Y: 10}, 5)))
	assert.Empty(t, g.Nearby(component.Vec2{X: 10, Y: 10}, -1))
}

func TestGridMoveAndUnregister(t *testing.T) {
	g := NewGrid(32)
	e := gridEntity(1, 10, 10)
	g.Register(e)

	e.Kinematics.Pos = component.Vec2{X: 500, Y: 500}
	g.Move(e)
	assert.Empty(t, g.Nearby(component.Vec2{X: 10, Y: 10}, 20))
	assert.Len(t, g.Nearby(component.Vec2{X: 500, Y: 500}, 1), 1)

	g.Unregister(e)
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Nearby(component.Vec2{X: 500, Y: 500}, 1000))
}

func TestGridSkipsTombstoned(t *testing.T) {
	g := NewGrid(0)
	e := gridEntity(1, 0, 0)
	g.Register(e)
	e.Destroyed = true
	assert.Empty(t, g.Nearby(component.Vec2{}, 10))
}

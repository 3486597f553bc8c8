package world

import (
	"math"
	"slices"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
)

// Grid is the default Physics: a cell spatial hash. Entities are bucketed by
// the cell holding their centre; Nearby scans every cell the query circle
// touches and does the fine distance check itself.
// Accessed only from the tick goroutine; no locks.
type Grid struct {
	cellSize float64
	cells    map[cellKey]map[ecs.PoolID]*Entity
	where    map[ecs.PoolID]cellKey
}

type cellKey struct {
	cx int32
	cy int32
}

// NewGrid creates an empty grid. cellSize <= 0 falls back to 128 units.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 128
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.PoolID]*Entity),
		where:    make(map[ecs.PoolID]cellKey),
	}
}

func (g *Grid) toCell(v float64) int32 {
	return int32(math.Floor(v / g.cellSize))
}

func (g *Grid) key(p component.Vec2) cellKey {
	return cellKey{cx: g.toCell(p.X), cy: g.toCell(p.Y)}
}

// Register places an entity into the grid.
func (g *Grid) Register(e *Entity) {
	if old, ok := g.where[e.ID]; ok {
		g.remove(e.ID, old)
	}
	k := g.key(e.Pos())
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.PoolID]*Entity)
		g.cells[k] = cell
	}
	cell[e.ID] = e
	g.where[e.ID] = k
}

// Unregister takes an entity out of the grid.
func (g *Grid) Unregister(e *Entity) {
	if k, ok := g.where[e.ID]; ok {
		g.remove(e.ID, k)
		delete(g.where, e.ID)
	}
}

func (g *Grid) remove(id ecs.PoolID, k cellKey) {
	cell := g.cells[k]
	if cell == nil {
		return
	}
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

// Move updates an entity's cell when its position changes.
func (g *Grid) Move(e *Entity) {
	old, ok := g.where[e.ID]
	if !ok {
		return
	}
	k := g.key(e.Pos())
	if k == old {
		return
	}
	g.remove(e.ID, old)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.PoolID]*Entity)
		g.cells[k] = cell
	}
	cell[e.ID] = e
	g.where[e.ID] = k
}

// Nearby returns the registered entities within radius of point, ordered by
// pool identity so callers iterate them deterministically.
func (g *Grid) Nearby(point component.Vec2, radius float64) []*Entity {
	if radius < 0 {
		return nil
	}
	var result []*Entity
	collect := func(cell map[ecs.PoolID]*Entity) {
		for _, e := range cell {
			if e.Alive() && e.Pos().Dist(point) <= radius {
				result = append(result, e)
			}
		}
	}
	span := math.Ceil(2*radius/g.cellSize) + 1
	if math.IsInf(radius, 1) || span*span > float64(len(g.cells)) {
		// Query covers more cells than are occupied: scan the occupied ones.
		for _, cell := range g.cells {
			collect(cell)
		}
	} else {
		minX, maxX := g.toCell(point.X-radius), g.toCell(point.X+radius)
		minY, maxY := g.toCell(point.Y-radius), g.toCell(point.Y+radius)
		for cx := minX; cx <= maxX; cx++ {
			for cy := minY; cy <= maxY; cy++ {
				collect(g.cells[cellKey{cx: cx, cy: cy}])
			}
		}
	}
	slices.SortFunc(result, func(a, b *Entity) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result
}

// Len returns the number of registered entities.
func (g *Grid) Len() int { return len(g.where) }

// Clear removes every entity.
func (g *Grid) Clear() {
	clear(g.cells)
	clear(g.where)
}

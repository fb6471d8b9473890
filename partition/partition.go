// Package partition groups occupied cells into connected components.
package partition

import (
	"github.com/aukilabs/bigspace/cell"
)

// ID identifies a partition. Zero is never assigned.
type ID uint64

// Bounds is an axis aligned box of cells, both ends included.
type Bounds struct {
	Min cell.Coord
	Max cell.Coord
}

func boundsOf(c cell.Coord) Bounds {
	return Bounds{Min: c, Max: c}
}

func (b Bounds) Contains(c cell.Coord) bool {
	return c.Min(b.Min) == b.Min && c.Max(b.Max) == b.Max
}

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

func (b Bounds) Extend(c cell.Coord) Bounds {
	return Bounds{Min: b.Min.Min(c), Max: b.Max.Max(c)}
}

// OnBoundary reports whether c lies on one of the box faces.
func (b Bounds) OnBoundary(c cell.Coord) bool {
	return c.X == b.Min.X || c.X == b.Max.X ||
		c.Y == b.Min.Y || c.Y == b.Max.Y ||
		c.Z == b.Min.Z || c.Z == b.Max.Z
}

// Partition is a snapshot of a group of connected cells of a grid.
type Partition struct {
	ID     ID
	Grid   cell.GridID
	Cells  []cell.Key
	Bounds Bounds
}

func (p Partition) Len() int {
	return len(p.Cells)
}

type partition struct {
	id     ID
	grid   cell.GridID
	cells  map[cell.ID]cell.Key
	bounds Bounds
}

func newPartition(id ID, key cell.Key) *partition {
	return &partition{
		id:     id,
		grid:   key.Grid(),
		cells:  map[cell.ID]cell.Key{key.ID: key},
		bounds: boundsOf(key.Coord()),
	}
}

func (p *partition) add(key cell.Key) {
	p.cells[key.ID] = key
	p.bounds = p.bounds.Extend(key.Coord())
}

func (p *partition) computeBounds() {
	first := true
	for id := range p.cells {
		if first {
			p.bounds = boundsOf(id.Coord)
			first = false
			continue
		}
		p.bounds = p.bounds.Extend(id.Coord)
	}
}

package partition

import (
	"slices"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/spatial"
)

type component struct {
	cells []cell.Key
	first cell.ID
}

// split breaks a partition into its connected components. The largest
// component keeps the partition id. Components of equal size are ordered by
// their smallest cell.
func (l *Lookup) split(p *partition) {
	components := l.components(p)
	if len(components) <= 1 {
		return
	}

	slices.SortFunc(components, func(a, b component) int {
		if len(a.cells) != len(b.cells) {
			return len(b.cells) - len(a.cells)
		}
		return spatial.CompareIDs(a.first, b.first)
	})

	for _, c := range components[1:] {
		id := l.newID()
		np := &partition{
			id:    id,
			grid:  p.grid,
			cells: make(map[cell.ID]cell.Key, len(c.cells)),
		}

		for _, k := range c.cells {
			delete(p.cells, k.ID)
			np.cells[k.ID] = k
			l.reverse[k.ID] = id
			l.reassigned[k.ID] = k
		}
		np.computeBounds()

		l.partitions[id] = np
		l.report.Split++
	}
	p.computeBounds()
}

// components flood fills the cells of a partition.
func (l *Lookup) components(p *partition) []component {
	visited := make(map[cell.ID]struct{}, len(p.cells))
	var components []component

	seeds := make([]cell.Key, 0, len(p.cells))
	for _, k := range p.cells {
		seeds = append(seeds, k)
	}
	spatial.SortKeys(seeds)

	for _, seed := range seeds {
		if _, ok := visited[seed.ID]; ok {
			continue
		}
		visited[seed.ID] = struct{}{}

		c := component{cells: []cell.Key{seed}, first: seed.ID}
		for i := 0; i < len(c.cells); i++ {
			coords, _ := c.cells[i].Coord().Neighbors(l.precision, l.adjacency, 1)
			for _, coord := range coords {
				id := cell.NewID(p.grid, coord)
				if _, ok := visited[id]; ok {
					continue
				}
				k, ok := p.cells[id]
				if !ok {
					continue
				}
				visited[id] = struct{}{}
				c.cells = append(c.cells, k)
			}
		}
		components = append(components, c)
	}
	return components
}

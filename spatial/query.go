package spatial

import (
	"github.com/aukilabs/bigspace/cell"
)

// Neighbors returns the occupied cells within radius of key under the lookup
// adjacency. The cell itself is not included.
func (l *Lookup) Neighbors(key cell.Key, radius int) []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key = cell.KeyOf(key.ID)
	if radius == 1 {
		if e := l.get(key); e != nil {
			neighbors := append([]cell.Key(nil), e.neighbors...)
			SortKeys(neighbors)
			return neighbors
		}
	}

	coords, _ := key.Coord().Neighbors(l.precision, l.adjacency, radius)
	var neighbors []cell.Key
	for _, c := range coords {
		if e := l.get(key.WithCoord(c)); e != nil {
			neighbors = append(neighbors, e.key)
		}
	}
	SortKeys(neighbors)
	return neighbors
}

// Nearby returns the cell, when occupied, followed by its occupied neighbors.
func (l *Lookup) Nearby(key cell.Key) []cell.Key {
	key = cell.KeyOf(key.ID)

	l.mutex.RLock()
	e := l.get(key)
	l.mutex.RUnlock()

	if e == nil {
		return l.Neighbors(key, 1)
	}
	return append([]cell.Key{key}, l.Neighbors(key, 1)...)
}

// WithinCube returns the occupied cells of the cube of the given radius
// centered on key, the center included.
func (l *Lookup) WithinCube(key cell.Key, radius int) []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key = cell.KeyOf(key.ID)
	var cells []cell.Key
	if e := l.get(key); e != nil {
		cells = append(cells, e.key)
	}

	coords, _ := key.Coord().Neighbors(l.precision, cell.Full, radius)
	for _, c := range coords {
		if e := l.get(key.WithCoord(c)); e != nil {
			cells = append(cells, e.key)
		}
	}
	SortKeys(cells)
	return cells
}

// EntitiesWithinCube returns the entities of every occupied cell of the cube.
func (l *Lookup) EntitiesWithinCube(key cell.Key, radius int) []uint32 {
	var entities []uint32
	for _, k := range l.WithinCube(key, radius) {
		entities = append(entities, l.EntitiesIn(k)...)
	}
	return entities
}

// Flood returns the occupied cells connected to seed, seed included, in
// breadth first order. A non negative maxDepth stops the search at that
// Chebyshev distance from seed.
func (l *Lookup) Flood(seed cell.Key, maxDepth int) []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.flood(seed, maxDepth, nil)
}

// FloodFunc is like Flood with a predicate restricting the cells walked
// through.
func (l *Lookup) FloodFunc(seed cell.Key, maxDepth int, include func(cell.Key) bool) []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.flood(seed, maxDepth, include)
}

func (l *Lookup) flood(seed cell.Key, maxDepth int, include func(cell.Key) bool) []cell.Key {
	seed = cell.KeyOf(seed.ID)
	start := l.get(seed)
	if start == nil || (include != nil && !include(start.key)) {
		return nil
	}

	visited := map[cell.ID]struct{}{seed.ID: {}}
	result := []cell.Key{start.key}

	for i := 0; i < len(result); i++ {
		e := l.get(result[i])
		for _, n := range e.neighbors {
			if _, ok := visited[n.ID]; ok {
				continue
			}
			if maxDepth >= 0 && n.Coord().Chebyshev(seed.Coord()) > int64(maxDepth) {
				continue
			}
			if include != nil && !include(n) {
				continue
			}
			visited[n.ID] = struct{}{}
			result = append(result, n)
		}
	}
	return result
}

// Package spatial maintains an index of the cells occupied by entities.
package spatial

import (
	"cmp"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/aukilabs/bigspace/cell"
)

// entry is an occupied cell.
type entry struct {
	key       cell.Key
	entities  *roaring.Bitmap
	neighbors []cell.Key
}

// Lookup is a bidirectional map between entities and the cells they occupy.
//
// Cells are bucketed by their hash and compared by full id, so a hash
// collision never merges two cells. Keys given by callers are rehashed from
// their id before use.
type Lookup struct {
	mutex     sync.RWMutex
	precision cell.Precision
	adjacency cell.Adjacency

	buckets map[cell.Hash][]*entry
	cells   int
	reverse map[uint32]cell.Key

	newlyOccupied map[cell.ID]cell.Key
	newlyEmptied  map[cell.ID]cell.Key

	pool []*entry
}

func NewLookup(p cell.Precision, a cell.Adjacency) *Lookup {
	return &Lookup{
		precision:     p,
		adjacency:     a,
		buckets:       make(map[cell.Hash][]*entry),
		reverse:       make(map[uint32]cell.Key),
		newlyOccupied: make(map[cell.ID]cell.Key),
		newlyEmptied:  make(map[cell.ID]cell.Key),
	}
}

func (l *Lookup) Precision() cell.Precision {
	return l.precision
}

func (l *Lookup) Adjacency() cell.Adjacency {
	return l.adjacency
}

// InsertOrUpdate places an entity in a cell. It returns false without doing
// anything when the entity is already in that cell.
func (l *Lookup) InsertOrUpdate(entity uint32, key cell.Key) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	key = cell.KeyOf(key.ID)
	if previous, ok := l.reverse[entity]; ok {
		if previous.ID == key.ID {
			return false
		}
		l.removeLocked(entity, previous)
	}

	e := l.get(key)
	if e == nil {
		e = l.occupy(key)
	}
	e.entities.Add(entity)
	l.reverse[entity] = key
	return true
}

// Remove removes an entity from the index. It returns false if the entity was
// not indexed.
func (l *Lookup) Remove(entity uint32) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	key, ok := l.reverse[entity]
	if !ok {
		return false
	}
	l.removeLocked(entity, key)
	return true
}

// CellOf returns the cell an entity is in.
func (l *Lookup) CellOf(entity uint32) (cell.Key, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key, ok := l.reverse[entity]
	return key, ok
}

// Contains reports whether a cell is occupied.
func (l *Lookup) Contains(key cell.Key) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key = cell.KeyOf(key.ID)
	return l.get(key) != nil
}

// EntitiesIn returns the entities in a cell in ascending order.
func (l *Lookup) EntitiesIn(key cell.Key) []uint32 {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key = cell.KeyOf(key.ID)
	e := l.get(key)
	if e == nil {
		return nil
	}
	return e.entities.ToArray()
}

// CountIn returns the number of entities in a cell.
func (l *Lookup) CountIn(key cell.Key) int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	key = cell.KeyOf(key.ID)
	e := l.get(key)
	if e == nil {
		return 0
	}
	return int(e.entities.GetCardinality())
}

// Len returns the number of occupied cells.
func (l *Lookup) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.cells
}

// EntityCount returns the number of indexed entities.
func (l *Lookup) EntityCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.reverse)
}

// Cells returns the occupied cells.
func (l *Lookup) Cells() []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	keys := make([]cell.Key, 0, l.cells)
	for _, bucket := range l.buckets {
		for _, e := range bucket {
			keys = append(keys, e.key)
		}
	}
	SortKeys(keys)
	return keys
}

// BeginPass clears the occupancy changes recorded by the previous maintenance
// pass.
func (l *Lookup) BeginPass() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	clear(l.newlyOccupied)
	clear(l.newlyEmptied)
}

// NewlyOccupied returns the cells that became occupied since BeginPass.
func (l *Lookup) NewlyOccupied() []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return sortedKeys(l.newlyOccupied)
}

// NewlyEmptied returns the cells that became empty since BeginPass. A cell
// emptied then occupied again during the pass is in neither set.
func (l *Lookup) NewlyEmptied() []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return sortedKeys(l.newlyEmptied)
}

func (l *Lookup) get(key cell.Key) *entry {
	for _, e := range l.buckets[key.Hash] {
		if e.key.ID == key.ID {
			return e
		}
	}
	return nil
}

func (l *Lookup) occupy(key cell.Key) *entry {
	var e *entry
	if n := len(l.pool); n != 0 {
		e = l.pool[n-1]
		l.pool = l.pool[:n-1]
		e.key = key
	} else {
		e = &entry{key: key, entities: roaring.New()}
	}

	l.buckets[key.Hash] = append(l.buckets[key.Hash], e)
	l.cells++

	neighbors, _ := key.Coord().Neighbors(l.precision, l.adjacency, 1)
	for _, c := range neighbors {
		n := l.get(key.WithCoord(c))
		if n == nil {
			continue
		}
		e.neighbors = append(e.neighbors, n.key)
		n.neighbors = append(n.neighbors, key)
	}

	if _, ok := l.newlyEmptied[key.ID]; ok {
		delete(l.newlyEmptied, key.ID)
	} else {
		l.newlyOccupied[key.ID] = key
	}
	return e
}

func (l *Lookup) removeLocked(entity uint32, key cell.Key) {
	delete(l.reverse, entity)

	e := l.get(key)
	if e == nil {
		return
	}

	e.entities.Remove(entity)
	if !e.entities.IsEmpty() {
		return
	}
	l.vacate(e)
}

func (l *Lookup) vacate(e *entry) {
	key := e.key

	bucket := l.buckets[key.Hash]
	for i, v := range bucket {
		if v == e {
			bucket = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(l.buckets, key.Hash)
	} else {
		l.buckets[key.Hash] = bucket
	}
	l.cells--

	for _, nk := range e.neighbors {
		n := l.get(nk)
		if n == nil {
			continue
		}
		n.neighbors = slices.DeleteFunc(n.neighbors, func(k cell.Key) bool {
			return k.ID == key.ID
		})
	}

	if _, ok := l.newlyOccupied[key.ID]; ok {
		delete(l.newlyOccupied, key.ID)
	} else {
		l.newlyEmptied[key.ID] = key
	}

	e.neighbors = e.neighbors[:0]
	e.entities.Clear()
	l.pool = append(l.pool, e)
}

func sortedKeys(m map[cell.ID]cell.Key) []cell.Key {
	keys := make([]cell.Key, 0, len(m))
	for _, k := range m {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// SortKeys sorts keys by grid then by coordinate.
func SortKeys(keys []cell.Key) {
	slices.SortFunc(keys, func(a, b cell.Key) int {
		return CompareIDs(a.ID, b.ID)
	})
}

// CompareIDs orders ids by grid then by x, y and z.
func CompareIDs(a, b cell.ID) int {
	return cmp.Or(
		cmp.Compare(a.Grid, b.Grid),
		a.Coord.X.Cmp(b.Coord.X),
		a.Coord.Y.Cmp(b.Coord.Y),
		a.Coord.Z.Cmp(b.Coord.Z),
	)
}

package partition

import (
	"slices"
	"sync"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/spatial"
)

// Report summarizes the partition changes of a maintenance pass.
type Report struct {
	Created   int
	Merged    int
	Split     int
	Destroyed int
}

// Lookup maintains the grouping of occupied cells into partitions: maximal
// sets of cells of a grid connected under the lookup adjacency.
//
// Occupied cells are merged into their neighbor partitions right away.
// Vacated cells are removed right away too, but detecting whether a removal
// split a partition and tightening its bounds are deferred to Commit. Between
// a vacated cell and the next Commit, a partition may be disconnected and its
// bounds may be larger than its cells.
type Lookup struct {
	mutex     sync.RWMutex
	precision cell.Precision
	adjacency cell.Adjacency

	partitions map[ID]*partition
	reverse    map[cell.ID]ID
	nextID     ID

	splitCandidates map[ID]struct{}
	staleBounds     map[ID]struct{}
	reassigned      map[cell.ID]cell.Key
	report          Report
}

func NewLookup(p cell.Precision, a cell.Adjacency) *Lookup {
	return &Lookup{
		precision:       p,
		adjacency:       a,
		partitions:      make(map[ID]*partition),
		reverse:         make(map[cell.ID]ID),
		splitCandidates: make(map[ID]struct{}),
		staleBounds:     make(map[ID]struct{}),
		reassigned:      make(map[cell.ID]cell.Key),
	}
}

// Update applies the occupancy changes recorded by a cell lookup since its
// last BeginPass and commits them.
func (l *Lookup) Update(cells *spatial.Lookup) Report {
	occupied := cells.NewlyOccupied()
	emptied := cells.NewlyEmptied()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.report = Report{}
	clear(l.reassigned)

	for _, key := range occupied {
		l.onCellOccupied(key)
	}
	for _, key := range emptied {
		l.onCellVacated(key)
	}
	l.commit()
	return l.report
}

// OnCellOccupied adds a cell to the partition of its occupied neighbors,
// merging them when there are several.
func (l *Lookup) OnCellOccupied(key cell.Key) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.onCellOccupied(key)
}

// OnCellVacated removes a cell from its partition.
func (l *Lookup) OnCellVacated(key cell.Key) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.onCellVacated(key)
}

// Commit splits the partitions disconnected by vacated cells and recomputes
// stale bounds. It returns the changes since the previous commit.
func (l *Lookup) Commit() Report {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.commit()
	report := l.report
	l.report = Report{}
	return report
}

// PartitionOf returns the partition of a cell.
func (l *Lookup) PartitionOf(key cell.Key) (ID, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	id, ok := l.reverse[key.ID]
	return id, ok
}

// BoundsOf returns the bounding box of a partition.
func (l *Lookup) BoundsOf(id ID) (Bounds, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	p, ok := l.partitions[id]
	if !ok {
		return Bounds{}, false
	}
	return p.bounds, true
}

// Get returns a snapshot of a partition.
func (l *Lookup) Get(id ID) (Partition, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	p, ok := l.partitions[id]
	if !ok {
		return Partition{}, false
	}

	cells := make([]cell.Key, 0, len(p.cells))
	for _, k := range p.cells {
		cells = append(cells, k)
	}
	spatial.SortKeys(cells)

	return Partition{
		ID:     p.id,
		Grid:   p.grid,
		Cells:  cells,
		Bounds: p.bounds,
	}, true
}

// IDs returns the partition ids in ascending order.
func (l *Lookup) IDs() []ID {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	ids := make([]ID, 0, len(l.partitions))
	for id := range l.partitions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of partitions.
func (l *Lookup) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.partitions)
}

// Reassigned returns the cells whose partition changed during the last
// Update: newly occupied, merged and split off cells.
func (l *Lookup) Reassigned() []cell.Key {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	keys := make([]cell.Key, 0, len(l.reassigned))
	for _, k := range l.reassigned {
		keys = append(keys, k)
	}
	spatial.SortKeys(keys)
	return keys
}

func (l *Lookup) newID() ID {
	l.nextID++
	return l.nextID
}

func (l *Lookup) neighborPartitions(key cell.Key) []ID {
	coords, _ := key.Coord().Neighbors(l.precision, l.adjacency, 1)

	var ids []ID
	for _, c := range coords {
		id, ok := l.reverse[cell.NewID(key.Grid(), c)]
		if ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (l *Lookup) onCellOccupied(key cell.Key) {
	if _, ok := l.reverse[key.ID]; ok {
		return
	}

	l.reassigned[key.ID] = key

	ids := l.neighborPartitions(key)
	if len(ids) == 0 {
		id := l.newID()
		l.partitions[id] = newPartition(id, key)
		l.reverse[key.ID] = id
		l.report.Created++
		return
	}

	survivor := l.partitions[ids[0]]
	survivor.add(key)
	l.reverse[key.ID] = survivor.id

	for _, id := range ids[1:] {
		l.merge(survivor, l.partitions[id])
	}
}

// merge moves the cells of p into survivor and deletes p.
func (l *Lookup) merge(survivor, p *partition) {
	for id, k := range p.cells {
		survivor.cells[id] = k
		l.reverse[id] = survivor.id
		l.reassigned[id] = k
	}
	survivor.bounds = survivor.bounds.Union(p.bounds)

	if _, ok := l.splitCandidates[p.id]; ok {
		l.splitCandidates[survivor.id] = struct{}{}
		delete(l.splitCandidates, p.id)
	}
	if _, ok := l.staleBounds[p.id]; ok {
		l.staleBounds[survivor.id] = struct{}{}
		delete(l.staleBounds, p.id)
	}

	delete(l.partitions, p.id)
	l.report.Merged++
}

func (l *Lookup) onCellVacated(key cell.Key) {
	id, ok := l.reverse[key.ID]
	if !ok {
		return
	}

	p := l.partitions[id]
	delete(p.cells, key.ID)
	delete(l.reverse, key.ID)
	delete(l.reassigned, key.ID)

	if len(p.cells) == 0 {
		delete(l.partitions, id)
		delete(l.splitCandidates, id)
		delete(l.staleBounds, id)
		l.report.Destroyed++
		return
	}

	if p.bounds.OnBoundary(key.Coord()) {
		l.staleBounds[id] = struct{}{}
	}

	// Removing a cell with a single neighbor in the partition cannot
	// disconnect it.
	coords, _ := key.Coord().Neighbors(l.precision, l.adjacency, 1)
	neighbors := 0
	for _, c := range coords {
		if l.reverse[cell.NewID(key.Grid(), c)] == id {
			neighbors++
		}
	}
	if neighbors >= 2 {
		l.splitCandidates[id] = struct{}{}
	}
}

func (l *Lookup) commit() {
	candidates := make([]ID, 0, len(l.splitCandidates))
	for id := range l.splitCandidates {
		candidates = append(candidates, id)
	}
	slices.Sort(candidates)
	clear(l.splitCandidates)

	for _, id := range candidates {
		if p, ok := l.partitions[id]; ok {
			l.split(p)
		}
	}

	for id := range l.staleBounds {
		if p, ok := l.partitions[id]; ok {
			p.computeBounds()
		}
	}
	clear(l.staleBounds)
}

package dagaz

import (
	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/partition"
	"github.com/aukilabs/bigspace/spatial"
)

// State is the index of a module. It is registered in the world under the
// module name.
type State struct {
	Filter     Filter
	Cells      *spatial.Lookup
	Partitions *partition.Lookup
	Tracker    *partition.Tracker
}

func newState(f Filter, p cell.Precision, a cell.Adjacency) *State {
	return &State{
		Filter:     f,
		Cells:      spatial.NewLookup(p, a),
		Partitions: partition.NewLookup(p, a),
		Tracker:    partition.NewTracker(),
	}
}

// SameCell returns the entities sharing the cell of an entity, the entity
// included.
func (s *State) SameCell(entity uint32) []uint32 {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return nil
	}
	return s.Cells.EntitiesIn(key)
}

// Neighbors returns the occupied cells adjacent to the cell of an entity.
func (s *State) Neighbors(entity uint32) []cell.Key {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return nil
	}
	return s.Cells.Neighbors(key, 1)
}

// Nearby returns the entities in the cell of an entity and in its occupied
// neighbor cells.
func (s *State) Nearby(entity uint32) []uint32 {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return nil
	}

	var entities []uint32
	for _, k := range s.Cells.Nearby(key) {
		entities = append(entities, s.Cells.EntitiesIn(k)...)
	}
	return entities
}

// WithinCube returns the entities within radius cells of an entity on every
// axis.
func (s *State) WithinCube(entity uint32, radius int) []uint32 {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return nil
	}
	return s.Cells.EntitiesWithinCube(key, radius)
}

// Flood returns the occupied cells connected to the cell of an entity, within
// maxDepth steps. A negative maxDepth is unlimited.
func (s *State) Flood(entity uint32, maxDepth int) []cell.Key {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return nil
	}
	return s.Cells.Flood(key, maxDepth)
}

// PartitionOf returns the partition of an entity.
func (s *State) PartitionOf(entity uint32) (partition.ID, bool) {
	key, ok := s.Cells.CellOf(entity)
	if !ok {
		return 0, false
	}
	return s.Partitions.PartitionOf(key)
}

// Partition returns a snapshot of a partition.
func (s *State) Partition(id partition.ID) (partition.Partition, bool) {
	return s.Partitions.Get(id)
}

// Changes returns the entities that changed partition during the last frame.
func (s *State) Changes() map[uint32]partition.Change {
	return s.Tracker.Changes()
}

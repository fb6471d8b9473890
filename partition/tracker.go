package partition

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/aukilabs/bigspace/spatial"
)

// Change is the partition move of an entity. A zero ID means the entity was
// not in any partition.
type Change struct {
	From ID
	To   ID
}

// Tracker follows which partition every indexed entity is in and records the
// entities that changed partition during the last update.
type Tracker struct {
	mutex   sync.RWMutex
	current map[uint32]ID
	changes map[uint32]Change
}

func NewTracker() *Tracker {
	return &Tracker{
		current: make(map[uint32]ID),
		changes: make(map[uint32]Change),
	}
}

// Update refreshes the partition of the given moved entities and of the
// entities in cells reassigned by the last partition update. Removed entities
// are forgotten.
func (t *Tracker) Update(cells *spatial.Lookup, partitions *Lookup, moved, removed []uint32) {
	candidates := roaring.BitmapOf(moved...)
	for _, key := range partitions.Reassigned() {
		candidates.AddMany(cells.EntitiesIn(key))
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	clear(t.changes)

	for _, entity := range removed {
		t.forget(entity)
	}

	it := candidates.Iterator()
	for it.HasNext() {
		entity := it.Next()

		key, ok := cells.CellOf(entity)
		if !ok {
			t.forget(entity)
			continue
		}

		to, ok := partitions.PartitionOf(key)
		if !ok {
			t.forget(entity)
			continue
		}

		if from := t.current[entity]; from != to {
			t.changes[entity] = Change{From: from, To: to}
		}
		t.current[entity] = to
	}
}

// PartitionOf returns the partition of an entity as of the last update.
func (t *Tracker) PartitionOf(entity uint32) (ID, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	id, ok := t.current[entity]
	return id, ok
}

// Changes returns the entities that changed partition during the last update.
func (t *Tracker) Changes() map[uint32]Change {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	changes := make(map[uint32]Change, len(t.changes))
	for k, v := range t.changes {
		changes[k] = v
	}
	return changes
}

func (t *Tracker) forget(entity uint32) {
	from, ok := t.current[entity]
	if !ok {
		return
	}
	delete(t.current, entity)
	t.changes[entity] = Change{From: from}
}

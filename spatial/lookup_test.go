package spatial

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/aukilabs/bigspace/cell"
	"github.com/stretchr/testify/require"
)

func key(x, y, z int64) cell.Key {
	return cell.NewKey(1, cell.NewCoord(x, y, z))
}

func TestLookupInsertOrUpdate(t *testing.T) {
	t.Run("entity is inserted", func(t *testing.T) {
		l := NewLookup(cell.Precision64, cell.Full)

		require.True(t, l.InsertOrUpdate(11, key(0, 0, 0)))
		require.Equal(t, []uint32{11}, l.EntitiesIn(key(0, 0, 0)))
		require.Equal(t, 1, l.Len())
		require.Equal(t, 1, l.EntityCount())

		k, ok := l.CellOf(11)
		require.True(t, ok)
		require.Equal(t, key(0, 0, 0), k)
	})

	t.Run("same cell is a no-op", func(t *testing.T) {
		l := NewLookup(cell.Precision64, cell.Full)
		require.True(t, l.InsertOrUpdate(11, key(0, 0, 0)))
		l.BeginPass()

		require.False(t, l.InsertOrUpdate(11, key(0, 0, 0)))
		require.Empty(t, l.NewlyOccupied())
		require.Empty(t, l.NewlyEmptied())
	})

	t.Run("entity moves between cells", func(t *testing.T) {
		l := NewLookup(cell.Precision64, cell.Full)
		l.InsertOrUpdate(11, key(0, 0, 0))
		l.InsertOrUpdate(12, key(0, 0, 0))
		l.BeginPass()

		require.True(t, l.InsertOrUpdate(11, key(5, 0, 0)))
		require.Equal(t, []uint32{12}, l.EntitiesIn(key(0, 0, 0)))
		require.Equal(t, []uint32{11}, l.EntitiesIn(key(5, 0, 0)))
		require.Equal(t, []cell.Key{key(5, 0, 0)}, l.NewlyOccupied())
		require.Empty(t, l.NewlyEmptied())

		require.True(t, l.InsertOrUpdate(12, key(5, 0, 0)))
		require.Nil(t, l.EntitiesIn(key(0, 0, 0)))
		require.Equal(t, []uint32{11, 12}, l.EntitiesIn(key(5, 0, 0)))
		require.Equal(t, []cell.Key{key(0, 0, 0)}, l.NewlyEmptied())
	})

	t.Run("grid is part of the cell identity", func(t *testing.T) {
		l := NewLookup(cell.Precision64, cell.Full)
		l.InsertOrUpdate(11, cell.NewKey(1, cell.Coord{}))
		l.InsertOrUpdate(12, cell.NewKey(2, cell.Coord{}))

		require.Equal(t, 2, l.Len())
		require.Equal(t, []uint32{12}, l.EntitiesIn(cell.NewKey(2, cell.Coord{})))
		require.Empty(t, l.Neighbors(cell.NewKey(1, cell.Coord{}), 1))
	})
}

func TestLookupRemove(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)
	l.InsertOrUpdate(11, key(0, 0, 0))
	l.BeginPass()

	require.True(t, l.Remove(11))
	require.False(t, l.Remove(11))
	require.False(t, l.Contains(key(0, 0, 0)))
	require.Zero(t, l.Len())
	require.Equal(t, []cell.Key{key(0, 0, 0)}, l.NewlyEmptied())

	_, ok := l.CellOf(11)
	require.False(t, ok)
}

func TestLookupCellVacatedAndRefilled(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)
	l.InsertOrUpdate(11, key(0, 0, 0))
	l.BeginPass()

	l.Remove(11)
	l.InsertOrUpdate(12, key(0, 0, 0))
	require.Empty(t, l.NewlyOccupied())
	require.Empty(t, l.NewlyEmptied())

	l.InsertOrUpdate(13, key(3, 0, 0))
	l.Remove(13)
	require.Empty(t, l.NewlyOccupied())
	require.Empty(t, l.NewlyEmptied())
}

func TestLookupHashCollision(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)

	a := cell.Key{ID: cell.NewID(1, cell.NewCoord(0, 0, 0)), Hash: 42}
	b := cell.Key{ID: cell.NewID(1, cell.NewCoord(100, 0, 0)), Hash: 42}

	ea := l.occupy(a)
	eb := l.occupy(b)
	require.Equal(t, 2, l.Len())
	require.Len(t, l.buckets[42], 2)
	require.Same(t, ea, l.get(a))
	require.Same(t, eb, l.get(b))

	l.vacate(ea)
	require.Nil(t, l.get(a))
	require.Same(t, eb, l.get(b))
	require.Equal(t, 1, l.Len())
}

func TestLookupRehashesKeys(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)

	unhashed := cell.Key{ID: cell.NewID(1, cell.NewCoord(3, 0, 0))}
	forged := cell.Key{ID: unhashed.ID, Hash: 99}

	require.True(t, l.InsertOrUpdate(7, unhashed))
	require.False(t, l.InsertOrUpdate(7, forged))
	require.True(t, l.InsertOrUpdate(8, forged))
	require.Equal(t, 1, l.Len())

	t.Run("queries match the canonical key", func(t *testing.T) {
		require.True(t, l.Contains(key(3, 0, 0)))
		require.Equal(t, []uint32{7, 8}, l.EntitiesIn(key(3, 0, 0)))
		require.Equal(t, 2, l.CountIn(unhashed))
		require.Equal(t, []cell.Key{key(3, 0, 0)}, l.WithinCube(forged, 1))
		require.Equal(t, []cell.Key{key(3, 0, 0)}, l.Flood(unhashed, -1))

		k, ok := l.CellOf(8)
		require.True(t, ok)
		require.Equal(t, key(3, 0, 0), k)
	})

	t.Run("removal empties the cell", func(t *testing.T) {
		require.True(t, l.Remove(7))
		require.True(t, l.Remove(8))
		require.Zero(t, l.Len())
		require.False(t, l.Contains(forged))
	})
}

func TestLookupNeighbors(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)
	l.InsertOrUpdate(1, key(0, 0, 0))
	l.InsertOrUpdate(2, key(1, 1, 1))
	l.InsertOrUpdate(3, key(2, 0, 0))
	l.InsertOrUpdate(4, key(-1, 0, 0))

	require.Equal(t, []cell.Key{key(-1, 0, 0), key(1, 1, 1)}, l.Neighbors(key(0, 0, 0), 1))
	require.Equal(t, []cell.Key{key(-1, 0, 0), key(1, 1, 1), key(2, 0, 0)}, l.Neighbors(key(0, 0, 0), 2))
	require.Equal(t, []cell.Key{key(0, 0, 0), key(1, 1, 1), key(2, 0, 0)}, l.Neighbors(key(1, 0, 0), 1))

	require.Equal(t, []cell.Key{key(0, 0, 0), key(-1, 0, 0), key(1, 1, 1)}, l.Nearby(key(0, 0, 0)))
	require.Equal(t, []cell.Key{key(-1, 0, 0), key(0, 0, 0), key(1, 1, 1)}, l.WithinCube(key(0, 0, 0), 1))
	require.Equal(t, []uint32{4, 1, 2}, l.EntitiesWithinCube(key(0, 0, 0), 1))

	t.Run("faces adjacency", func(t *testing.T) {
		l := NewLookup(cell.Precision64, cell.Faces)
		l.InsertOrUpdate(1, key(0, 0, 0))
		l.InsertOrUpdate(2, key(1, 1, 0))
		l.InsertOrUpdate(3, key(0, 1, 0))

		require.Equal(t, []cell.Key{key(0, 1, 0)}, l.Neighbors(key(0, 0, 0), 1))
	})

	t.Run("cache follows vacated cells", func(t *testing.T) {
		l.Remove(4)
		require.Equal(t, []cell.Key{key(1, 1, 1)}, l.Neighbors(key(0, 0, 0), 1))
	})
}

func TestLookupFlood(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Faces)
	for i := int64(0); i < 5; i++ {
		l.InsertOrUpdate(uint32(i+1), key(i, 0, 0))
	}
	l.InsertOrUpdate(10, key(10, 0, 0))

	require.Equal(t, []cell.Key{key(2, 0, 0), key(1, 0, 0), key(3, 0, 0), key(0, 0, 0), key(4, 0, 0)}, l.Flood(key(2, 0, 0), -1))
	require.Len(t, l.Flood(key(2, 0, 0), 1), 3)
	require.Equal(t, []cell.Key{key(10, 0, 0)}, l.Flood(key(10, 0, 0), -1))
	require.Nil(t, l.Flood(key(7, 0, 0), -1))

	filtered := l.FloodFunc(key(0, 0, 0), -1, func(k cell.Key) bool {
		return k.Coord().X != cell.Int64(3)
	})
	require.Len(t, filtered, 3)
}

func TestLookupConcurrentUpdates(t *testing.T) {
	l := NewLookup(cell.Precision64, cell.Full)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < 200; i++ {
				entity := uint32(w*1000 + i%20)
				l.InsertOrUpdate(entity, key(rng.Int63n(4), rng.Int63n(4), 0))
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, 8*20, l.EntityCount())

	total := 0
	for _, k := range l.Cells() {
		for _, entity := range l.EntitiesIn(k) {
			current, ok := l.CellOf(entity)
			require.True(t, ok)
			require.Equal(t, k, current)
			total++
		}
	}
	require.Equal(t, 8*20, total)
}

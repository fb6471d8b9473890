package models

import (
	"context"
	"testing"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) *World {
	w, err := NewWorld(42, grid.Default(), cell.Precision64)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestNewWorld(t *testing.T) {
	w := newTestWorld(t)
	require.NotEmpty(t, w.UUID)
	require.Equal(t, uint32(1), w.RootGrid())
	require.Equal(t, 1, w.EntityCount())

	t.Run("invalid precision", func(t *testing.T) {
		_, err := NewWorld(1, grid.Default(), cell.Precision(12))
		require.Error(t, err)
	})

	t.Run("invalid root grid", func(t *testing.T) {
		_, err := NewWorld(1, grid.Grid{}, cell.Precision64)
		require.True(t, errors.IsType(err, grid.ErrTypeInvalidGrid))
	})
}

func TestWorldSpawn(t *testing.T) {
	w := newTestWorld(t)

	id, err := w.Spawn(w.RootGrid(), cell.NewCoord(1, 2, 3), geom.TransformIdentity(), "ship", "ship")
	require.NoError(t, err)

	e, ok := w.EntityByID(id)
	require.True(t, ok)
	require.False(t, e.IsGrid())
	require.Equal(t, []string{"ship"}, e.Tags())
	require.Equal(t, cell.NewKey(w.RootGrid(), cell.NewCoord(1, 2, 3)), e.Key())

	t.Run("parent is not a grid", func(t *testing.T) {
		_, err := w.Spawn(id, cell.Coord{}, geom.TransformIdentity())
		require.True(t, errors.IsType(err, ErrTypeParentNotGrid))
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := w.Spawn(404, cell.Coord{}, geom.TransformIdentity())
		require.True(t, errors.IsType(err, ErrTypeUnknownEntity))
	})

	t.Run("cell out of precision", func(t *testing.T) {
		w, err := NewWorld(1, grid.Default(), cell.Precision8)
		require.NoError(t, err)
		defer w.Close()

		_, err = w.Spawn(w.RootGrid(), cell.NewCoord(1000, 0, 0), geom.TransformIdentity())
		require.True(t, errors.IsType(err, cell.ErrTypeOverflow))
	})
}

func TestWorldSpawnGrid(t *testing.T) {
	w := newTestWorld(t)

	planet, err := w.SpawnGrid(w.RootGrid(), cell.NewCoord(10, 0, 0), geom.TransformIdentity(), grid.Grid{CellEdgeLength: 1})
	require.NoError(t, err)

	e, ok := w.EntityByID(planet)
	require.True(t, ok)
	require.True(t, e.IsGrid())
	require.True(t, w.Tree().Contains(planet))

	c, tr, ok := w.GridPlacement(planet)
	require.True(t, ok)
	require.Equal(t, cell.NewCoord(10, 0, 0), c)
	require.Equal(t, geom.TransformIdentity(), tr)

	_, _, ok = w.GridPlacement(w.RootGrid())
	require.False(t, ok)

	t.Run("invalid grid", func(t *testing.T) {
		count := w.EntityCount()
		_, err := w.SpawnGrid(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), grid.Grid{})
		require.True(t, errors.IsType(err, grid.ErrTypeInvalidGrid))
		require.Equal(t, count, w.EntityCount())
	})
}

func TestWorldDespawn(t *testing.T) {
	w := newTestWorld(t)

	planet, err := w.SpawnGrid(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), grid.Default())
	require.NoError(t, err)
	ship, err := w.Spawn(planet, cell.Coord{}, geom.TransformIdentity())
	require.NoError(t, err)

	err = w.Despawn(planet)
	require.True(t, errors.IsType(err, grid.ErrTypeHasChildren))

	require.NoError(t, w.Despawn(ship))
	require.NoError(t, w.Despawn(planet))
	require.False(t, w.Tree().Contains(planet))

	err = w.Despawn(ship)
	require.True(t, errors.IsType(err, ErrTypeUnknownEntity))

	err = w.Despawn(w.RootGrid())
	require.True(t, errors.IsType(err, grid.ErrTypeRoot))

	f := w.NewFrame()
	require.Empty(t, f.Moved)
	require.Equal(t, []uint32{planet, ship}, f.Removed)
}

func TestWorldDespawnGridWithMembers(t *testing.T) {
	w := newTestWorld(t)

	station, err := w.SpawnGrid(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), grid.Default())
	require.NoError(t, err)
	crate, err := w.Spawn(station, cell.NewCoord(1, 0, 0), geom.TransformIdentity())
	require.NoError(t, err)
	drone, err := w.Spawn(station, cell.Coord{}, geom.TransformIdentity())
	require.NoError(t, err)
	require.Equal(t, 2, w.MemberCount(station))

	t.Run("rejected while members remain", func(t *testing.T) {
		err := w.Despawn(station)
		require.True(t, errors.IsType(err, grid.ErrTypeHasChildren))
		require.True(t, w.Tree().Contains(station))

		e, ok := w.EntityByID(crate)
		require.True(t, ok)
		require.Equal(t, station, e.Member().Grid)
	})

	t.Run("allowed once members left", func(t *testing.T) {
		require.NoError(t, w.Despawn(crate))
		require.Equal(t, 1, w.MemberCount(station))

		require.NoError(t, w.Reparent(drone, w.RootGrid(), cell.Coord{}, geom.TransformIdentity()))
		require.Zero(t, w.MemberCount(station))

		require.NoError(t, w.Despawn(station))
		require.False(t, w.Tree().Contains(station))
		w.NewFrame()
	})

	t.Run("reused id starts without members", func(t *testing.T) {
		hangar, err := w.SpawnGrid(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), grid.Default())
		require.NoError(t, err)
		require.Equal(t, station, hangar)
		require.Zero(t, w.MemberCount(hangar))

		for _, e := range w.Entities() {
			if e.ID != drone && e.ID != hangar && e.ID != w.RootGrid() {
				require.NotEqual(t, hangar, e.Member().Grid)
			}
		}
		require.NoError(t, w.Despawn(hangar))
	})
}

func TestWorldReparent(t *testing.T) {
	w := newTestWorld(t)
	root := w.RootGrid()

	a, err := w.SpawnGrid(root, cell.Coord{}, geom.TransformIdentity(), grid.Default())
	require.NoError(t, err)
	b, err := w.SpawnGrid(a, cell.Coord{}, geom.TransformIdentity(), grid.Default())
	require.NoError(t, err)
	ship, err := w.Spawn(root, cell.Coord{}, geom.TransformIdentity())
	require.NoError(t, err)

	t.Run("moves an entity", func(t *testing.T) {
		require.NoError(t, w.Reparent(ship, b, cell.NewCoord(1, 1, 1), geom.TransformIdentity()))

		e, _ := w.EntityByID(ship)
		require.Equal(t, cell.NewKey(b, cell.NewCoord(1, 1, 1)), e.Key())
	})

	t.Run("moves a grid", func(t *testing.T) {
		require.NoError(t, w.Reparent(b, root, cell.Coord{}, geom.TransformIdentity()))
		parent, _ := w.Tree().Parent(b)
		require.Equal(t, root, parent)
	})

	t.Run("rejects cycles", func(t *testing.T) {
		require.NoError(t, w.Reparent(b, a, cell.Coord{}, geom.TransformIdentity()))

		err := w.Reparent(a, b, cell.NewCoord(5, 5, 5), geom.TransformIdentity())
		require.True(t, errors.IsType(err, grid.ErrTypeCycle))

		e, _ := w.EntityByID(a)
		require.Equal(t, Member{Grid: root, Transform: geom.TransformIdentity()}, e.Member())
	})

	t.Run("parent is not a grid", func(t *testing.T) {
		err := w.Reparent(a, ship, cell.Coord{}, geom.TransformIdentity())
		require.True(t, errors.IsType(err, ErrTypeParentNotGrid))
	})

	t.Run("root is not a member", func(t *testing.T) {
		err := w.Reparent(root, a, cell.Coord{}, geom.TransformIdentity())
		require.True(t, errors.IsType(err, ErrTypeNotMember))
	})
}

func TestWorldSetTransform(t *testing.T) {
	w := newTestWorld(t)

	ship, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), "ship")
	require.NoError(t, err)
	w.NewFrame()

	require.NoError(t, w.SetTransform(ship, cell.NewCoord(3, 0, 0), geom.TransformFromTranslation(mgl32.Vec3{1, 2, 3})))
	require.NoError(t, w.Translate(ship, mgl32.Vec3{1, 0, 0}))

	e, _ := w.EntityByID(ship)
	m := e.Member()
	require.Equal(t, cell.NewCoord(3, 0, 0), m.Cell)
	require.Equal(t, mgl32.Vec3{2, 2, 3}, m.Transform.Translation)

	f := w.NewFrame()
	require.Equal(t, []Update{{
		Entity: ship,
		Key:    cell.NewKey(w.RootGrid(), cell.NewCoord(3, 0, 0)),
		Tags:   []string{"ship"},
	}}, f.Moved)

	require.Empty(t, w.NewFrame().Moved)

	err = w.Translate(404, mgl32.Vec3{})
	require.True(t, errors.IsType(err, ErrTypeUnknownEntity))
}

func TestWorldSetTags(t *testing.T) {
	w := newTestWorld(t)

	ship, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), "ship")
	require.NoError(t, err)
	w.NewFrame()

	require.NoError(t, w.SetTags(ship, "background", "ship"))
	e, _ := w.EntityByID(ship)
	require.True(t, e.HasTag("background"))

	f := w.NewFrame()
	require.Len(t, f.Moved, 1)
	require.Equal(t, []string{"background", "ship"}, f.Moved[0].Tags)
}

func TestWorldRecenter(t *testing.T) {
	t.Run("moves entities across cells", func(t *testing.T) {
		w := newTestWorld(t)

		ship, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformFromTranslation(mgl32.Vec3{2000, -4100, 999}))
		require.NoError(t, err)

		res, err := w.Recenter(context.Background(), 2)
		require.NoError(t, err)
		require.Equal(t, 1, res.Recentered)
		require.Empty(t, res.Skipped)

		e, _ := w.EntityByID(ship)
		m := e.Member()
		require.Equal(t, cell.NewCoord(1, -2, 0), m.Cell)
		require.Equal(t, mgl32.Vec3{0, -100, 999}, m.Transform.Translation)
		require.Equal(t, cell.NewKey(w.RootGrid(), cell.NewCoord(1, -2, 0)), e.Key())

		w.NewFrame()
		res, err = w.Recenter(context.Background(), 2)
		require.NoError(t, err)
		require.Zero(t, res.Recentered)
	})

	t.Run("skips stationary entities", func(t *testing.T) {
		w := newTestWorld(t)

		station, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformFromTranslation(mgl32.Vec3{5000, 0, 0}))
		require.NoError(t, err)
		require.NoError(t, w.SetStationary(station, true))

		res, err := w.Recenter(context.Background(), 1)
		require.NoError(t, err)
		require.Zero(t, res.Recentered)

		e, _ := w.EntityByID(station)
		require.True(t, e.Stationary())
		require.Equal(t, cell.Coord{}, e.Member().Cell)
	})

	t.Run("reports overflows", func(t *testing.T) {
		w, err := NewWorld(1, grid.Default(), cell.Precision8)
		require.NoError(t, err)
		defer w.Close()

		ship, err := w.Spawn(w.RootGrid(), cell.NewCoord(127, 0, 0), geom.TransformFromTranslation(mgl32.Vec3{3000, 0, 0}))
		require.NoError(t, err)
		other, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformFromTranslation(mgl32.Vec3{3000, 0, 0}))
		require.NoError(t, err)

		res, err := w.Recenter(context.Background(), 0)
		require.NoError(t, err)
		require.Equal(t, 1, res.Recentered)
		require.Equal(t, []uint32{ship}, res.Skipped)
		require.Len(t, res.Errors, 1)
		require.True(t, errors.IsType(res.Errors[0], cell.ErrTypeOverflow))

		e, _ := w.EntityByID(ship)
		require.Equal(t, cell.NewCoord(127, 0, 0), e.Member().Cell)

		f := w.NewFrame(res.Skipped...)
		require.Equal(t, []uint32{ship, other}, f.MovedIDs())
		require.Equal(t, e.Key(), f.Moved[0].Key)
		require.Equal(t, 1, f.Stats.Skipped)

		f = w.NewFrame()
		require.Equal(t, []uint32{ship}, f.MovedIDs())
		require.Zero(t, f.Stats.Skipped)
	})

	t.Run("cancelled context", func(t *testing.T) {
		w := newTestWorld(t)
		_, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = w.Recenter(ctx, 1)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorldFloatingOrigin(t *testing.T) {
	w := newTestWorld(t)

	_, ok, err := w.ResolveOrigin()
	require.False(t, ok)
	require.True(t, errors.IsType(err, ErrTypeOriginMissing))

	camera, err := w.Spawn(w.RootGrid(), cell.NewCoord(4, 0, 0), geom.TransformIdentity())
	require.NoError(t, err)
	other, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity())
	require.NoError(t, err)

	require.NoError(t, w.SetFloatingOrigin(camera))
	require.NoError(t, w.SetFloatingOrigin(camera))

	err = w.SetFloatingOrigin(other)
	require.True(t, errors.IsType(err, ErrTypeOriginDuplicate))

	err = w.SetFloatingOrigin(404)
	require.True(t, errors.IsType(err, ErrTypeUnknownEntity))

	origin, ok, err := w.ResolveOrigin()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, w.RootGrid(), origin.Grid)
	require.Equal(t, cell.NewCoord(4, 0, 0), origin.Cell)

	t.Run("falls back to the last valid origin", func(t *testing.T) {
		require.NoError(t, w.Despawn(camera))

		fallback, ok, err := w.ResolveOrigin()
		require.True(t, errors.IsType(err, ErrTypeOriginMissing))
		require.True(t, ok)
		require.Equal(t, origin, fallback)

		require.NoError(t, w.SetFloatingOrigin(other))
		id, set := w.FloatingOrigin()
		require.True(t, set)
		require.Equal(t, other, id)
	})

	t.Run("grid origin", func(t *testing.T) {
		planet, err := w.SpawnGrid(w.RootGrid(), cell.NewCoord(9, 9, 9), geom.TransformIdentity(), grid.Default())
		require.NoError(t, err)

		w.ClearFloatingOrigin()
		require.NoError(t, w.SetFloatingOrigin(planet))

		origin, ok, err := w.ResolveOrigin()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, planet, origin.Grid)
		require.Equal(t, cell.Coord{}, origin.Cell)
	})
}

func TestWorldModuleState(t *testing.T) {
	w := newTestWorld(t)

	_, ok := w.ModuleState("test")
	require.False(t, ok)

	w.SetModuleState("test", 21)
	state, ok := w.ModuleState("test")
	require.True(t, ok)
	require.Equal(t, 21, state)
}

func TestWorldHandleFrame(t *testing.T) {
	w := newTestWorld(t)

	var frames []uint64
	cancel := w.HandleFrame(func(s FrameStats) {
		frames = append(frames, s.Frame)
	})

	w.NotifyFrame(w.NewFrame().Stats)
	w.NotifyFrame(w.NewFrame().Stats)
	cancel()
	w.NotifyFrame(w.NewFrame().Stats)

	require.Equal(t, []uint64{1, 2}, frames)
	require.Equal(t, uint64(3), w.Frames())
}

func TestWorldRenderTransforms(t *testing.T) {
	w := newTestWorld(t)

	ship, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity())
	require.NoError(t, err)

	_, ok := w.RenderTransform(ship)
	require.False(t, ok)

	tr := mgl32.Translate3D(1, 2, 3)
	w.SetRenderTransforms(map[uint32]mgl32.Mat4{ship: tr})

	got, ok := w.RenderTransform(ship)
	require.True(t, ok)
	require.Equal(t, tr, got)
	require.Len(t, w.RenderTransforms(), 1)

	require.NoError(t, w.Despawn(ship))
	_, ok = w.RenderTransform(ship)
	require.False(t, ok)
}

func TestWorldMembers(t *testing.T) {
	w := newTestWorld(t)

	planet, err := w.SpawnGrid(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), grid.Default())
	require.NoError(t, err)
	_, err = w.Spawn(planet, cell.NewCoord(1, 0, 0), geom.TransformIdentity())
	require.NoError(t, err)

	members := w.Members()
	require.Len(t, members, 2)
	for _, m := range members {
		require.NotEqual(t, w.RootGrid(), m.Entity)
	}
}

package models

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	ErrTypeUnknownEntity   = "world-unknown-entity"
	ErrTypeParentNotGrid   = "world-parent-not-grid"
	ErrTypeNotMember       = "world-not-member"
	ErrTypeOriginMissing   = "world-origin-missing"
	ErrTypeOriginDuplicate = "world-origin-duplicate"
)

// World contains grids and the entities positioned in them.
type World struct {
	ID        uint32
	UUID      string
	Precision cell.Precision

	entityIDs IDPool
	mutex     sync.RWMutex
	entities  map[uint32]*Entity
	members   map[grid.ID]int
	tree      *grid.Tree
	dirty     map[uint32]struct{}
	despawned map[uint32]struct{}
	origin    originState

	moduleMutex  sync.RWMutex
	moduleStates map[string]any

	frames          atomic.Uint64
	frameMutex      sync.RWMutex
	frameHandlerIDs IDPool
	frameHandlers   map[uint32]func(FrameStats)

	transformMutex sync.RWMutex
	transforms     map[uint32]mgl32.Mat4

	closeOnce sync.Once
}

// NewWorld creates a world with a root grid.
func NewWorld(id uint32, root grid.Grid, p cell.Precision) (*World, error) {
	if !p.Valid() {
		return nil, errors.New("unsupported cell precision").WithTag("precision", uint8(p))
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		ID:            id,
		UUID:          uuid.New().String(),
		Precision:     p,
		entities:      make(map[uint32]*Entity),
		members:       make(map[grid.ID]int),
		dirty:         make(map[uint32]struct{}),
		despawned:     make(map[uint32]struct{}),
		moduleStates:  make(map[string]any),
		frameHandlers: make(map[uint32]func(FrameStats)),
		transforms:    make(map[uint32]mgl32.Mat4),
	}

	rootID := w.entityIDs.New()
	w.tree = grid.NewTree(rootID, root)
	w.entities[rootID] = &Entity{ID: rootID, isGrid: true}

	instrumentIncreaseWorldGauge()
	return w, nil
}

// Close releases the world metrics.
func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.mutex.RLock()
		defer w.mutex.RUnlock()

		for _, e := range w.entities {
			if e.ID != w.tree.Root() {
				instrumentDespawn(w.UUID, e.isGrid)
			}
		}
		instrumentDecreaseWorldGauge()
	})
}

// RootGrid returns the id of the grid holding the whole world.
func (w *World) RootGrid() grid.ID {
	return w.tree.Root()
}

// Tree returns the grid hierarchy.
func (w *World) Tree() *grid.Tree {
	return w.tree
}

// SpawnGrid adds a grid as a member of a parent grid.
func (w *World) SpawnGrid(parent grid.ID, c cell.Coord, t geom.Transform, g grid.Grid, tags ...string) (uint32, error) {
	return w.spawn(Member{Grid: parent, Cell: c, Transform: t}, &g, tags)
}

// Spawn adds an entity as a member of a parent grid.
func (w *World) Spawn(parent grid.ID, c cell.Coord, t geom.Transform, tags ...string) (uint32, error) {
	return w.spawn(Member{Grid: parent, Cell: c, Transform: t}, nil, tags)
}

func (w *World) spawn(m Member, g *grid.Grid, tags []string) (uint32, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.checkMember(m); err != nil {
		return 0, err
	}

	id := w.entityIDs.New()
	if g != nil {
		if err := w.tree.Insert(id, m.Grid, *g); err != nil {
			w.entityIDs.Release(id)
			return 0, err
		}
	}

	e := &Entity{ID: id, isGrid: g != nil}
	e.setMember(m)
	e.setTags(tags)

	w.entities[id] = e
	w.members[m.Grid]++
	w.dirty[id] = struct{}{}
	delete(w.despawned, id)

	instrumentSpawn(w.UUID, e.isGrid)
	return id, nil
}

// Despawn removes an entity. Grids can only be despawned once no entity is
// positioned in them.
func (w *World) Despawn(id uint32) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.entity(id)
	if err != nil {
		return err
	}

	if id == w.tree.Root() {
		return errors.New("root grid cannot be despawned").
			WithType(grid.ErrTypeRoot).
			WithTag("entity_id", id)
	}

	if e.isGrid {
		if n := w.members[id]; n != 0 {
			return errors.New("grid still has members").
				WithType(grid.ErrTypeHasChildren).
				WithTag("entity_id", id).
				WithTag("members", n)
		}

		if err := w.tree.Detach(id); err != nil {
			return err
		}
		delete(w.members, id)
	}

	w.removeMember(e.Member().Grid)
	delete(w.entities, id)
	delete(w.dirty, id)
	w.despawned[id] = struct{}{}

	w.transformMutex.Lock()
	delete(w.transforms, id)
	w.transformMutex.Unlock()

	instrumentDespawn(w.UUID, e.isGrid)
	return nil
}

// Reparent moves an entity into another grid.
func (w *World) Reparent(id uint32, parent grid.ID, c cell.Coord, t geom.Transform) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.member(id)
	if err != nil {
		return err
	}

	m := Member{Grid: parent, Cell: c, Transform: t}
	if err := w.checkMember(m); err != nil {
		return err
	}

	if e.isGrid {
		if err := w.tree.Attach(id, parent); err != nil {
			return err
		}
	}

	w.removeMember(e.Member().Grid)
	w.members[parent]++
	e.setMember(m)
	w.dirty[id] = struct{}{}
	return nil
}

// MemberCount returns the number of entities positioned in a grid.
func (w *World) MemberCount(id grid.ID) int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.members[id]
}

func (w *World) removeMember(g grid.ID) {
	if w.members[g]--; w.members[g] <= 0 {
		delete(w.members, g)
	}
}

// SetTransform places an entity at the given cell and local transform of its
// grid.
func (w *World) SetTransform(id uint32, c cell.Coord, t geom.Transform) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.member(id)
	if err != nil {
		return err
	}

	m := e.Member()
	m.Cell = c
	m.Transform = t
	if err := w.checkMember(m); err != nil {
		return err
	}

	e.setMember(m)
	w.dirty[id] = struct{}{}
	return nil
}

// Translate moves an entity by the given local offset. The entity is
// recentered during the next frame.
func (w *World) Translate(id uint32, offset mgl32.Vec3) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.member(id)
	if err != nil {
		return err
	}

	m := e.Member()
	m.Transform.Translation = m.Transform.Translation.Add(offset)
	e.setMember(m)
	w.dirty[id] = struct{}{}
	return nil
}

// SetStationary sets whether an entity is skipped by recentering.
func (w *World) SetStationary(id uint32, v bool) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.member(id)
	if err != nil {
		return err
	}

	e.setStationary(v)
	return nil
}

// SetTags replaces the tags of an entity. Tags decide which index modules track
// the entity.
func (w *World) SetTags(id uint32, tags ...string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	e, err := w.entity(id)
	if err != nil {
		return err
	}

	e.setTags(tags)
	w.dirty[id] = struct{}{}
	return nil
}

func (w *World) EntityByID(id uint32) (*Entity, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	e, ok := w.entities[id]
	return e, ok
}

// Entities returns the entities of the world sorted by id.
func (w *World) Entities() []*Entity {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	entities := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		entities = append(entities, e)
	}

	slices.SortFunc(entities, func(a, b *Entity) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return entities
}

func (w *World) EntityCount() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return len(w.entities)
}

// GridPlacement returns the cell and local transform of a grid within its
// parent.
func (w *World) GridPlacement(id grid.ID) (cell.Coord, geom.Transform, bool) {
	w.mutex.RLock()
	e, ok := w.entities[id]
	w.mutex.RUnlock()

	if !ok || !e.isGrid || id == w.tree.Root() {
		return cell.Coord{}, geom.Transform{}, false
	}

	m := e.Member()
	return m.Cell, m.Transform, true
}

// GridOrigin returns the position of the floating origin in the lattice of a
// grid, as of the last frame.
func (w *World) GridOrigin(id grid.ID) (grid.LocalOrigin, bool) {
	return w.tree.LocalOrigin(id)
}

func (w *World) SetModuleState(moduleName string, state any) {
	w.moduleMutex.Lock()
	defer w.moduleMutex.Unlock()

	w.moduleStates[moduleName] = state
}

func (w *World) ModuleState(moduleName string) (any, bool) {
	w.moduleMutex.RLock()
	defer w.moduleMutex.RUnlock()

	state, ok := w.moduleStates[moduleName]
	return state, ok
}

// HandleFrame registers a function called after every frame.
func (w *World) HandleFrame(h func(FrameStats)) (cancel func()) {
	w.frameMutex.Lock()
	defer w.frameMutex.Unlock()

	id := w.frameHandlerIDs.New()
	w.frameHandlers[id] = h

	return func() {
		w.frameMutex.Lock()
		defer w.frameMutex.Unlock()

		delete(w.frameHandlers, id)
		w.frameHandlerIDs.Release(id)
	}
}

// NotifyFrame calls the registered frame handlers.
func (w *World) NotifyFrame(stats FrameStats) {
	w.frameMutex.RLock()
	defer w.frameMutex.RUnlock()

	for _, h := range w.frameHandlers {
		h(stats)
	}
}

// RenderTransform returns the render precision transform of an entity relative
// to the floating origin, as of the last frame.
func (w *World) RenderTransform(id uint32) (mgl32.Mat4, bool) {
	w.transformMutex.RLock()
	defer w.transformMutex.RUnlock()

	t, ok := w.transforms[id]
	return t, ok
}

func (w *World) RenderTransforms() map[uint32]mgl32.Mat4 {
	w.transformMutex.RLock()
	defer w.transformMutex.RUnlock()

	transforms := make(map[uint32]mgl32.Mat4, len(w.transforms))
	for k, v := range w.transforms {
		transforms[k] = v
	}
	return transforms
}

// SetRenderTransforms replaces the render transforms of the world.
func (w *World) SetRenderTransforms(transforms map[uint32]mgl32.Mat4) {
	w.transformMutex.Lock()
	defer w.transformMutex.Unlock()

	w.transforms = transforms
}

func (w *World) entity(id uint32) (*Entity, error) {
	e, ok := w.entities[id]
	if !ok {
		return nil, errors.New("entity not found").
			WithType(ErrTypeUnknownEntity).
			WithTag("entity_id", id)
	}
	return e, nil
}

func (w *World) member(id uint32) (*Entity, error) {
	e, err := w.entity(id)
	if err != nil {
		return nil, err
	}

	if id == w.tree.Root() {
		return nil, errors.New("the root grid is not a grid member").
			WithType(ErrTypeNotMember).
			WithTag("entity_id", id)
	}
	return e, nil
}

func (w *World) checkMember(m Member) error {
	parent, ok := w.entities[m.Grid]
	if !ok {
		return errors.New("parent not found").
			WithType(ErrTypeUnknownEntity).
			WithTag("entity_id", m.Grid)
	}

	if !parent.isGrid {
		return errors.New("parent is not a grid").
			WithType(ErrTypeParentNotGrid).
			WithTag("entity_id", m.Grid)
	}

	if !m.Cell.InBounds(w.Precision) {
		return errors.New("cell is out of the world precision").
			WithType(cell.ErrTypeOverflow).
			WithTag("cell", m.Cell.String()).
			WithTag("precision", w.Precision.String())
	}
	return nil
}

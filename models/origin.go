package models

import (
	"github.com/aukilabs/bigspace/grid"
	"github.com/aukilabs/bigspace/propagation"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

type originState struct {
	entity    uint32
	set       bool
	lastValid propagation.Origin
	hasValid  bool
}

// SetFloatingOrigin makes an entity the floating origin. Only one entity holds
// the role at a time.
func (w *World) SetFloatingOrigin(id uint32) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, err := w.entity(id); err != nil {
		return err
	}

	if w.origin.set && w.origin.entity != id {
		if _, alive := w.entities[w.origin.entity]; alive {
			return errors.New("floating origin is already set").
				WithType(ErrTypeOriginDuplicate).
				WithTag("entity_id", id).
				WithTag("origin_id", w.origin.entity)
		}
	}

	w.origin.entity = id
	w.origin.set = true
	return nil
}

// ClearFloatingOrigin removes the floating origin role. Frames keep using the
// last valid origin until a new one is set.
func (w *World) ClearFloatingOrigin() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.origin.entity = 0
	w.origin.set = false
}

// FloatingOrigin returns the entity holding the floating origin role.
func (w *World) FloatingOrigin() (uint32, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.origin.entity, w.origin.set
}

// ResolveOrigin returns the grid and cell of the floating origin. A grid
// origin sits at the center of its own cell zero.
//
// When the origin is unset or despawned, the last valid origin is returned
// with an error and ok is true if such origin exists.
func (w *World) ResolveOrigin() (origin propagation.Origin, ok bool, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.origin.set {
		err = errors.New("floating origin is not set").
			WithType(ErrTypeOriginMissing)
		return w.origin.lastValid, w.origin.hasValid, err
	}

	e, alive := w.entities[w.origin.entity]
	if !alive {
		err = errors.New("floating origin entity is despawned").
			WithType(ErrTypeOriginMissing).
			WithTag("entity_id", w.origin.entity)
		return w.origin.lastValid, w.origin.hasValid, err
	}

	if e.isGrid {
		origin = propagation.Origin{Grid: grid.ID(e.ID)}
	} else {
		m := e.Member()
		origin = propagation.Origin{Grid: m.Grid, Cell: m.Cell}
	}

	w.origin.lastValid = origin
	w.origin.hasValid = true
	return origin, true, nil
}

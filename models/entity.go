package models

import (
	"slices"
	"sync"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
)

// Member is the placement of an entity in its grid.
type Member struct {
	Grid      grid.ID
	Cell      cell.Coord
	Transform geom.Transform
}

// Entity is an object of a world. Grids are entities too. Every entity but the
// root grid is a member of a parent grid.
type Entity struct {
	ID uint32

	mutex      sync.RWMutex
	isGrid     bool
	member     Member
	key        cell.Key
	tags       []string
	stationary bool
}

func (e *Entity) IsGrid() bool {
	return e.isGrid
}

func (e *Entity) Member() Member {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.member
}

// Key returns the cached cell key of the entity.
func (e *Entity) Key() cell.Key {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.key
}

func (e *Entity) Tags() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return slices.Clone(e.tags)
}

func (e *Entity) HasTag(tag string) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return slices.Contains(e.tags, tag)
}

func (e *Entity) Stationary() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.stationary
}

func (e *Entity) setMember(m Member) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.member = m
	if id := cell.NewID(m.Grid, m.Cell); id != e.key.ID {
		e.key = cell.KeyOf(id)
	}
}

func (e *Entity) setTags(tags []string) {
	tags = slices.Clone(tags)
	slices.Sort(tags)
	tags = slices.Compact(tags)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.tags = tags
}

func (e *Entity) setStationary(v bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.stationary = v
}

// recenter moves the entity translation back within the bounds of its grid.
// It reports whether the entity changed cell.
func (e *Entity) recenter(g grid.Grid, p cell.Precision) (bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	c, t, changed, err := g.RecenterMember(p, e.member.Cell, e.member.Transform.Translation)
	if err != nil || !changed {
		return false, err
	}

	e.member.Cell = c
	e.member.Transform.Translation = t
	e.key = cell.NewKey(e.member.Grid, c)
	return true, nil
}

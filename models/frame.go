package models

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"time"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/partition"
	"github.com/aukilabs/bigspace/propagation"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	StageRecenter   = "recenter"
	StageCells      = "cells"
	StagePartitions = "partitions"
	StageOrigins    = "origins"
	StageTransforms = "transforms"
)

// Frame is the set of changes applied to the world indexes during a frame.
type Frame struct {
	World   *World
	Moved   []Update
	Removed []uint32
	Stats   FrameStats
}

// Update is the state of an entity that moved, spawned or was retagged since
// the previous frame.
type Update struct {
	Entity uint32
	Key    cell.Key
	Tags   []string
}

// AddStage records the duration of a frame stage. Durations of the same stage
// are summed.
func (f *Frame) AddStage(name string, d time.Duration) {
	for i := range f.Stats.Stages {
		if f.Stats.Stages[i].Name == name {
			f.Stats.Stages[i].Duration += d
			return
		}
	}
	f.Stats.Stages = append(f.Stats.Stages, Stage{Name: name, Duration: d})
}

// AddReport accumulates a partition maintenance report.
func (f *Frame) AddReport(r partition.Report) {
	f.Stats.Partitions.Created += r.Created
	f.Stats.Partitions.Merged += r.Merged
	f.Stats.Partitions.Split += r.Split
	f.Stats.Partitions.Destroyed += r.Destroyed
}

func (f *Frame) AddError(err error) {
	if err != nil {
		f.Stats.Errors = append(f.Stats.Errors, err)
	}
}

// MovedIDs returns the ids of the moved entities.
func (f *Frame) MovedIDs() []uint32 {
	ids := make([]uint32, len(f.Moved))
	for i, u := range f.Moved {
		ids[i] = u.Entity
	}
	return ids
}

// RecenterResult is the outcome of a recentering pass.
type RecenterResult struct {
	Recentered int
	Skipped    []uint32
	Errors     []error
}

// Recenter moves the translation of the entities changed since the previous
// frame back within the bounds of their grid. Stationary entities are left
// untouched. Work is spread on the given number of goroutines, or the number
// of CPUs when workers is lower than 1.
//
// Entities whose new cell would overflow the world precision are left in place
// and reported as skipped.
func (w *World) Recenter(ctx context.Context, workers int) (RecenterResult, error) {
	w.mutex.RLock()
	entities := make([]*Entity, 0, len(w.dirty))
	for id := range w.dirty {
		if e, ok := w.entities[id]; ok && id != w.tree.Root() && !e.Stationary() {
			entities = append(entities, e)
		}
	}
	w.mutex.RUnlock()

	if workers < 1 {
		workers = runtime.NumCPU()
	}

	recentered := make([]bool, len(entities))
	errs := make([]error, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := max((len(entities)+workers-1)/workers, 64)
	for start := 0; start < len(entities); start += chunk {
		end := min(start+chunk, len(entities))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			for i := start; i < end; i++ {
				e := entities[i]
				m := e.Member()

				gr, ok := w.tree.Get(m.Grid)
				if !ok {
					continue
				}

				changed, err := e.recenter(gr, w.Precision)
				if err != nil {
					errs[i] = errors.New("recentering entity failed").
						WithType(errors.Type(err)).
						WithTag("entity_id", e.ID).
						WithTag("grid_id", m.Grid).
						Wrap(err)
					continue
				}
				recentered[i] = changed
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return RecenterResult{}, err
	}

	var res RecenterResult
	for i, e := range entities {
		if errs[i] != nil {
			res.Skipped = append(res.Skipped, e.ID)
			res.Errors = append(res.Errors, errs[i])
			continue
		}

		if recentered[i] {
			res.Recentered++
		}
	}
	slices.Sort(res.Skipped)
	return res, nil
}

// NewFrame collects the entities changed and despawned since the previous
// frame and resets the change sets. Skipped entities are reported with their
// current cell and stay changed so that recentering them is retried on the
// next frame.
func (w *World) NewFrame(skipped ...uint32) *Frame {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	f := &Frame{
		World: w,
		Stats: FrameStats{Frame: w.frames.Add(1)},
	}

	for id := range w.dirty {
		e, ok := w.entities[id]
		if !ok || id == w.tree.Root() {
			continue
		}

		f.Moved = append(f.Moved, Update{
			Entity: id,
			Key:    e.Key(),
			Tags:   e.Tags(),
		})
	}

	for id := range w.despawned {
		f.Removed = append(f.Removed, id)
		w.entityIDs.Release(id)
	}

	clear(w.dirty)
	clear(w.despawned)

	for _, id := range skipped {
		if _, ok := w.entities[id]; ok {
			w.dirty[id] = struct{}{}
		}
	}

	slices.SortFunc(f.Moved, func(a, b Update) int {
		return cmp.Compare(a.Entity, b.Entity)
	})
	slices.Sort(f.Removed)

	f.Stats.Moved = len(f.Moved)
	f.Stats.Removed = len(f.Removed)
	f.Stats.Skipped = len(skipped)
	return f
}

// Members returns the placement of every grid member of the world.
func (w *World) Members() []propagation.Member {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	members := make([]propagation.Member, 0, len(w.entities))
	for id, e := range w.entities {
		if id == w.tree.Root() {
			continue
		}

		m := e.Member()
		members = append(members, propagation.Member{
			Entity:    id,
			Grid:      m.Grid,
			Cell:      m.Cell,
			Transform: m.Transform,
		})
	}
	return members
}

// Frames returns the number of frames started in the world.
func (w *World) Frames() uint64 {
	return w.frames.Load()
}

// Package frame runs the per-frame pass of a world: recentering, index
// maintenance, origin propagation and render transforms.
package frame

import (
	"context"
	"time"

	"github.com/aukilabs/bigspace/featureflag"
	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/bigspace/modules"
	"github.com/aukilabs/bigspace/propagation"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Handler is the interface that describes a frame pass over a world.
type Handler interface {
	// Runs a frame and returns its stats. Errors do not stop the frame and are
	// reported in the stats.
	HandleFrame(context.Context) models.FrameStats

	// Closes the handler and its modules.
	Close()
}

// PassHandler runs the frame stages in order on a world.
type PassHandler struct {
	World      *models.World
	Modules    []modules.Module
	Propagator propagation.Propagator

	// The number of goroutines used to recenter entities. Values lower than 1
	// use the number of CPUs.
	RecenterWorkers int

	FeatureFlags featureflag.FeatureFlag
}

// NewPassHandler returns a pass handler with initialized modules.
func NewPassHandler(w *models.World, flags featureflag.FeatureFlag, p propagation.Propagator, mods ...modules.Module) *PassHandler {
	for _, m := range mods {
		m.Init(w)
	}

	return &PassHandler{
		World:        w,
		Modules:      mods,
		Propagator:   p,
		FeatureFlags: flags,
	}
}

// HandleFrame runs a frame. Cancellation is checked before recentering and
// before the origin stages. A cancelled frame keeps the previous render
// transforms.
func (h *PassHandler) HandleFrame(ctx context.Context) models.FrameStats {
	w := h.World

	if err := ctx.Err(); err != nil {
		return models.FrameStats{Frame: w.Frames(), Errors: []error{err}}
	}

	workers := h.RecenterWorkers
	h.FeatureFlags.IfSet(featureflag.FlagDisableParallelRecenter, func() {
		workers = 1
	})

	start := time.Now()
	recentered, err := w.Recenter(ctx, workers)
	if err != nil {
		return models.FrameStats{Frame: w.Frames(), Errors: []error{err}}
	}

	f := w.NewFrame(recentered.Skipped...)
	f.AddStage(models.StageRecenter, time.Since(start))
	f.Stats.Recentered = recentered.Recentered
	f.Stats.Errors = append(f.Stats.Errors, recentered.Errors...)

	for _, m := range h.Modules {
		if err := m.HandleFrame(ctx, f); err != nil {
			f.AddError(errors.New("module failed to handle frame").
				WithType(errors.Type(err)).
				WithTag("module", m.Name()).
				Wrap(err))
		}
	}

	if err := ctx.Err(); err != nil {
		f.AddError(err)
		return f.Stats
	}

	start = time.Now()
	origin, ok, err := w.ResolveOrigin()
	f.AddError(err)
	if !ok {
		f.AddStage(models.StageOrigins, time.Since(start))
		w.NotifyFrame(f.Stats)
		return f.Stats
	}

	if err := propagation.ComputeOrigins(w.Tree(), w, origin, w.Precision); err != nil {
		f.AddError(err)
		f.AddStage(models.StageOrigins, time.Since(start))
		w.NotifyFrame(f.Stats)
		return f.Stats
	}
	f.AddStage(models.StageOrigins, time.Since(start))

	start = time.Now()
	res, err := h.Propagator.Propagate(ctx, w.Tree(), w.Members())
	if err != nil {
		f.AddError(err)
		return f.Stats
	}
	w.SetRenderTransforms(res.Transforms)
	f.AddStage(models.StageTransforms, time.Since(start))

	w.NotifyFrame(f.Stats)
	return f.Stats
}

func (h *PassHandler) Close() {
	for _, m := range h.Modules {
		m.Close()
	}
}

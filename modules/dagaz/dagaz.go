package dagaz

import (
	"context"
	"time"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/featureflag"
	"github.com/aukilabs/bigspace/models"
)

const moduleName = "dagaz"

// Module maintains a spatial hash and a partition index of the world entities
// matching its filter.
type Module struct {
	// Distinguishes the dagaz modules of a same world.
	Instance string

	// Selects the indexed entities. The filter is fixed once the module is
	// initialized.
	Filter Filter

	// The adjacency of the index. Defaults to faces.
	Adjacency cell.Adjacency

	FeatureFlags featureflag.FeatureFlag

	currentWorld *models.World
	state        *State
}

// New returns a module with the default filter.
func New(instance string, a cell.Adjacency, flags featureflag.FeatureFlag) *Module {
	return &Module{
		Instance:     instance,
		Filter:       DefaultFilter(),
		Adjacency:    a,
		FeatureFlags: flags,
	}
}

func (m *Module) Name() string {
	if m.Instance == "" {
		return moduleName
	}
	return moduleName + ":" + m.Instance
}

func (m *Module) Init(w *models.World) {
	m.currentWorld = w

	if m.Adjacency != cell.Faces && m.Adjacency != cell.Full {
		m.Adjacency = cell.Faces
	}

	state, ok := w.ModuleState(m.Name())
	if !ok {
		state = newState(m.Filter, w.Precision, m.Adjacency)
		w.SetModuleState(m.Name(), state)
	}
	m.state = state.(*State)
}

// State returns the index of the module.
func (m *Module) State() *State {
	return m.state
}

func (m *Module) HandleFrame(ctx context.Context, f *models.Frame) error {
	start := time.Now()
	cells := m.state.Cells

	cells.BeginPass()
	for _, id := range f.Removed {
		cells.Remove(id)
	}

	for _, u := range f.Moved {
		if m.state.Filter.Match(u.Tags) {
			cells.InsertOrUpdate(u.Entity, u.Key)
		} else {
			cells.Remove(u.Entity)
		}
	}
	f.AddStage(models.StageCells, time.Since(start))

	m.FeatureFlags.IfNotSet(featureflag.FlagDisablePartitions, func() {
		start := time.Now()
		f.AddReport(m.state.Partitions.Update(cells))

		m.FeatureFlags.IfNotSet(featureflag.FlagDisableChangeTracking, func() {
			m.state.Tracker.Update(cells, m.state.Partitions, f.MovedIDs(), f.Removed)
		})
		f.AddStage(models.StagePartitions, time.Since(start))
	})

	instrumentIndex(m.currentWorld.UUID, m.Name(), cells.Len(), m.state.Partitions.Len())
	return nil
}

func (m *Module) Close() {
	if m.currentWorld != nil {
		instrumentClose(m.currentWorld.UUID, m.Name())
	}
}

package main

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/frame"
	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/bigspace/modules/dagaz"
	"github.com/aukilabs/bigspace/propagation"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	valid := config{
		FrameDuration:      time.Millisecond,
		LogSummaryInterval: time.Minute,
		Precision:          "i64",
		Adjacency:          "faces",
	}

	tests := []struct {
		name   string
		change func(*config)
		valid  bool
	}{
		{name: "valid", change: func(c *config) {}, valid: true},
		{name: "unknown precision", change: func(c *config) { c.Precision = "i128" }},
		{name: "unknown adjacency", change: func(c *config) { c.Adjacency = "diagonal" }},
		{name: "zero frame duration", change: func(c *config) { c.FrameDuration = 0 }},
		{name: "zero summary interval", change: func(c *config) { c.LogSummaryInterval = 0 }},
		{name: "negative workers", change: func(c *config) { c.PropagationWorkers = -1 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := valid
			test.change(&conf)

			err := validateConfig(conf)
			if test.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestSolarSystem(t *testing.T) {
	frame.SetupTestLogs(t)

	w, err := models.NewWorld(1, systemGrid, cell.Precision64)
	require.NoError(t, err)
	defer w.Close()

	s, err := spawnSolarSystem(w)
	require.NoError(t, err)
	require.Len(t, s.planets, 4)
	require.Len(t, s.ships, 32)

	duration := time.Second
	defer w.HandleFrame(s.animate(duration))()

	index := dagaz.New("", cell.Faces, nil)
	h := frame.NewPassHandler(w, nil, propagation.Propagator{}, index)
	defer h.Close()

	for range 3 {
		stats := h.HandleFrame(context.Background())
		require.NoError(t, stats.Err())
	}

	camera, _ := w.FloatingOrigin()
	tr, ok := w.RenderTransform(camera)
	require.True(t, ok)
	require.Less(t, float64(tr.Col(3).Vec3().Len()), 1e-3)

	ship := s.ships[16]
	tr, ok = w.RenderTransform(ship.id)
	require.True(t, ok)
	require.Less(t, float64(tr.Col(3).Vec3().Len()), 1e5)

	require.Equal(t, w.EntityCount()-2, index.State().Cells.EntityCount())
}

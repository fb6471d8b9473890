package frame

import (
	"context"
	"time"

	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	stageLabel   = "stage"
	worldLabel   = "world"
)

var (
	frameCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_count",
		Help: "The number of frames handled.",
	}, []string{worldLabel})

	frameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_errors",
		Help: "The errors that occurred while handling frames.",
	}, []string{worldLabel, errTypeLabel})

	frameLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "frame_latency",
		Help: "The time to handle a frame.",
	}, []string{worldLabel})

	frameStageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "frame_stage_latency",
		Help: "The time to run a stage of a frame.",
	}, []string{worldLabel, stageLabel})
)

// HandlerWithMetrics records the frame counts, errors and latencies.
func HandlerWithMetrics(h Handler, world string) Handler {
	return &handlerWithMetrics{
		Handler: h,
		world:   world,
	}
}

type handlerWithMetrics struct {
	Handler

	world string
}

func (h *handlerWithMetrics) HandleFrame(ctx context.Context) models.FrameStats {
	stats := h.measureLatency(func() models.FrameStats {
		return h.Handler.HandleFrame(ctx)
	})

	frameCount.With(prometheus.Labels{worldLabel: h.world}).Inc()

	for _, err := range stats.Errors {
		frameErrors.With(prometheus.Labels{
			worldLabel:   h.world,
			errTypeLabel: errors.Type(err),
		}).Inc()
	}

	for _, s := range stats.Stages {
		frameStageLatency.With(prometheus.Labels{
			worldLabel: h.world,
			stageLabel: s.Name,
		}).Observe(s.Duration.Seconds())
	}
	return stats
}

func (h *handlerWithMetrics) measureLatency(f func() models.FrameStats) models.FrameStats {
	start := time.Now()

	stats := f()
	frameLatency.With(prometheus.Labels{
		worldLabel: h.world,
	}).Observe(time.Since(start).Seconds())

	return stats
}

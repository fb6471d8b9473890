package frame

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const worldUUIDTag = "world_uuid"

// HandlerWithLogs logs the errors of every frame and a periodic summary of the
// frames handled.
func HandlerWithLogs(h Handler, worldUUID string, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		worldUUID:          worldUUID,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	worldUUID string

	summaryInterval    time.Duration
	closeSummaryWorker func()
	summaryMutex       sync.Mutex
	summary            summary
}

type summary struct {
	frames     int
	moved      int
	removed    int
	recentered int
	skipped    int
	errors     int
	created    int
	merged     int
	split      int
	destroyed  int
}

func (h *handlerWithLogs) HandleFrame(ctx context.Context) models.FrameStats {
	stats := h.Handler.HandleFrame(ctx)

	for _, err := range stats.Errors {
		logs.WithTag(worldUUIDTag, h.worldUUID).
			WithTag("frame", stats.Frame).
			WithTag("error_type", errors.Type(err)).
			Error(err)
	}

	logs.WithTag(worldUUIDTag, h.worldUUID).
		WithTag("frame", stats.Frame).
		WithTag("moved", stats.Moved).
		WithTag("removed", stats.Removed).
		Debug("frame handled")

	h.addToSummary(stats)
	return stats
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) addToSummary(stats models.FrameStats) {
	h.summaryMutex.Lock()
	defer h.summaryMutex.Unlock()

	h.summary.frames++
	h.summary.moved += stats.Moved
	h.summary.removed += stats.Removed
	h.summary.recentered += stats.Recentered
	h.summary.skipped += stats.Skipped
	h.summary.errors += len(stats.Errors)
	h.summary.created += stats.Partitions.Created
	h.summary.merged += stats.Partitions.Merged
	h.summary.split += stats.Partitions.Split
	h.summary.destroyed += stats.Partitions.Destroyed
}

func (h *handlerWithLogs) logSummary() {
	h.summaryMutex.Lock()
	defer h.summaryMutex.Unlock()

	s := h.summary
	if s.frames == 0 {
		return
	}
	h.summary = summary{}

	logs.WithTag(worldUUIDTag, h.worldUUID).
		WithTag("time_interval", h.summaryInterval).
		WithTag("frames", s.frames).
		WithTag("moved", s.moved).
		WithTag("removed", s.removed).
		WithTag("recentered", s.recentered).
		WithTag("overflow_skips", s.skipped).
		WithTag("errors", s.errors).
		WithTag("partitions_created", s.created).
		WithTag("partitions_merged", s.merged).
		WithTag("partitions_split", s.split).
		WithTag("partitions_destroyed", s.destroyed).
		Info("frame summary")
}

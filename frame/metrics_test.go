package frame

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHandlerWithMetrics(t *testing.T) {
	th := &testHandler{stats: models.FrameStats{
		Stages: []models.Stage{
			{Name: models.StageRecenter, Duration: time.Millisecond},
			{Name: models.StageTransforms, Duration: 2 * time.Millisecond},
		},
		Errors: []error{errors.New("test").WithType("test-error")},
	}}

	h := HandlerWithMetrics(th, "test-world")
	defer h.Close()

	stats := h.HandleFrame(context.Background())
	require.Equal(t, uint64(1), stats.Frame)
	require.Len(t, stats.Stages, 2)
}

func TestRun(t *testing.T) {
	th := &testHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, th, time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		th.mutex.Lock()
		defer th.mutex.Unlock()
		return th.stats.Frame >= 3
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

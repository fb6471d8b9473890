package frame

import (
	"context"
	"time"
)

// Run handles a frame every frameDuration until the context is cancelled.
func Run(ctx context.Context, h Handler, frameDuration time.Duration) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.HandleFrame(ctx)
		}
	}
}

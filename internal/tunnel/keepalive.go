package tunnel

import (
	"context"
	"time"
)

// RunKeepAlive drives the 10-second keep-alive ticker and the 40-second
// idle dissociation sweep from a single goroutine, grounded on
// internal/game/duel/manager.go's ticker+select lifecycle loop. Returns
// when ctx is cancelled.
func RunKeepAlive(ctx context.Context, relay *Relay) {
	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			relay.BroadcastKeepAlive()
			for _, transport := range relay.SweepIdle(DissociateAfter) {
				_ = transport.Close()
			}
		}
	}
}

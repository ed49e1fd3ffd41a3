package matchmaking

import (
	"context"
	"time"
)

// SweepInterval is how often the periodic sweep runs. §4.G's failure mode
// is explicit that expiry happens "by periodic sweep, not per-entry timer",
// so one ticker drives the whole queue rather than one timer per entry.
const SweepInterval = time.Minute

// RunSweeper drives the periodic-expiry loop, grounded on duel/manager.go's
// runDuelLifecycle ticker+cancel-via-context pattern. onExpired is called
// once per expired entry; it typically sends a MatchmakingFailed notify to
// the entry's player. Returns when ctx is cancelled.
func RunSweeper(ctx context.Context, q *Queue, timeout time.Duration, onExpired func(*Entry)) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range q.Sweep(timeout) {
				if onExpired != nil {
					onExpired(e)
				}
			}
		}
	}
}

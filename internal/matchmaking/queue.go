// Package matchmaking implements the FIFO rule-matching queue: enqueue on a
// failed immediate join, re-scan on every new game, and periodic-sweep
// expiry. No direct teacher analog exists for a matchmaking queue; this is
// grounded on the *shape* of internal/game/party/manager.go (RWMutex +
// slice) for the queue itself, and on internal/game/duel/manager.go's
// ticker-driven goroutine lifecycle for the periodic sweep loop.
package matchmaking

import (
	"sync"
	"time"

	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/model"
)

// DefaultTimeout is the queue-entry expiry age: the source left this as a
// "TODO: timeout"; 30 minutes with a MatchmakingFailed notify is the chosen
// default.
const DefaultTimeout = 30 * time.Minute

// Entry is one queued player awaiting a joinable game.
type Entry struct {
	Player     *gameentity.GamePlayer
	RuleSet    model.RuleSet
	EnqueuedAt time.Time
}

// Queue is the FIFO of pending matchmaking entries, grounded on
// party.Manager's guarded-slice shape.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
}

func New() *Queue {
	return &Queue{}
}

// Enqueue pushes player onto the back of the queue with the current time as
// its enqueue timestamp.
func (q *Queue) Enqueue(player *gameentity.GamePlayer, rs model.RuleSet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &Entry{Player: player, RuleSet: rs, EnqueuedAt: time.Now()})
}

// Unqueue removes every entry belonging to playerID.
func (q *Queue) Unqueue(playerID int32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Player.Player.ID != playerID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// Len reports the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// GameCreated scans the queue front-to-back against g, per §4.G: on
// Joinable the entry is removed and its player added to g; on Full (or once
// the game stops accepting any more joins) the scan stops; on NotMatch the
// entry is retained and the scan continues to the next entry. Returns the
// players actually admitted, in admission order.
func (q *Queue) GameCreated(g *gameentity.Game) []*gameentity.GamePlayer {
	q.mu.Lock()
	defer q.mu.Unlock()

	var admitted []*gameentity.GamePlayer
	kept := q.entries[:0]
	stop := false
	for _, e := range q.entries {
		if stop {
			kept = append(kept, e)
			continue
		}
		switch g.CheckJoinable(&e.RuleSet) {
		case gameentity.Joinable:
			if g.AddPlayer(e.Player) {
				admitted = append(admitted, e.Player)
				continue
			}
			// AddPlayer lost a race against the roster filling up elsewhere;
			// treat exactly like Full.
			stop = true
			kept = append(kept, e)
		case gameentity.Full:
			stop = true
			kept = append(kept, e)
		case gameentity.NotMatch:
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return admitted
}

// Sweep removes and returns every entry older than timeout, for the caller
// to notify MatchmakingFailed.
func (q *Queue) Sweep(timeout time.Duration) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var expired []*Entry
	kept := q.entries[:0]
	for _, e := range q.entries {
		if now.Sub(e.EnqueuedAt) >= timeout {
			expired = append(expired, e)
		} else {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return expired
}

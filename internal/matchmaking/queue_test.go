package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/model"
)

func gp(id int32) *gameentity.GamePlayer {
	return &gameentity.GamePlayer{Player: &model.Player{ID: id}, DisplayName: "p"}
}

func TestEnqueueAndLen(t *testing.T) {
	q := New()
	q.Enqueue(gp(1), model.NewRuleSet(nil))
	q.Enqueue(gp(2), model.NewRuleSet(nil))
	if q.Len() != 2 {
		t.Fatalf("got %d, want 2", q.Len())
	}
}

func TestUnqueueRemovesAllEntriesForPlayer(t *testing.T) {
	q := New()
	q.Enqueue(gp(1), model.NewRuleSet(nil))
	q.Enqueue(gp(1), model.NewRuleSet(nil))
	q.Enqueue(gp(2), model.NewRuleSet(nil))

	q.Unqueue(1)
	if q.Len() != 1 {
		t.Fatalf("got %d entries remaining, want 1", q.Len())
	}
}

func TestGameCreatedAdmitsMatchingEntriesUntilFull(t *testing.T) {
	q := New()
	matching := model.NewRuleSet(map[string]string{"map": "map2"})
	mismatching := model.NewRuleSet(map[string]string{"map": "map9"})

	q.Enqueue(gp(2), matching)
	q.Enqueue(gp(3), mismatching)
	q.Enqueue(gp(4), matching)
	q.Enqueue(gp(5), matching)
	q.Enqueue(gp(6), matching)

	host := gp(1)
	g := gameentity.New(1, host, map[string]string{"ME3map": "map2"}, 0, nil)

	admitted := q.GameCreated(g)
	// Roster starts at [host]; capacity for 3 more. 2, 4 and 5 match and fit;
	// 3 doesn't match and stays; 6 matches but the roster is full by then.
	if len(admitted) != 3 {
		t.Fatalf("got %d admitted, want 3: %+v", len(admitted), admitted)
	}
	if admitted[0].Player.ID != 2 || admitted[1].Player.ID != 4 || admitted[2].Player.ID != 5 {
		t.Errorf("unexpected admission order: %+v", admitted)
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 entries (player 3 mismatched, player 6 arrived after fill) still queued, got %d", q.Len())
	}
}

func TestSweepExpiresOldEntries(t *testing.T) {
	q := New()
	q.Enqueue(gp(1), model.NewRuleSet(nil))
	q.entries[0].EnqueuedAt = time.Now().Add(-time.Hour)

	expired := q.Sweep(30 * time.Minute)
	if len(expired) != 1 || expired[0].Player.Player.ID != 1 {
		t.Fatalf("expected player 1's entry expired, got %+v", expired)
	}
	if q.Len() != 0 {
		t.Errorf("expected queue empty after sweep, got %d", q.Len())
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	q := New()
	q.Enqueue(gp(1), model.NewRuleSet(nil))

	expired := q.Sweep(30 * time.Minute)
	if len(expired) != 0 {
		t.Errorf("expected no expiry for a freshly queued entry, got %+v", expired)
	}
}

func TestRunSweeperStopsOnContextCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, q, DefaultTimeout, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweeper did not return after context cancellation")
	}
}

// Package directory implements the process-wide player_id -> session index:
// presence lookups, subscription wiring, and duplicate-login eviction.
// Grounded on the teacher's internal/gameserver/clients.go (ClientManager),
// generalized from account-name keys to authenticated player ids.
package directory

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/PocketRelay/Server-sub000/internal/session"
)

// Directory is the player_id -> session.Session index backing presence
// subscriptions and duplicate-login eviction (§4.D).
type Directory struct {
	mu       sync.RWMutex
	sessions map[int32]*session.Session

	nextSessionID atomic.Int32
}

func New() *Directory {
	return &Directory{sessions: make(map[int32]*session.Session)}
}

// NextSessionID returns a monotonically increasing, process-unique session
// id (§3's "monotonically assigned 32-bit id, unique per process lifetime").
func (d *Directory) NextSessionID() int32 {
	return d.nextSessionID.Add(1)
}

// AddSession binds playerID to s, replacing (and disconnecting) any prior
// binding. This is the directory-side half of Session.SetPlayer's contract
// in §4.C: "inform the session directory that this binding is gone; this
// may disconnect the displaced session."
func (d *Directory) AddSession(playerID int32, s *session.Session) {
	d.mu.Lock()
	previous := d.sessions[playerID]
	d.sessions[playerID] = s
	d.mu.Unlock()

	if previous != nil && previous != s {
		slog.Info("duplicate login, evicting prior session", "player", playerID, "prior_session", previous.ID(), "new_session", s.ID())
		previous.ClearPlayer()
		previous.Close()
	}
}

// RemoveSession removes the playerID -> s binding only if it still points
// at s — this guards against a race where a newer login has already
// replaced it out from under a slower teardown path.
func (d *Directory) RemoveSession(playerID int32, s *session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.sessions[playerID]; ok && cur == s {
		delete(d.sessions, playerID)
	}
}

// Lookup returns the session currently bound to playerID, or nil.
func (d *Directory) Lookup(playerID int32) *session.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessions[playerID]
}

// Count returns the number of authenticated sessions.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Subscribe looks up targetPlayerID's session and, if present, adds
// sourceHandle as a subscriber to it (§4.D: "Subscriptions query this
// directory to find the target session and call its add_subscriber").
// Reports whether a target session was found.
func (d *Directory) Subscribe(targetPlayerID int32, sourceHandle session.Handle) bool {
	target := d.Lookup(targetPlayerID)
	if target == nil {
		return false
	}
	target.AddSubscriber(sourceHandle)
	return true
}

// Package gamemanager holds the registry of active games: creation,
// matchmaking-style scanning, lookup, and removal-triggered destruction.
// Grounded on the teacher's internal/game/party/manager.go (party.Manager).
package gamemanager

import (
	"sync"
	"sync/atomic"

	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/model"
)

// Manager is the game_id -> *gameentity.Game registry.
type Manager struct {
	mu     sync.RWMutex
	games  map[int32]*gameentity.Game
	order  []int32 // insertion order, scanned by TryAdd per §4.F
	nextID atomic.Int32
}

func New() *Manager {
	return &Manager{games: make(map[int32]*gameentity.Game)}
}

// Create allocates the next game id, constructs a Game seeded with host at
// slot 0 and state Initializing, and registers it.
func (m *Manager) Create(host *gameentity.GamePlayer, attrs map[string]string, settings gameentity.Setting, broadcaster gameentity.Broadcaster) *gameentity.Game {
	id := m.nextID.Add(1)
	g := gameentity.New(id, host, attrs, settings, broadcaster)

	m.mu.Lock()
	m.games[id] = g
	m.order = append(m.order, id)
	m.mu.Unlock()

	return g
}

// Get returns the game registered under id, or nil.
func (m *Manager) Get(id int32) *gameentity.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[id]
}

// Count returns the number of active games.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// TryAdd scans games in insertion order, admitting gp into the first one
// whose CheckJoinable reports Joinable against rs. Returns the game gp was
// added to, or nil if none was found (the caller's Failure(player) case).
func (m *Manager) TryAdd(gp *gameentity.GamePlayer, rs *model.RuleSet) *gameentity.Game {
	m.mu.RLock()
	candidates := make([]*gameentity.Game, 0, len(m.order))
	for _, id := range m.order {
		if g, ok := m.games[id]; ok {
			candidates = append(candidates, g)
		}
	}
	m.mu.RUnlock()

	for _, g := range candidates {
		if g.CheckJoinable(rs) == gameentity.Joinable {
			if g.AddPlayer(gp) {
				return g
			}
		}
	}
	return nil
}

// RemovePlayer forwards a removal to gameID's game and destroys the game if
// it reports empty afterward. Reports whether the game was found.
func (m *Manager) RemovePlayer(gameID, playerID int32, reason int32) bool {
	g := m.Get(gameID)
	if g == nil {
		return false
	}
	g.RemovePlayer(playerID, reason)
	if g.IsEmpty() {
		m.remove(gameID)
	}
	return true
}

func (m *Manager) remove(id int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return
	}
	delete(m.games, id)
	for i, gid := range m.order {
		if gid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// Package gameentity implements one game's state: roster, attributes,
// settings, state machine, and broadcast fan-out. Grounded on the teacher's
// internal/model/party.go (Party), generalized from a party's unbounded
// member slice to the spec's fixed 4-slot roster with host migration.
package gameentity

import (
	"sort"
	"sync"

	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
)

// MaxRosterSize is the fixed roster capacity; slot 0 is always the host.
const MaxRosterSize = 4

// State is a game's lifecycle phase.
type State int

const (
	StateNew State = iota
	StateInitializing
	StateVirtual
	StatePreGame
	StateInGame
	StatePostGame
	StateMigrating
	StateDestructing
	StateResetable
	StateReplaySetup
)

// Setting is a bitflag on Game.Settings.
type Setting uint16

const (
	SettingOpenToBrowsing Setting = 1 << iota
	SettingOpenToMatchmaking
	SettingOpenToInvites
	SettingHostMigratable
	SettingJoinInProgressSupported
)

// MeshState is a roster slot's perceived peer-to-peer connectivity.
type MeshState int

const (
	MeshReserved MeshState = iota
	MeshQueued
	MeshActiveConnecting
	MeshActiveMigrating
	MeshActiveConnected
	MeshActiveKickPending
)

// Joinability is the result of checking a game against a rule set.
type Joinability int

const (
	Joinable Joinability = iota
	Full
	NotMatch
)

// NotifyHandle is the narrow slice of session.Session a game needs to push
// notify packets to a roster member, without this package depending on the
// session package directly.
type NotifyHandle interface {
	Enqueue(p netpacket.Packet) error
	ID() int32
}

// Broadcaster builds the wire packets for every game lifecycle event.
// Implemented by internal/handlers, which owns the GameManager component's
// notify shapes (GameSetup, PlayerJoining, StateChange, ...); injected here
// so this package stays free of wire-format and component-numbering detail.
type Broadcaster interface {
	PlayerJoining(g *Game, joiner *GamePlayer) netpacket.Packet
	GameSetup(g *Game, joiner *GamePlayer) netpacket.Packet
	StateChange(g *Game) netpacket.Packet
	SettingChange(g *Game) netpacket.Packet
	AttributesChange(g *Game) netpacket.Packet
	GamePlayerStateChange(g *Game, gp *GamePlayer) netpacket.Packet
	PlayerJoinCompleted(g *Game, gp *GamePlayer) netpacket.Packet
	AdminListChange(g *Game, gp *GamePlayer, add bool) netpacket.Packet
	PlayerRemoved(g *Game, gp *GamePlayer, reason int32) netpacket.Packet
	HostMigrationStart(g *Game) netpacket.Packet
	HostMigrationFinished(g *Game) netpacket.Packet
	FetchExtendedData(g *Game, forPlayerID int32) netpacket.Packet
	SetSession(g *Game, gp *GamePlayer) netpacket.Packet
}

// GamePlayer is a snapshot placed in a game's roster.
type GamePlayer struct {
	Player      *model.Player
	DisplayName string
	Network     *model.NetworkInfo
	Mesh        MeshState
	Handle      NotifyHandle
}

// Game is one match's shared state. All mutation is serialized by mu,
// mirroring the teacher's Party — RWMutex-guarded slice, leader/host always
// at a fixed position.
type Game struct {
	mu sync.RWMutex

	id          int32
	state       State
	settings    Setting
	attributes  map[string]string
	attrOrder   []string // sorted key order, for deterministic wire output
	roster      []*GamePlayer // len <= MaxRosterSize; index 0 is host
	broadcaster Broadcaster
}

// New constructs a game with host seeded at slot 0, state Initializing.
func New(id int32, host *GamePlayer, attrs map[string]string, settings Setting, broadcaster Broadcaster) *Game {
	a := make(map[string]string, len(attrs))
	order := make([]string, 0, len(attrs))
	for k, v := range attrs {
		a[k] = v
		order = append(order, k)
	}
	sort.Strings(order)
	return &Game{
		id:          id,
		state:       StateInitializing,
		settings:    settings,
		attributes:  a,
		attrOrder:   order,
		roster:      []*GamePlayer{host},
		broadcaster: broadcaster,
	}
}

// send delivers one packet to gp, logging nothing itself — fan-out is
// best-effort per §4.E: a failed push to one roster member never blocks or
// aborts delivery to the others.
func (g *Game) send(gp *GamePlayer, pkt netpacket.Packet) {
	if gp.Handle == nil {
		return
	}
	_ = gp.Handle.Enqueue(pkt)
}

// broadcastLocked sends pkt to every current roster member. Caller must
// hold g.mu (read or write).
func (g *Game) broadcastLocked(pkt netpacket.Packet) {
	for _, gp := range g.roster {
		g.send(gp, pkt)
	}
}

func (g *Game) ID() int32 { return g.id }

func (g *Game) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Game) Settings() Setting {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}

// Attributes returns a copy of the current attribute map.
func (g *Game) Attributes() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.attributes))
	for k, v := range g.attributes {
		out[k] = v
	}
	return out
}

// AttributeKeys returns the current attribute keys in a stable, sorted
// order, so wire encoders (GameSetup, AttributesChange,
// GetGameDataFromID) never emit ATT entries in map-iteration order.
func (g *Game) AttributeKeys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.attrOrder))
	copy(out, g.attrOrder)
	return out
}

// Roster returns a snapshot copy of the current roster.
func (g *Game) Roster() []*GamePlayer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*GamePlayer, len(g.roster))
	copy(out, g.roster)
	return out
}

// HostID returns the player id at slot 0, or 0 if the roster is empty.
func (g *Game) HostID() int32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.roster) == 0 {
		return 0
	}
	return g.roster[0].Player.ID
}

// IsEmpty reports whether the roster has no members.
func (g *Game) IsEmpty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.roster) == 0
}

// CheckJoinable evaluates whether a new player could join, optionally
// constrained by a matchmaking rule set.
func (g *Game) CheckJoinable(rs *model.RuleSet) Joinability {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.roster) >= MaxRosterSize {
		return Full
	}
	if rs != nil && !rs.Matches(g.attributes) {
		return NotMatch
	}
	return Joinable
}

// AddPlayer appends gp at the next free roster slot. Per §4.E: existing
// members are told PlayerJoining, the joiner gets a GameSetup snapshot of
// the whole game, and every existing member exchanges user-details with the
// joiner. Setting the joiner's current-game pointer (Session.SetCurrentGameID)
// is the caller's responsibility, same as the authentication-transition side
// effects documented on the session package. Returns false if the roster is
// already full.
func (g *Game) AddPlayer(gp *GamePlayer) bool {
	g.mu.Lock()
	if len(g.roster) >= MaxRosterSize {
		g.mu.Unlock()
		return false
	}
	slot := len(g.roster)
	g.roster = append(g.roster, gp)
	existing := make([]*GamePlayer, slot)
	copy(existing, g.roster[:slot])
	g.mu.Unlock()

	if g.broadcaster == nil {
		return true
	}

	if slot > 0 {
		joining := g.broadcaster.PlayerJoining(g, gp)
		for _, other := range existing {
			g.send(other, joining)
		}
	}
	g.send(gp, g.broadcaster.GameSetup(g, gp))
	for _, other := range existing {
		g.send(other, g.broadcaster.SetSession(g, gp))
		g.send(gp, g.broadcaster.SetSession(g, other))
	}
	return true
}

// SetState transitions the game's lifecycle state and broadcasts
// GameStateChange to the roster.
func (g *Game) SetState(state State) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()

	if g.broadcaster != nil {
		g.mu.RLock()
		defer g.mu.RUnlock()
		g.broadcastLocked(g.broadcaster.StateChange(g))
	}
}

// SetSetting replaces the settings bitflags and broadcasts GameSettingsChange.
func (g *Game) SetSetting(settings Setting) {
	g.mu.Lock()
	g.settings = settings
	g.mu.Unlock()

	if g.broadcaster != nil {
		g.mu.RLock()
		defer g.mu.RUnlock()
		g.broadcastLocked(g.broadcaster.SettingChange(g))
	}
}

// SetAttributes merges attrs into the current attribute map and broadcasts
// GameAttribChange.
func (g *Game) SetAttributes(attrs map[string]string) {
	g.mu.Lock()
	for k, v := range attrs {
		if _, exists := g.attributes[k]; !exists {
			g.attrOrder = append(g.attrOrder, k)
		}
		g.attributes[k] = v
	}
	sort.Strings(g.attrOrder)
	g.mu.Unlock()

	if g.broadcaster != nil {
		g.mu.RLock()
		defer g.mu.RUnlock()
		g.broadcastLocked(g.broadcaster.AttributesChange(g))
	}
}

// UpdateMesh handles a peer-connection completion report for targetPlayerID.
// Per §4.E, only the ActiveConnected transition has observable effect: the
// slot is marked connected, GamePlayerStateChange and PlayerJoinCompleted
// are broadcast, and the player is admitted to the admin list.
func (g *Game) UpdateMesh(targetPlayerID int32, state MeshState) {
	g.mu.Lock()
	var target *GamePlayer
	for _, gp := range g.roster {
		if gp.Player.ID == targetPlayerID {
			target = gp
			break
		}
	}
	if target == nil {
		g.mu.Unlock()
		return
	}
	target.Mesh = state
	g.mu.Unlock()

	if state != MeshActiveConnected || g.broadcaster == nil {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	g.broadcastLocked(g.broadcaster.GamePlayerStateChange(g, target))
	g.broadcastLocked(g.broadcaster.PlayerJoinCompleted(g, target))
	g.broadcastLocked(g.broadcaster.AdminListChange(g, target, true))
}

// RemovePlayer removes playerID from the roster. Per §4.E: PlayerRemoved is
// broadcast to everyone including the victim, AdminListChange{Remove}
// follows, then FetchExtendedData pings are issued so remaining clients
// re-pull each other and the victim re-pulls remaining peers. If slot 0 was
// removed and a roster remains, host migration runs. Reports whether
// playerID was found in the roster.
func (g *Game) RemovePlayer(playerID int32, reason int32) bool {
	g.mu.Lock()
	idx := -1
	for i, gp := range g.roster {
		if gp.Player.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		g.mu.Unlock()
		return false
	}
	victim := g.roster[idx]
	wasHost := idx == 0
	g.roster = append(g.roster[:idx:idx], g.roster[idx+1:]...)
	remaining := make([]*GamePlayer, len(g.roster))
	copy(remaining, g.roster)
	g.mu.Unlock()

	if g.broadcaster == nil {
		return true
	}

	removed := g.broadcaster.PlayerRemoved(g, victim, reason)
	g.send(victim, removed)
	for _, gp := range remaining {
		g.send(gp, removed)
	}

	adminChange := g.broadcaster.AdminListChange(g, victim, false)
	for _, gp := range remaining {
		g.send(gp, adminChange)
	}

	for _, gp := range remaining {
		g.send(gp, g.broadcaster.FetchExtendedData(g, victim.Player.ID))
		g.send(victim, g.broadcaster.FetchExtendedData(g, gp.Player.ID))
	}

	if wasHost && len(remaining) > 0 {
		g.migrateHost()
	}
	return true
}

// migrateHost runs the Migrating->InGame transition documented in §4.E's
// host migration protocol, promoting whatever now sits at roster slot 0.
func (g *Game) migrateHost() {
	g.SetState(StateMigrating)

	g.mu.RLock()
	newHost := g.roster[0]
	g.mu.RUnlock()

	if g.broadcaster != nil {
		g.mu.RLock()
		g.broadcastLocked(g.broadcaster.HostMigrationStart(g))
		g.mu.RUnlock()
	}

	g.SetState(StateInGame)

	if g.broadcaster == nil {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	g.broadcastLocked(g.broadcaster.HostMigrationFinished(g))
	g.broadcastLocked(g.broadcaster.SetSession(g, newHost))
}

// Package session implements the per-connection runtime: one Session per
// accepted TCP connection, its outbound queue/writer goroutine, player
// authentication transitions, and presence-subscription fan-out.
package session

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
)

// defaultSendQueueSize bounds the outbound queue; a session that cannot
// drain this many pending packets is treated as ConnectionLost, per the
// Open Question's resolution (the teacher's own defaultSendQueueSize of 256
// doubled here for this protocol's heavier notify payloads).
const defaultSendQueueSize = 512

// Handle is anything that can receive a queued packet — satisfied by
// *Session itself, used so one session's subscription list can hold
// references to other sessions without importing this package recursively.
type Handle interface {
	Enqueue(p netpacket.Packet) error
	ID() int32
}

// Subscription flags carried on NotifyUserUpdated when a presence edge is
// established.
const (
	FlagSubscribed uint16 = 1 << 0
	FlagOnline     uint16 = 1 << 1
)

// NotifyFactory builds the wire packets for subscription lifecycle events.
// Implemented by internal/handlers, which knows the UserSessions component's
// notify shapes; injected here so this package never imports handlers.
type NotifyFactory interface {
	UserAdded(s *Session) netpacket.Packet
	UserUpdated(s *Session, flags uint16) netpacket.Packet
	UserRemoved(s *Session) netpacket.Packet
}

// ErrQueueFull is returned by Enqueue when the outbound queue is saturated;
// the caller (writer goroutine's owner, or the caller of Enqueue itself)
// should treat this as ConnectionLost and close the session.
var ErrQueueFull = errors.New("session: outbound queue full")

// ErrClosed is returned by Enqueue once the session has begun teardown.
var ErrClosed = errors.New("session: closed")

// Session is one authenticated-or-not client connection's runtime state.
type Session struct {
	id   int32
	conn net.Conn

	scheme string
	host   string
	port   uint16

	writer *netpacket.Writer

	mu            sync.Mutex
	player        *model.Player
	networkInfo   *model.NetworkInfo
	notifyFactory NotifyFactory
	sessionToken  string
	assocToken    []byte

	currentGameID atomic.Int32 // 0 = not in a game

	subMu       sync.Mutex
	subscribers map[int32]Handle // source session id -> handle

	sendCh    chan netpacket.Packet
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// New constructs a Session for an accepted connection. id must be unique
// for the process lifetime (see directory.NextSessionID).
func New(id int32, conn net.Conn, scheme, host string, port uint16) *Session {
	s := &Session{
		id:          id,
		conn:        conn,
		scheme:      scheme,
		host:        host,
		port:        port,
		writer:      netpacket.NewWriter(conn),
		subscribers: make(map[int32]Handle),
		sendCh:      make(chan netpacket.Packet, defaultSendQueueSize),
		closeCh:     make(chan struct{}),
	}
	return s
}

func (s *Session) ID() int32      { return s.id }
func (s *Session) Conn() net.Conn { return s.conn }

// ConnectedThrough returns the scheme/host/port the client believes it
// connected through (used to build redirector/telemetry responses).
func (s *Session) ConnectedThrough() (scheme, host string, port uint16) {
	return s.scheme, s.host, s.port
}

// SetNotifyFactory wires the packet builder for subscription notifies. Must
// be called once, before any subscriber is added.
func (s *Session) SetNotifyFactory(nf NotifyFactory) {
	s.mu.Lock()
	s.notifyFactory = nf
	s.mu.Unlock()
}

// Player returns the currently authenticated player, or nil.
func (s *Session) Player() *model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// SetPlayer atomically swaps the authenticated player and returns the prior
// one (nil if there was none). Directory registration/eviction for the new
// and old bindings is the caller's responsibility (internal/directory),
// keeping this package free of a dependency on the directory package.
func (s *Session) SetPlayer(p *model.Player) (previous *model.Player) {
	s.mu.Lock()
	previous = s.player
	s.player = p
	s.mu.Unlock()
	return previous
}

// ClearPlayer clears the authenticated player and returns the prior one.
// The caller must also remove the session from the game/matchmaking/
// directory collaborators — session has no reference to them.
func (s *Session) ClearPlayer() (previous *model.Player) {
	return s.SetPlayer(nil)
}

// NetworkInfo returns the last-reported network descriptor, or nil.
func (s *Session) NetworkInfo() *model.NetworkInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkInfo
}

// SetNetworkInfo records a new network descriptor (UserSessions.UpdateNetworkInfo).
func (s *Session) SetNetworkInfo(ni *model.NetworkInfo) {
	s.mu.Lock()
	s.networkInfo = ni
	s.mu.Unlock()
}

// PublishUpdate fans NotifyUserUpdated out to every current subscriber,
// per §4.J's "mutate session-data and publish" contract for
// UpdateNetworkInfo/UpdateHardwareFlags.
func (s *Session) PublishUpdate(flags uint16) {
	nf := s.factory()
	if nf == nil {
		return
	}
	s.subMu.Lock()
	handles := make([]Handle, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handles = append(handles, h)
	}
	s.subMu.Unlock()

	packet := nf.UserUpdated(s, flags)
	for _, h := range handles {
		if err := h.Enqueue(packet); err != nil {
			slog.Warn("update notify failed", "target", h.ID(), "error", err)
		}
	}
}

// SessionToken returns the previously minted authentication session token,
// or "" if none has been minted yet.
func (s *Session) SessionToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionToken
}

// SetSessionToken records the session token minted (or reused, on a silent
// login) for this connection's authenticated player.
func (s *Session) SetSessionToken(token string) {
	s.mu.Lock()
	s.sessionToken = token
	s.mu.Unlock()
}

// AssociationToken returns the tunnel-association token recorded with
// SetAssociationToken, or nil if none has been recorded.
func (s *Session) AssociationToken() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assocToken
}

// SetAssociationToken records the tunnel-association token minted for this
// session.
func (s *Session) SetAssociationToken(token []byte) {
	s.mu.Lock()
	s.assocToken = token
	s.mu.Unlock()
}

// CurrentGameID returns the game id this session believes it is in, or 0.
// This is the "weak reference" from §9: the session stores only the id: the
// caller resolves it through gamemanager.Manager.Get, and treats a miss as
// "game already gone".
func (s *Session) CurrentGameID() int32 { return s.currentGameID.Load() }

// SetCurrentGameID records or clears (id=0) the session's current game.
func (s *Session) SetCurrentGameID(id int32) { s.currentGameID.Store(id) }

// AddSubscriber registers handle as a subscriber to this session's presence
// and immediately emits NotifyUserAdded followed by NotifyUserUpdated with
// Subscribed|Online flags, per §4.C.
func (s *Session) AddSubscriber(handle Handle) {
	s.subMu.Lock()
	s.subscribers[handle.ID()] = handle
	s.subMu.Unlock()

	nf := s.factory()
	if nf == nil {
		return
	}
	if err := handle.Enqueue(nf.UserAdded(s)); err != nil {
		slog.Warn("subscription notify failed", "target", handle.ID(), "error", err)
	}
	if err := handle.Enqueue(nf.UserUpdated(s, FlagSubscribed|FlagOnline)); err != nil {
		slog.Warn("subscription update notify failed", "target", handle.ID(), "error", err)
	}
}

// RemoveSubscriber drops one subscription edge and emits NotifyUserRemoved
// to it.
func (s *Session) RemoveSubscriber(subscriberID int32) {
	s.subMu.Lock()
	handle, ok := s.subscribers[subscriberID]
	delete(s.subscribers, subscriberID)
	s.subMu.Unlock()
	if !ok {
		return
	}
	s.notifyRemoved(handle)
}

// dropAllSubscribers tears down every outgoing subscription edge, firing
// exactly one NotifyUserRemoved per edge. Called once, from Close.
func (s *Session) dropAllSubscribers() {
	s.subMu.Lock()
	handles := make([]Handle, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handles = append(handles, h)
	}
	s.subscribers = make(map[int32]Handle)
	s.subMu.Unlock()

	for _, h := range handles {
		s.notifyRemoved(h)
	}
}

func (s *Session) notifyRemoved(handle Handle) {
	nf := s.factory()
	if nf == nil {
		return
	}
	if err := handle.Enqueue(nf.UserRemoved(s)); err != nil {
		slog.Warn("removal notify failed", "target", handle.ID(), "error", err)
	}
}

func (s *Session) factory() NotifyFactory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifyFactory
}

// Enqueue places a packet on the outbound queue. Backpressure is handled by
// the Open Question's resolution: a full queue closes the session instead
// of blocking the caller.
func (s *Session) Enqueue(p netpacket.Packet) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.sendCh <- p:
		return nil
	default:
		slog.Warn("outbound queue full, disconnecting session", "session", s.id)
		s.Close()
		return ErrQueueFull
	}
}

// RunWriter drains the outbound queue until the session closes. One call
// per session, grounded on the teacher's dedicated writePump goroutine.
func (s *Session) RunWriter() {
	for {
		select {
		case p, ok := <-s.sendCh:
			if !ok {
				return
			}
			if err := s.writer.WritePacket(p); err != nil {
				slog.Warn("session write failed", "session", s.id, "error", err)
				s.Close()
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// ReadPacket reads the next framed packet from the connection. maxBody
// bounds an individual packet's body length.
func (s *Session) ReadPacket(maxBody int) (netpacket.Packet, error) {
	return netpacket.NewReader(s.conn, maxBody).ReadPacket()
}

// Close tears down the session: drops all subscription edges, signals the
// writer goroutine to stop, and closes the underlying connection. Safe to
// call more than once or concurrently.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.dropAllSubscribers()
	})
	return s.conn.Close()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

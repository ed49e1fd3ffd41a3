package handlers_test

import (
	"context"
	"net"
	"testing"

	"github.com/PocketRelay/Server-sub000/internal/assoc"
	"github.com/PocketRelay/Server-sub000/internal/directory"
	"github.com/PocketRelay/Server-sub000/internal/gamemanager"
	"github.com/PocketRelay/Server-sub000/internal/handlers"
	"github.com/PocketRelay/Server-sub000/internal/matchmaking"
	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// memStore is a minimal in-memory handlers.PlayerStore fake, grounded on the
// teacher's own preference for hand-rolled in-memory fakes over generated
// mocks in its handler-level tests.
type memStore struct {
	byID   map[int32]*model.Player
	nextID int32
	data   map[int32]map[string]string
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[int32]*model.Player), data: make(map[int32]map[string]string)}
}

func (m *memStore) PlayerByID(ctx context.Context, id int32) (*model.Player, error) {
	return m.byID[id], nil
}

func (m *memStore) PlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	for _, p := range m.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) PlayerCreate(ctx context.Context, email, displayName string, passwordHash *string) (*model.Player, error) {
	m.nextID++
	p := &model.Player{ID: m.nextID, Email: email, DisplayName: displayName, PasswordHash: passwordHash}
	m.byID[p.ID] = p
	m.data[p.ID] = make(map[string]string)
	return p, nil
}

func (m *memStore) PlayerSetPassword(ctx context.Context, id int32, passwordHash string) error {
	m.byID[id].PasswordHash = &passwordHash
	return nil
}

func (m *memStore) PlayerSetRole(ctx context.Context, id int32, role model.Role) error {
	m.byID[id].Role = role
	return nil
}

func (m *memStore) PlayerSetDetails(ctx context.Context, id int32, displayName string) error {
	m.byID[id].DisplayName = displayName
	return nil
}

func (m *memStore) PlayerDataAll(ctx context.Context, id int32) (map[string]string, error) {
	return m.data[id], nil
}

func (m *memStore) PlayerDataGet(ctx context.Context, id int32, key string) (string, bool, error) {
	v, ok := m.data[id][key]
	return v, ok, nil
}

func (m *memStore) PlayerDataSet(ctx context.Context, id int32, key, value string) error {
	m.data[id][key] = value
	return nil
}

func (m *memStore) PlayerDataDelete(ctx context.Context, id int32, key string) error {
	delete(m.data[id], key)
	return nil
}

func (m *memStore) GalaxyAtWarGet(ctx context.Context, id int32) (handlers.GalaxyAtWar, error) {
	return handlers.GalaxyAtWar{Level: 5000, FootballLevel: 5000, AllianceLevel: 5000, CerberusLevel: 5000}, nil
}

// harness wires a full Router against real collaborators (game manager,
// matchmaking, directory, notify factory) and a fake PlayerStore, the same
// shape RegisterAll wires in cmd/gameserver, per DESIGN.md's planned
// router-level end-to-end test.
type harness struct {
	t     *testing.T
	r     *router.Router
	reg   *router.Registry
	store *memStore
	deps  handlers.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := router.NewRegistry()
	r := router.New(reg, 1<<20)

	tokens, err := assoc.NewSigner()
	if err != nil {
		t.Fatalf("assoc.NewSigner: %v", err)
	}
	signer, err := handlers.NewSessionSigner()
	if err != nil {
		t.Fatalf("handlers.NewSessionSigner: %v", err)
	}

	store := newMemStore()
	deps := handlers.Deps{
		Games:     gamemanager.New(),
		Queue:     matchmaking.New(),
		Directory: directory.New(),
		Players:   store,
		Legal:     fakeLegal{},
		Tokens:    signer,
		Notify:    handlers.NewFactory(tokens),
	}
	handlers.RegisterAll(r, reg, deps)
	return &harness{t: t, r: r, reg: reg, store: store, deps: deps}
}

type fakeLegal struct{}

func (fakeLegal) TermsOfService() string { return "terms" }
func (fakeLegal) PrivacyPolicy() string  { return "privacy" }
func (fakeLegal) CoalescedChunks() (map[string]string, int, int) {
	return map[string]string{}, 1024, 0
}

// newTestSession builds a Session over a net.Pipe, running its writer so
// queued notifies/responses can be read off the client side of the pipe
// with a plain netpacket reader, exactly as a real client would observe
// them.
func (h *harness) newTestSession(scheme string) (*session.Session, net.Conn) {
	h.t.Helper()
	server, client := net.Pipe()
	s := session.New(h.deps.Directory.NextSessionID(), server, scheme, "127.0.0.1", 1000)
	s.SetNotifyFactory(h.deps.Notify)
	go s.RunWriter()
	h.t.Cleanup(func() { s.Close() })
	return s, client
}

func (h *harness) dispatch(s *session.Session, component, command uint16, body tdf.Group) *netpacket.Packet {
	h.t.Helper()
	w := tdf.NewWriter()
	if err := w.WriteTopLevelGroup(body); err != nil {
		h.t.Fatalf("encoding request body: %v", err)
	}
	pkt := netpacket.Packet{
		Header: netpacket.Header{Component: component, Command: command, Type: netpacket.TypeRequest, Sequence: 1},
		Body:   w.Bytes(),
	}
	return h.r.Dispatch(context.Background(), s, pkt)
}

func readPacket(t *testing.T, conn net.Conn) netpacket.Packet {
	t.Helper()
	pkt, err := netpacket.NewReader(conn, 1<<20).ReadPacket()
	if err != nil {
		t.Fatalf("reading packet: %v", err)
	}
	return pkt
}

func bodyOf(t *testing.T, pkt netpacket.Packet) tdf.Group {
	t.Helper()
	g, err := tdf.NewReader(pkt.Body).ReadTopLevelGroup()
	if err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	return g
}

func login(t *testing.T, h *harness, s *session.Session, email, password string) {
	t.Helper()
	resp := h.dispatch(s, handlers.ComponentAuthentication, handlers.CmdCreateAccount,
		tdf.NewBuilder().Str("MAI", email).Str("PAS", password).Build())
	if resp == nil || resp.Type != netpacket.TypeResponse {
		t.Fatalf("CreateAccount for %s failed: %+v", email, resp)
	}
}

// TestCreateJoinRemoveScenario reproduces spec §8 scenario 2: a host
// creates a game, a peer matchmakes into it, and RemovePlayer evicts the
// peer with both sessions observing PlayerRemoved.
func TestCreateJoinRemoveScenario(t *testing.T) {
	h := newHarness(t)

	hostSession, hostConn := h.newTestSession("tcp")
	login(t, h, hostSession, "host@example.com", "hunter2")

	createResp := h.dispatch(hostSession, handlers.ComponentGameManager, handlers.CmdCreateGame,
		tdf.NewBuilder().
			StrMap("ATT", []string{"ME3map", "ME3privacy"}, map[string]string{"ME3map": "map2", "ME3privacy": "PUBLIC"}).
			U16("TOP", 287).
			Build())
	if createResp == nil || createResp.Type != netpacket.TypeResponse {
		t.Fatalf("CreateGame failed: %+v", createResp)
	}
	gameID, ok := bodyOf(t, *createResp).GetU32("GID")
	if !ok || gameID != 1 {
		t.Fatalf("CreateGameResponse GID = (%d, %v), want (1, true)", gameID, ok)
	}

	// The host's own GameSetup notify, queued synchronously by Create.
	setup := readPacket(t, hostConn)
	if setup.Type != netpacket.TypeNotify || setup.Command != handlers.NotifyGameSetup {
		t.Fatalf("expected host GameSetup notify, got %+v", setup.Header)
	}

	peerSession, peerConn := h.newTestSession("tcp")
	login(t, h, peerSession, "peer@example.com", "hunter2")

	mmResp := h.dispatch(peerSession, handlers.ComponentGameManager, handlers.CmdStartMatchmaking,
		tdf.NewBuilder().
			StrMap("RUL", []string{"map"}, map[string]string{"map": "map2"}).
			Build())
	if mmResp == nil || mmResp.Type != netpacket.TypeResponse {
		t.Fatalf("StartMatchmaking failed: %+v", mmResp)
	}
	msid, ok := bodyOf(t, *mmResp).GetU32("MSI")
	if !ok || int32(msid) != peerSession.ID() {
		t.Fatalf("MatchmakingResponse MSID = (%d, %v), want (%d, true)", msid, ok, peerSession.ID())
	}

	peerSetup := readPacket(t, peerConn)
	if peerSetup.Type != netpacket.TypeNotify || peerSetup.Command != handlers.NotifyGameSetup {
		t.Fatalf("expected peer GameSetup notify, got %+v", peerSetup.Header)
	}
	peerSetupGID, _ := bodyOf(t, peerSetup).GetU32("GID")
	if peerSetupGID != gameID {
		t.Errorf("peer GameSetup GID = %d, want %d", peerSetupGID, gameID)
	}

	// The host observes PlayerJoining for the new peer.
	joining := readPacket(t, hostConn)
	if joining.Type != netpacket.TypeNotify || joining.Command != handlers.NotifyPlayerJoining {
		t.Fatalf("expected host PlayerJoining notify, got %+v", joining.Header)
	}

	removeResp := h.dispatch(hostSession, handlers.ComponentGameManager, handlers.CmdRemovePlayer,
		tdf.NewBuilder().
			I32("GID", int32(gameID)).
			I32("PID", int32(peerSession.Player().ID)).
			I32("REA", handlers.ReasonPlayerLeft).
			Build())
	if removeResp == nil || removeResp.Type != netpacket.TypeResponse {
		t.Fatalf("RemovePlayer failed: %+v", removeResp)
	}

	for _, conn := range []net.Conn{hostConn, peerConn} {
		removed := readPacket(t, conn)
		if removed.Type != netpacket.TypeNotify || removed.Command != handlers.NotifyPlayerRemoved {
			t.Fatalf("expected PlayerRemoved notify, got %+v", removed.Header)
		}
		body := bodyOf(t, removed)
		gid, _ := body.GetU32("GID")
		pid, _ := body.GetU32("PID")
		reason, _ := body.GetI32("REA")
		if gid != gameID || int32(pid) != peerSession.Player().ID || reason != handlers.ReasonPlayerLeft {
			t.Errorf("PlayerRemoved body = %+v, want game=%d player=%d reason=%d", body, gameID, peerSession.Player().ID, handlers.ReasonPlayerLeft)
		}
	}
}

// TestSilentReAuthDisplacesPreviousSession reproduces spec §8 scenario 1:
// a second connection silently re-authenticates the same player and the
// session directory's binding moves to the new session.
func TestSilentReAuthDisplacesPreviousSession(t *testing.T) {
	h := newHarness(t)

	s1, conn1 := h.newTestSession("tcp")
	login(t, h, s1, "shepard@example.com", "hunter2")
	token := s1.SessionToken()
	playerID := s1.Player().ID

	s2, _ := h.newTestSession("tcp")
	resp := h.dispatch(s2, handlers.ComponentAuthentication, handlers.CmdSilentLogin,
		tdf.NewBuilder().Str("AUT", token).Build())
	if resp == nil || resp.Type != netpacket.TypeResponse {
		t.Fatalf("SilentLogin failed: %+v", resp)
	}
	if s2.Player() == nil || s2.Player().ID != playerID {
		t.Fatalf("SilentLogin bound player = %+v, want id %d", s2.Player(), playerID)
	}
	if got := h.deps.Directory.Lookup(playerID); got != s2 {
		t.Fatalf("directory lookup after silent re-auth = %v, want s2", got)
	}

	// The displaced session's connection is closed by the duplicate-login
	// eviction, which the first connection observes as EOF.
	_ = conn1.Close()
}

// TestDisconnectReleasesGameAndDirectory drives a session through RunSession
// itself (rather than Dispatch directly) so that closing its connection
// exercises the release hook RegisterAll installs: a lone host's disconnect
// must leave its now-empty game destroyed and its directory binding gone,
// per §3's "on release it leaves its game ... and drops its subscription
// edges" and §9's session-Drop-removes-the-player contract.
func TestDisconnectReleasesGameAndDirectory(t *testing.T) {
	h := newHarness(t)

	// Built without newTestSession's own RunWriter goroutine: RunSession
	// starts its own below, and this test never needs to read anything off
	// hostConn before triggering the disconnect.
	server, hostConn := net.Pipe()
	t.Cleanup(func() { hostConn.Close() })
	hostSession := session.New(h.deps.Directory.NextSessionID(), server, "tcp", "127.0.0.1", 1000)
	hostSession.SetNotifyFactory(h.deps.Notify)

	login(t, h, hostSession, "lonehost@example.com", "hunter2")
	hostID := hostSession.Player().ID

	createResp := h.dispatch(hostSession, handlers.ComponentGameManager, handlers.CmdCreateGame,
		tdf.NewBuilder().StrMap("ATT", []string{"ME3map"}, map[string]string{"ME3map": "map2"}).U16("TOP", 287).Build())
	if createResp == nil || createResp.Type != netpacket.TypeResponse {
		t.Fatalf("CreateGame failed: %+v", createResp)
	}
	gameID, _ := bodyOf(t, *createResp).GetU32("GID")

	if got := h.deps.Games.Get(int32(gameID)); got == nil {
		t.Fatalf("game %d missing before disconnect", gameID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.r.RunSession(ctx, hostSession)
		close(done)
	}()

	_ = hostConn.Close()
	<-done

	if got := h.deps.Games.Get(int32(gameID)); got != nil {
		t.Errorf("game %d still registered after its only member disconnected", gameID)
	}
	if got := h.deps.Directory.Lookup(hostID); got != nil {
		t.Errorf("directory still binds player %d to a session after disconnect", hostID)
	}
}

// TestDisconnectDequeuesMatchmakingEntry covers the matchmaking half of the
// same release contract: a queued (not yet matched) player's entry must not
// outlive its session.
func TestDisconnectDequeuesMatchmakingEntry(t *testing.T) {
	h := newHarness(t)

	// Built without newTestSession's own RunWriter goroutine, for the same
	// reason as TestDisconnectReleasesGameAndDirectory: RunSession starts
	// its own below, and login/StartMatchmaking go through h.dispatch
	// directly rather than over the wire.
	server, conn := net.Pipe()
	t.Cleanup(func() { conn.Close() })
	s := session.New(h.deps.Directory.NextSessionID(), server, "tcp", "127.0.0.1", 1000)
	s.SetNotifyFactory(h.deps.Notify)
	login(t, h, s, "queued@example.com", "hunter2")

	mmResp := h.dispatch(s, handlers.ComponentGameManager, handlers.CmdStartMatchmaking,
		tdf.NewBuilder().StrMap("RUL", []string{"map"}, map[string]string{"map": "no-such-map"}).Build())
	if mmResp == nil || mmResp.Type != netpacket.TypeResponse {
		t.Fatalf("StartMatchmaking failed: %+v", mmResp)
	}
	if h.deps.Queue.Len() != 1 {
		t.Fatalf("queue length = %d, want 1 before disconnect", h.deps.Queue.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.r.RunSession(ctx, s)
		close(done)
	}()

	_ = conn.Close()
	<-done

	if h.deps.Queue.Len() != 0 {
		t.Errorf("queue length = %d, want 0 after disconnect", h.deps.Queue.Len())
	}
}

// TestMatchmakingFailedNotifyShape checks the MatchmakingFailed body the
// sweeper sends on timeout, per §4.G.
func TestMatchmakingFailedNotifyShape(t *testing.T) {
	f := handlers.NewFactory(mustSigner(t))
	pkt := f.MatchmakingFailed(42)
	if pkt.Type != netpacket.TypeNotify || pkt.Component != handlers.ComponentGameManager || pkt.Command != handlers.NotifyMatchmakingFailed {
		t.Fatalf("MatchmakingFailed header = %+v, want a GameManager notify", pkt.Header)
	}
	body, err := tdf.NewReader(pkt.Body).ReadTopLevelGroup()
	if err != nil {
		t.Fatalf("decoding MatchmakingFailed body: %v", err)
	}
	pid, _ := body.GetU32("PID")
	reason, _ := body.GetI32("REA")
	if pid != 42 || reason != handlers.ReasonMatchmakingTimeout {
		t.Errorf("MatchmakingFailed body = (PID=%d, REA=%d), want (42, %d)", pid, reason, handlers.ReasonMatchmakingTimeout)
	}
}

func mustSigner(t *testing.T) *assoc.Signer {
	t.Helper()
	signer, err := assoc.NewSigner()
	if err != nil {
		t.Fatalf("assoc.NewSigner: %v", err)
	}
	return signer
}

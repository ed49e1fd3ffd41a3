package handlers

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/directory"
	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/gamemanager"
	"github.com/PocketRelay/Server-sub000/internal/matchmaking"
	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// newGamePlayer builds the roster snapshot handed to gameentity from the
// requesting session: its authenticated player, current network info, and
// the session itself as the notify handle (session.Session satisfies
// gameentity.NotifyHandle without any adapter, since both interfaces share
// the Enqueue/ID shape).
func newGamePlayer(req *router.Request, player *model.Player) *gameentity.GamePlayer {
	return &gameentity.GamePlayer{
		Player:      player,
		DisplayName: player.DisplayName,
		Network:     req.Session.NetworkInfo(),
		Mesh:        gameentity.MeshQueued,
		Handle:      req.Session,
	}
}

// HandleCreateGame creates a new game hosted by the requesting player,
// scans the matchmaking queue against it, and responds with the new game's
// id, per §4.J.
func HandleCreateGame(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	body, berr := req.Body()
	if berr != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	attrs, _ := body.GetStrMap("ATT")
	settings, _ := body.GetU16("TOP")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	broadcaster, berr2 := router.MustService[*Factory](req)
	if berr2 != nil {
		return nil, berr2
	}

	host := newGamePlayer(req, player)
	host.Mesh = gameentity.MeshActiveConnected
	g := games.Create(host, attrs, gameentity.Setting(settings), broadcaster)
	req.Session.SetCurrentGameID(g.ID())

	// gameentity.New seeds the host into slot 0 directly, without routing
	// through AddPlayer's broadcast path (there's no one else to notify
	// yet), so the host's own GameSetup snapshot — the client's only view
	// of its freshly created game — has to be sent explicitly here.
	_ = req.Session.Enqueue(broadcaster.GameSetup(g, host))

	if queue, qerr := router.MustService[*matchmaking.Queue](req); qerr == nil {
		admitted := queue.GameCreated(g)
		for _, gp := range admitted {
			if gp.Handle != nil {
				if h, ok := gp.Handle.(interface{ SetCurrentGameID(int32) }); ok {
					h.SetCurrentGameID(g.ID())
				}
			}
			subscribeRoster(req, g, gp.Player.ID)
		}
	}

	b := tdf.NewBuilder().U32("GID", uint32(g.ID()))
	out := b.Build()
	return &out, nil
}

// HandleAdvanceGameState transitions a game's lifecycle state.
func HandleAdvanceGameState(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")
	state, _ := body.GetU32("STA")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}
	g.SetState(gameentity.State(state))
	return nil, nil
}

// HandleSetGameSettings replaces a game's settings bitflags.
func HandleSetGameSettings(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")
	settings, _ := body.GetU16("ATT")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}
	g.SetSetting(gameentity.Setting(settings))
	return nil, nil
}

// HandleSetGameAttributes merges new attributes into a game.
func HandleSetGameAttributes(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")
	attrs, _ := body.GetStrMap("ATT")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}
	g.SetAttributes(attrs)
	return nil, nil
}

// HandleJoinGame admits the requesting player directly into a named game,
// bypassing matchmaking rule checks beyond roster capacity.
func HandleJoinGame(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	body, berr := req.Body()
	if berr != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}

	gp := newGamePlayer(req, player)
	if g.CheckJoinable(nil) == gameentity.Full || !g.AddPlayer(gp) {
		return nil, errs.New(errs.CodeInvalidInformation)
	}
	req.Session.SetCurrentGameID(g.ID())
	subscribeRoster(req, g, player.ID)

	b := tdf.NewBuilder().U32("GID", uint32(g.ID()))
	out := b.Build()
	return &out, nil
}

// subscribeRoster mutually subscribes the newly joined player to every
// other current roster member's presence, and vice versa, so extended
// session-data updates (UpdateNetworkInfo/UpdateHardwareFlags) reach every
// participant, per §4.J's publish-to-subscribers contract.
func subscribeRoster(req *router.Request, g *gameentity.Game, joinedID int32) {
	dir, derr := router.MustService[*directory.Directory](req)
	if derr != nil {
		return
	}
	var joinedHandle gameentity.NotifyHandle = req.Session
	for _, gp := range g.Roster() {
		if gp.Player.ID == joinedID && gp.Handle != nil {
			joinedHandle = gp.Handle
		}
	}
	for _, gp := range g.Roster() {
		if gp.Player.ID == joinedID || gp.Handle == nil {
			continue
		}
		dir.Subscribe(gp.Player.ID, joinedHandle)
		dir.Subscribe(joinedID, gp.Handle)
	}
}

// HandleRemovePlayer removes a target player from a game; §8's
// create-join-remove scenario is this call.
func HandleRemovePlayer(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")
	targetID, _ := body.GetI32("PID")
	reason, _ := body.GetI32("REA")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	games.RemovePlayer(gameID, targetID, reason)

	if dir, derr := router.MustService[*directory.Directory](req); derr == nil {
		if s := dir.Lookup(targetID); s != nil {
			s.SetCurrentGameID(0)
		}
	}
	return nil, nil
}

// HandleStartMatchmaking tries an immediate join; on failure it enqueues
// the player, per §4.J: "calls try_add; if that fails, calls queue;
// responds with {msid = session_id}".
func HandleStartMatchmaking(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	body, berr := req.Body()
	if berr != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	rawRules, _ := body.GetStrMap("RUL")
	rs := model.NewRuleSet(rawRules)

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	queue, qerr := router.MustService[*matchmaking.Queue](req)
	if qerr != nil {
		return nil, qerr
	}

	gp := newGamePlayer(req, player)
	if g := games.TryAdd(gp, &rs); g != nil {
		req.Session.SetCurrentGameID(g.ID())
		subscribeRoster(req, g, player.ID)
	} else {
		queue.Enqueue(gp, rs)
	}

	b := tdf.NewBuilder().U32("MSI", uint32(req.Session.ID()))
	out := b.Build()
	return &out, nil
}

// HandleCancelMatchmaking dequeues the requesting player.
func HandleCancelMatchmaking(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	player, err := router.Player(req)
	if err != nil {
		return nil, err
	}
	queue, qerr := router.MustService[*matchmaking.Queue](req)
	if qerr != nil {
		return nil, qerr
	}
	queue.Unqueue(player.ID)
	return nil, nil
}

// HandleUpdateMeshConnection extracts the first target from the request and
// reports its mesh-connection state to the game, per §4.J.
func HandleUpdateMeshConnection(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")
	targetID, _ := body.GetI32("PID")
	state, _ := body.GetU32("STA")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}
	g.UpdateMesh(targetID, gameentity.MeshState(state))
	return nil, nil
}

// HandleGetGameDataFromID responds with a game's current attributes and
// settings snapshot.
func HandleGetGameDataFromID(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	gameID, _ := body.GetI32("GID")

	games, gerr := router.MustService[*gamemanager.Manager](req)
	if gerr != nil {
		return nil, gerr
	}
	g := games.Get(gameID)
	if g == nil {
		return nil, errs.New(errs.CodeInvalidInformation)
	}

	b := tdf.NewBuilder()
	b.StrMap("ATT", g.AttributeKeys(), g.Attributes())
	b.U32("GID", uint32(g.ID()))
	b.U16("TOP", uint16(g.Settings()))
	b.U32("STA", uint32(g.State()))
	out := b.Build()
	return &out, nil
}

package handlers

import (
	"github.com/PocketRelay/Server-sub000/internal/directory"
	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/gamemanager"
	"github.com/PocketRelay/Server-sub000/internal/matchmaking"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/session"
)

// Deps bundles every shared collaborator register.go threads into the
// Router's Registry. cmd/gameserver builds one of these at startup and
// hands it here; internal/handlers never constructs its own collaborators.
type Deps struct {
	Games     *gamemanager.Manager
	Queue     *matchmaking.Queue
	Directory *directory.Directory
	Players   PlayerStore
	Retriever Retriever
	Legal     LegalContent
	Tokens    *SessionSigner
	Notify    *Factory
}

// RegisterAll wires every Authentication/GameManager/Redirector/Util/
// UserSessions handler into r, and registers deps into the shared Registry
// under every type a handler or collaborator pulls them out by, per §9's
// typed-extension model.
func RegisterAll(r *router.Router, registry *router.Registry, deps Deps) {
	router.RegisterService[*gamemanager.Manager](registry, deps.Games)
	router.RegisterService[*matchmaking.Queue](registry, deps.Queue)
	router.RegisterService[*directory.Directory](registry, deps.Directory)
	router.RegisterService[PlayerStore](registry, deps.Players)
	router.RegisterService[router.PlayerDataLoader](registry, deps.Players)
	if deps.Retriever != nil {
		router.RegisterService[Retriever](registry, deps.Retriever)
	}
	router.RegisterService[LegalContent](registry, deps.Legal)
	router.RegisterService[*SessionSigner](registry, deps.Tokens)
	router.RegisterService[*Factory](registry, deps.Notify)
	router.RegisterService[session.NotifyFactory](registry, deps.Notify)
	router.RegisterService[gameentity.Broadcaster](registry, deps.Notify)

	r.SetReleaseHook(func(s *session.Session) {
		player := s.Player()
		if player == nil {
			return
		}
		if gameID := s.CurrentGameID(); gameID != 0 {
			deps.Games.RemovePlayer(gameID, player.ID, ReasonConnectionLost)
		}
		deps.Queue.Unqueue(player.ID)
		deps.Directory.RemoveSession(player.ID, s)
	})

	r.Handle(ComponentAuthentication, CmdCreateAccount, HandleCreateAccount)
	r.Handle(ComponentAuthentication, CmdLogin, HandleLogin)
	r.Handle(ComponentAuthentication, CmdLogOut, HandleLogOut)
	r.Handle(ComponentAuthentication, CmdLoginPersona, HandleLoginPersona)
	r.Handle(ComponentAuthentication, CmdOriginLogin, HandleOriginLogin)
	r.Handle(ComponentAuthentication, CmdSilentLogin, HandleSilentLogin)
	r.Handle(ComponentAuthentication, CmdListUserEntitlements2, HandleListUserEntitlements2)
	r.Handle(ComponentAuthentication, CmdGetLegalDocsInfo, HandleGetLegalDocsInfo)
	r.Handle(ComponentAuthentication, CmdGetTermsOfServiceContent, HandleGetTermsOfServiceContent)
	r.Handle(ComponentAuthentication, CmdGetPrivacyPolicyContent, HandleGetPrivacyPolicyContent)
	r.Handle(ComponentAuthentication, CmdGetAuthToken, HandleGetAuthToken)
	r.Handle(ComponentAuthentication, CmdPasswordForgot, HandlePasswordForgot)

	r.Handle(ComponentGameManager, CmdCreateGame, HandleCreateGame)
	r.Handle(ComponentGameManager, CmdAdvanceGameState, HandleAdvanceGameState)
	r.Handle(ComponentGameManager, CmdSetGameSettings, HandleSetGameSettings)
	r.Handle(ComponentGameManager, CmdSetGameAttributes, HandleSetGameAttributes)
	r.Handle(ComponentGameManager, CmdJoinGame, HandleJoinGame)
	r.Handle(ComponentGameManager, CmdRemovePlayer, HandleRemovePlayer)
	r.Handle(ComponentGameManager, CmdStartMatchmaking, HandleStartMatchmaking)
	r.Handle(ComponentGameManager, CmdCancelMatchmaking, HandleCancelMatchmaking)
	r.Handle(ComponentGameManager, CmdUpdateMeshConnection, HandleUpdateMeshConnection)
	r.Handle(ComponentGameManager, CmdGetGameDataFromID, HandleGetGameDataFromID)

	r.Handle(ComponentRedirector, CmdGetServerInstance, HandleGetServerInstance)

	r.Handle(ComponentUtil, CmdFetchClientConfig, HandleFetchClientConfig)
	r.Handle(ComponentUtil, CmdPing, HandlePing)
	r.Handle(ComponentUtil, CmdGetTelemetryServer, handleGetTelemetryServer)
	r.Handle(ComponentUtil, CmdGetTickerServer, handleGetTickerServer)
	r.Handle(ComponentUtil, CmdPreAuth, HandlePreAuth)
	r.Handle(ComponentUtil, CmdPostAuth, HandlePostAuth)
	r.Handle(ComponentUtil, CmdUserSettingsSave, HandleUserSettingsSave)
	r.Handle(ComponentUtil, CmdUserSettingsLoadAll, HandleUserSettingsLoadAll)
	r.Handle(ComponentUtil, CmdSuspendUserPing, HandleSuspendUserPing)

	r.Handle(ComponentUserSessions, CmdResumeSession, HandleResumeSession)
	r.Handle(ComponentUserSessions, CmdUpdateNetworkInfo, HandleUpdateNetworkInfo)
	r.Handle(ComponentUserSessions, CmdUpdateHardwareFlags, HandleUpdateHardwareFlags)
}

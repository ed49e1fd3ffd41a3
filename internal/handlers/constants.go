// Package handlers wires the wire-level component/command contract onto
// the session, game manager, matchmaking, directory, persistence, and
// tunnel-association collaborators: every HandlerFunc registered with
// internal/router, and the session.NotifyFactory / gameentity.Broadcaster
// implementations those handlers share. Grounded on the teacher's
// internal/gameserver/handlers package layout (one file per protocol area,
// a single RegisterAll wiring them into the dispatch table).
package handlers

// Component ids, per the client contract.
const (
	ComponentAuthentication uint16 = 0x1
	ComponentGameManager    uint16 = 0x4
	ComponentRedirector     uint16 = 0x5
	ComponentUtil           uint16 = 0x9
	ComponentUserSessions   uint16 = 0x7802
)

// Authentication commands.
const (
	CmdCreateAccount           uint16 = 0x0A
	CmdLogin                   uint16 = 0x28
	CmdLogOut                  uint16 = 0x46
	CmdLoginPersona             uint16 = 0x6E
	CmdOriginLogin              uint16 = 0x98
	CmdSilentLogin              uint16 = 0x32
	CmdListUserEntitlements2    uint16 = 0x1D
	CmdGetLegalDocsInfo         uint16 = 0xF2
	CmdGetTermsOfServiceContent uint16 = 0xF6
	CmdGetPrivacyPolicyContent  uint16 = 0x2F
	CmdGetAuthToken             uint16 = 0x24
	CmdPasswordForgot           uint16 = 0x2D
)

// GameManager commands.
const (
	CmdCreateGame          uint16 = 0x01
	CmdAdvanceGameState    uint16 = 0x03
	CmdSetGameSettings     uint16 = 0x04
	CmdSetGameAttributes   uint16 = 0x07
	CmdJoinGame            uint16 = 0x09
	CmdRemovePlayer        uint16 = 0x0B
	CmdStartMatchmaking    uint16 = 0x0D
	CmdCancelMatchmaking   uint16 = 0x0E
	CmdUpdateMeshConnection uint16 = 0x1D
	CmdGetGameDataFromID   uint16 = 0x69
)

// GameManager notifies.
const (
	NotifyGameSetup             uint16 = 0x14
	NotifyPlayerJoining         uint16 = 0x15
	NotifyPlayerJoinCompleted   uint16 = 0x1E
	NotifyPlayerRemoved         uint16 = 0x28
	NotifyHostMigrationStart    uint16 = 0x46
	NotifyHostMigrationFinished uint16 = 0x3C
	NotifyGameAttribChange      uint16 = 0x50
	NotifyGameStateChange       uint16 = 0x64
	NotifyGameSettingsChange    uint16 = 0x6E
	NotifyGamePlayerStateChange uint16 = 0x74
	NotifyAdminListChange       uint16 = 0xCA
	NotifyMatchmakingFailed     uint16 = 0x0A
)

// Redirector commands.
const (
	CmdGetServerInstance uint16 = 0x01
)

// Util commands.
const (
	CmdFetchClientConfig   uint16 = 0x01
	CmdPing                uint16 = 0x02
	CmdGetTelemetryServer  uint16 = 0x05
	CmdGetTickerServer     uint16 = 0x06
	CmdPreAuth             uint16 = 0x07
	CmdPostAuth            uint16 = 0x08
	CmdUserSettingsSave    uint16 = 0x0B
	CmdUserSettingsLoadAll uint16 = 0x0C
	CmdSuspendUserPing     uint16 = 0x1B
)

// UserSessions commands.
const (
	CmdUpdateHardwareFlags uint16 = 0x08
	CmdUpdateNetworkInfo   uint16 = 0x14
	CmdResumeSession       uint16 = 0x23
)

// UserSessions notifies.
const (
	NotifySetSession                  uint16 = 0x01
	NotifySessionDetails               uint16 = 0x02
	NotifyFetchExtendedData            uint16 = 0x03
	NotifyUpdateExtendedDataAttribute  uint16 = 0x05
)

// RemovePlayer reason codes. PlayerLeft is the only one the end-to-end
// scenarios exercise directly; the rest are carried for completeness.
const (
	ReasonPlayerLeft           int32 = 6
	ReasonGameDestroyed        int32 = 0
	ReasonServerShuttingDown   int32 = 2
	ReasonHostKicked            int32 = 7
	ReasonConnectionLost       int32 = 9
)

// ReasonMatchmakingTimeout is the MatchmakingFailed notify's reason code for
// a queue entry the periodic sweep expired, per §4.G.
const ReasonMatchmakingTimeout int32 = 1

// GameSetup's fixed literal fields, reproduced byte-for-byte per the design
// note on client compatibility. Values are not semantically reinterpreted.
const (
	gameSetupGPVH uint64 = 0x5a4f2b378b715c6
	gameSetupGSID uint64 = 0x4000000a76b645
	gameSetupSEED uint32 = 0x4cbc8585
	gameSetupUUID        = "286a2373-3e6e-46b9-8294-3ef05e479503"
	gameSetupVSTR        = "ME3-295976325-179181965240128"
)

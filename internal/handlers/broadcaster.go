package handlers

import (
	"github.com/PocketRelay/Server-sub000/internal/assoc"
	"github.com/PocketRelay/Server-sub000/internal/gameentity"
	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// Factory is the single implementation of both gameentity.Broadcaster and
// session.NotifyFactory: every wire shape for a game-lifecycle or
// subscription-lifecycle event lives here, grounded on the component/
// command table in §6 and the notify-shape sketches in §4.E/§4.J. One
// instance is shared process-wide and registered into the router's
// Registry under both interface types.
type Factory struct {
	tokens *assoc.Signer
}

// NewFactory builds a Factory. tokens is stored on the Factory; none of the
// notifies built here read it, and none of them mint an association token.
func NewFactory(tokens *assoc.Signer) *Factory {
	return &Factory{tokens: tokens}
}

func notifyPacket(component, command uint16, body tdf.Group) netpacket.Packet {
	w := tdf.NewWriter()
	if err := w.WriteTopLevelGroup(body); err != nil {
		// A malformed notify body is a programming error in this package,
		// not a client-triggerable condition; an empty notify still keeps
		// the wire protocol's framing intact.
		return netpacket.Packet{Header: netpacket.Header{Component: component, Command: command, Type: netpacket.TypeNotify}}
	}
	return netpacket.Packet{
		Header: netpacket.Header{Component: component, Command: command, Type: netpacket.TypeNotify},
		Body:   w.Bytes(),
	}
}

// --- gameentity.Broadcaster ---

func (f *Factory) PlayerJoining(g *gameentity.Game, joiner *gameentity.GamePlayer) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U32("GID", uint32(g.ID()))
	b.Group("PDA", func(gp *tdf.Builder) { encodeGamePlayerData(gp, joiner) })
	return notifyPacket(ComponentGameManager, NotifyPlayerJoining, b.Build())
}

func (f *Factory) GameSetup(g *gameentity.Game, joiner *gameentity.GamePlayer) netpacket.Packet {
	b := tdf.NewBuilder()
	b.Group("GAM", func(gam *tdf.Builder) {
		gam.StrMap("ATT", g.AttributeKeys(), g.Attributes())
		roster := g.Roster()
		gam.GroupList("CAP", 1, func(i int, cap *tdf.Builder) {
			cap.U16("MAX", gameentity.MaxRosterSize)
			cap.U16("CUR", uint16(len(roster)))
		})
		gam.U32("GID", uint32(g.ID()))
		gam.U64("GPV", gameSetupGPVH)
		gam.U64("GSI", gameSetupGSID)
		gam.Str("HNA", "masseffect-3-pc")
		gam.U32("HSE", 0x4)
		gam.U32("HST", uint32(g.HostID()))
		gam.U16("PCN", uint16(len(roster)))
		gam.GroupList("PRO", len(roster), func(i int, gp *tdf.Builder) {
			encodeGamePlayerData(gp, roster[i])
		})
		gam.U32("SED", gameSetupSEED)
		gam.U16("SLO", uint16(len(roster)-1))
		gam.U32("STA", uint32(g.State()))
		gam.U16("TOP", uint16(g.Settings()))
		gam.Str("UID", gameSetupUUID)
		gam.Str("VST", gameSetupVSTR)
	})
	return notifyPacket(ComponentGameManager, NotifyGameSetup, b.Build())
}

func encodeGamePlayerData(b *tdf.Builder, gp *gameentity.GamePlayer) {
	b.Str("DIS", gp.DisplayName)
	b.U32("PID", uint32(gp.Player.ID))
	b.U32("MST", uint32(gp.Mesh))
	if gp.Network != nil {
		b.U32("EXI", gp.Network.External.IP)
		b.U16("EXP", gp.Network.External.Port)
		b.U32("INI", gp.Network.Internal.IP)
		b.U16("INP", gp.Network.Internal.Port)
	}
}

func (f *Factory) StateChange(g *gameentity.Game) netpacket.Packet {
	b := tdf.NewBuilder().U32("GID", uint32(g.ID())).U32("STA", uint32(g.State()))
	return notifyPacket(ComponentGameManager, NotifyGameStateChange, b.Build())
}

func (f *Factory) SettingChange(g *gameentity.Game) netpacket.Packet {
	b := tdf.NewBuilder().U32("ATT", uint32(g.Settings())).U32("GID", uint32(g.ID()))
	return notifyPacket(ComponentGameManager, NotifyGameSettingsChange, b.Build())
}

func (f *Factory) AttributesChange(g *gameentity.Game) netpacket.Packet {
	b := tdf.NewBuilder()
	b.StrMap("ATT", g.AttributeKeys(), g.Attributes())
	b.U32("GID", uint32(g.ID()))
	return notifyPacket(ComponentGameManager, NotifyGameAttribChange, b.Build())
}

func (f *Factory) GamePlayerStateChange(g *gameentity.Game, gp *gameentity.GamePlayer) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U32("GID", uint32(g.ID()))
	b.U32("PID", uint32(gp.Player.ID))
	b.U32("STA", uint32(gp.Mesh))
	return notifyPacket(ComponentGameManager, NotifyGamePlayerStateChange, b.Build())
}

func (f *Factory) PlayerJoinCompleted(g *gameentity.Game, gp *gameentity.GamePlayer) netpacket.Packet {
	b := tdf.NewBuilder().U32("GID", uint32(g.ID())).U32("PID", uint32(gp.Player.ID))
	return notifyPacket(ComponentGameManager, NotifyPlayerJoinCompleted, b.Build())
}

func (f *Factory) AdminListChange(g *gameentity.Game, gp *gameentity.GamePlayer, add bool) netpacket.Packet {
	op := uint8(0)
	if add {
		op = 1
	}
	b := tdf.NewBuilder()
	b.U32("ALI", uint32(gp.Player.ID))
	b.U32("GID", uint32(g.ID()))
	b.U8("OPE", op)
	return notifyPacket(ComponentGameManager, NotifyAdminListChange, b.Build())
}

func (f *Factory) PlayerRemoved(g *gameentity.Game, gp *gameentity.GamePlayer, reason int32) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U32("GID", uint32(g.ID()))
	b.U32("PID", uint32(gp.Player.ID))
	b.I32("REA", reason)
	return notifyPacket(ComponentGameManager, NotifyPlayerRemoved, b.Build())
}

func (f *Factory) HostMigrationStart(g *gameentity.Game) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U32("GID", uint32(g.ID()))
	b.U32("HOS", uint32(g.HostID()))
	b.U8("MIT", 1)
	return notifyPacket(ComponentGameManager, NotifyHostMigrationStart, b.Build())
}

func (f *Factory) HostMigrationFinished(g *gameentity.Game) netpacket.Packet {
	b := tdf.NewBuilder().U32("GID", uint32(g.ID()))
	return notifyPacket(ComponentGameManager, NotifyHostMigrationFinished, b.Build())
}

func (f *Factory) FetchExtendedData(g *gameentity.Game, forPlayerID int32) netpacket.Packet {
	b := tdf.NewBuilder().U32("PID", uint32(forPlayerID))
	return notifyPacket(ComponentUserSessions, NotifyFetchExtendedData, b.Build())
}

func (f *Factory) SetSession(g *gameentity.Game, gp *gameentity.GamePlayer) netpacket.Packet {
	b := tdf.NewBuilder()
	b.Group("DAT", func(dat *tdf.Builder) {
		encodeGamePlayerData(dat, gp)
		dat.U32("GID", uint32(g.ID()))
	})
	b.U32("PID", uint32(gp.Player.ID))
	return notifyPacket(ComponentUserSessions, NotifySetSession, b.Build())
}

// MatchmakingFailed notifies a queued player that their entry expired
// before a joinable game turned up, per §4.G's periodic-sweep failure mode.
// Not part of gameentity.Broadcaster or session.NotifyFactory — the
// matchmaking sweeper calls it directly, since it has no Game to report
// against.
func (f *Factory) MatchmakingFailed(playerID int32) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U32("PID", uint32(playerID))
	b.I32("REA", ReasonMatchmakingTimeout)
	return notifyPacket(ComponentGameManager, NotifyMatchmakingFailed, b.Build())
}

// SetSessionSelf builds the SetSession notify a session queues for itself
// right after PostAuth, before it has joined any game.
func (f *Factory) SetSessionSelf(s *session.Session, player *model.Player) netpacket.Packet {
	b := tdf.NewBuilder()
	b.Group("DAT", func(dat *tdf.Builder) {
		dat.Str("DIS", player.DisplayName)
		dat.U32("PID", uint32(player.ID))
		if ni := s.NetworkInfo(); ni != nil {
			dat.U32("EXI", ni.External.IP)
			dat.U16("EXP", ni.External.Port)
			dat.U32("INI", ni.Internal.IP)
			dat.U16("INP", ni.Internal.Port)
		}
	})
	b.U32("PID", uint32(player.ID))
	return notifyPacket(ComponentUserSessions, NotifySetSession, b.Build())
}

// --- session.NotifyFactory ---

func (f *Factory) UserAdded(s *session.Session) netpacket.Packet {
	player := s.Player()
	b := tdf.NewBuilder()
	if player != nil {
		b.U32("PID", uint32(player.ID))
	}
	b.U32("SID", uint32(s.ID()))
	return notifyPacket(ComponentUserSessions, NotifySessionDetails, b.Build())
}

func (f *Factory) UserUpdated(s *session.Session, flags uint16) netpacket.Packet {
	b := tdf.NewBuilder()
	b.U16("FLA", flags)
	b.U32("SID", uint32(s.ID()))
	return notifyPacket(ComponentUserSessions, NotifyUpdateExtendedDataAttribute, b.Build())
}

func (f *Factory) UserRemoved(s *session.Session) netpacket.Packet {
	b := tdf.NewBuilder().U32("SID", uint32(s.ID()))
	return notifyPacket(ComponentUserSessions, NotifySessionDetails, b.Build())
}

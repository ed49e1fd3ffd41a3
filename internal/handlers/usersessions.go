package handlers

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// HandleResumeSession re-associates a reconnecting client with its prior
// authenticated player, using the session token minted at login, per
// §4.J and §8's silent re-auth scenario.
func HandleResumeSession(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	token, _ := body.GetString("SKE")

	signer, serr := router.MustService[*SessionSigner](req)
	if serr != nil {
		return nil, serr
	}
	playerID, verr := signer.Verify(token)
	if verr != nil {
		return nil, errs.New(errs.CodeInvalidSession)
	}

	store, perr := router.MustService[PlayerStore](req)
	if perr != nil {
		return nil, perr
	}
	player, err := store.PlayerByID(ctx, playerID)
	if err != nil || player == nil {
		return nil, errs.New(errs.CodeInvalidSession)
	}

	req.Session.SetPlayer(player)
	req.Session.SetSessionToken(token)
	return nil, nil
}

// decodeNetAddress reads one {IP, POR} pair from the named nested group.
func decodeNetAddress(body tdf.Group, tag string) model.NetworkAddress {
	g, ok := body.GetGroup(tag)
	if !ok {
		return model.NetworkAddress{}
	}
	ip, _ := g.GetU32("IP")
	port, _ := g.GetU16("POR")
	return model.NetworkAddress{IP: ip, Port: port}
}

// HandleUpdateNetworkInfo records the client's reported external/internal
// address pair and publishes the change to every current subscriber, per
// §4.J: "mutate session-data and publish; the publish step fans out ... to
// every current subscriber."
func HandleUpdateNetworkInfo(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}

	addr, hasAddr := body.GetGroup("ADD")
	external := model.NetworkAddress{}
	internal := model.NetworkAddress{}
	if hasAddr {
		external = decodeNetAddress(addr, "EXI")
		internal = decodeNetAddress(addr, "INI")
	}

	ni := req.Session.NetworkInfo()
	existing := model.NetworkInfo{}
	if ni != nil {
		existing = *ni
	}
	existing.External = external
	existing.Internal = internal
	req.Session.SetNetworkInfo(&existing)
	req.Session.PublishUpdate(session.FlagSubscribed | session.FlagOnline)
	return nil, nil
}

// HandleUpdateHardwareFlags merges a client-reported hardware capability
// bitmask into the session's network descriptor and publishes the change.
func HandleUpdateHardwareFlags(ctx context.Context, req *router.Request) (*tdf.Group, error) {
	if _, err := router.Player(req); err != nil {
		return nil, err
	}
	body, err := req.Body()
	if err != nil {
		return nil, errs.New(errs.CodeServerUnavailable)
	}
	flags, _ := body.GetU32("HWF")

	ni := req.Session.NetworkInfo()
	existing := model.NetworkInfo{}
	if ni != nil {
		existing = *ni
	}
	existing.HardwareFlags = flags
	req.Session.SetNetworkInfo(&existing)
	req.Session.PublishUpdate(session.FlagSubscribed | session.FlagOnline)
	return nil, nil
}

package router

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/model"
)

// Player extracts the authenticated player, rejecting with
// AuthenticationRequired when the session hasn't authenticated.
func Player(req *Request) (*model.Player, error) {
	p := req.Session.Player()
	if p == nil {
		return nil, errs.New(errs.CodeAuthenticationRequired)
	}
	return p, nil
}

// GamePlayer extracts the authenticated player plus their player-data rows,
// via the PlayerDataLoader registered in the request's Registry.
func GamePlayer(ctx context.Context, req *Request) (GamePlayerSnapshot, error) {
	p, err := Player(req)
	if err != nil {
		return GamePlayerSnapshot{}, err
	}
	loader, ok := Service[PlayerDataLoader](req.Registry)
	if !ok {
		return GamePlayerSnapshot{}, errs.New(errs.CodeServerUnavailable)
	}
	data, err := loader.PlayerDataAll(ctx, p.ID)
	if err != nil {
		return GamePlayerSnapshot{}, errs.Wrap(errs.CodeServerUnavailable, err)
	}
	return GamePlayerSnapshot{Player: p, Data: data}, nil
}

// MustService extracts a registered shared collaborator of type T,
// rejecting with ServerUnavailable if it was never registered — a handler
// referencing a service that doesn't exist is a wiring bug, not a client
// error, but the client still only ever sees the generic transport code.
func MustService[T any](req *Request) (T, error) {
	v, ok := Service[T](req.Registry)
	if !ok {
		var zero T
		return zero, errs.New(errs.CodeServerUnavailable)
	}
	return v, nil
}

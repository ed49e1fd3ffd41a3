package router

import (
	"context"

	"github.com/PocketRelay/Server-sub000/internal/model"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// Request bundles everything an extractor might need: the raw packet, the
// session it arrived on, and the shared-service registry. Handlers are
// plain functions of (*Request); extractor helpers below are the
// reflection-free equivalent of the spec's "blanket impl per arity" —
// ordinary closures called at the top of a handler instead of generated
// per-arity trait implementations, matching the teacher's own preference
// for explicit, hand-written dispatch over generic machinery.
type Request struct {
	Packet   netpacket.Packet
	Session  *session.Session
	Registry *Registry

	body     tdf.Group
	bodyRead bool
}

// Body decodes the packet's TDF body on first access and caches it.
func (r *Request) Body() (tdf.Group, error) {
	if r.bodyRead {
		return r.body, nil
	}
	g, err := tdf.NewReader(r.Packet.Body).ReadTopLevelGroup()
	if err != nil {
		return tdf.Group{}, err
	}
	r.body = g
	r.bodyRead = true
	return r.body, nil
}

// GamePlayerSnapshot is the extractor-C "game player" result: the
// authenticated player plus their player-data key/value rows loaded from
// persistence, per §4.B's extractor list.
type GamePlayerSnapshot struct {
	Player *model.Player
	Data   map[string]string
}

// PlayerDataLoader is the narrow persistence slice the GamePlayer extractor
// needs; satisfied by internal/persistence's repository.
type PlayerDataLoader interface {
	PlayerDataAll(ctx context.Context, playerID int32) (map[string]string, error)
}

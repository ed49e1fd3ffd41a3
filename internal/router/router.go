// Package router implements the component/command dispatch table: the
// build-time map from a packet's (component, command) pair to a typed
// handler, and the per-session loop that drives it.
package router

import (
	"context"
	"log/slog"

	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

// HandlerFunc adapts a decoded request into a response body (or nil for an
// empty Response/no Response at all). Returning an *errs.Domain error
// produces an Error packet carrying that code; any other error collapses
// to errs.CodeServerUnavailable per §7's transport/decoding error layer.
type HandlerFunc func(ctx context.Context, req *Request) (*tdf.Group, error)

type routeKey struct {
	Component uint16
	Command   uint16
}

// ReleaseFunc tears down everything a session's disconnect must clean up
// that Session.Close itself doesn't know about: leaving its current game,
// dequeuing from matchmaking, and dropping its directory binding. Wired by
// handlers.RegisterAll, which is the one place holding references to the
// game manager, matchmaking queue, and session directory at once.
type ReleaseFunc func(s *session.Session)

// Router is the build-time (component, command) -> handler table.
type Router struct {
	routes    map[routeKey]HandlerFunc
	registry  *Registry
	maxBody   int
	onRelease ReleaseFunc
}

// New builds an empty Router bound to registry (the shared-service locator
// handed to every request) and maxBody (the per-packet body size limit
// enforced by the session's stream reader).
func New(registry *Registry, maxBody int) *Router {
	return &Router{
		routes:   make(map[routeKey]HandlerFunc),
		registry: registry,
		maxBody:  maxBody,
	}
}

// Handle registers h for (component, command). Re-registering a pair
// overwrites the previous handler — used by tests to stub routes.
func (r *Router) Handle(component, command uint16, h HandlerFunc) {
	r.routes[routeKey{component, command}] = h
}

// SetReleaseHook installs the callback RunSession invokes once a session's
// read loop ends, for any per-session state that outlives the connection
// itself (current game membership, matchmaking queue entry, directory
// binding). A nil hook (the default) disables release teardown, which is
// only correct for tests that never join a session to those collaborators.
func (r *Router) SetReleaseHook(fn ReleaseFunc) {
	r.onRelease = fn
}

// Dispatch routes one decoded inbound packet to its handler and returns the
// Response/Error packet to send back, or nil when no reply is warranted
// (unknown (component,command) on a non-Request packet, or a Notify/Response
// arriving inbound, which the wire protocol never does in practice but the
// router tolerates).
func (r *Router) Dispatch(ctx context.Context, s *session.Session, pkt netpacket.Packet) *netpacket.Packet {
	key := routeKey{pkt.Component, pkt.Command}
	h, ok := r.routes[key]
	if !ok {
		return r.emptyOrNil(pkt)
	}

	req := &Request{Packet: pkt, Session: s, Registry: r.registry}
	body, err := h(ctx, req)
	if err != nil {
		return errorPacket(pkt, errs.AsCode(err))
	}
	if body == nil {
		return r.emptyOrNil(pkt)
	}
	return responsePacket(pkt, *body)
}

func (r *Router) emptyOrNil(pkt netpacket.Packet) *netpacket.Packet {
	if pkt.Type != netpacket.TypeRequest {
		return nil
	}
	resp := responsePacket(pkt, tdf.Group{})
	return resp
}

func responsePacket(req netpacket.Packet, body tdf.Group) *netpacket.Packet {
	w := tdf.NewWriter()
	// An encode failure here means a handler built an invalid body (e.g. a
	// list whose declared element type doesn't match its elements) — a
	// programming error, not a client-triggerable condition, so it
	// collapses to the same generic error the client already tolerates.
	if err := w.WriteTopLevelGroup(body); err != nil {
		slog.Error("encoding response body failed", "component", req.Component, "command", req.Command, "error", err)
		return errorPacket(req, errs.CodeServerUnavailable)
	}
	return &netpacket.Packet{
		Header: netpacket.Header{
			Component: req.Component,
			Command:   req.Command,
			Error:     0,
			Type:      netpacket.TypeResponse,
			Sequence:  req.EchoSequence(),
		},
		Body: w.Bytes(),
	}
}

func errorPacket(req netpacket.Packet, code errs.Code) *netpacket.Packet {
	return &netpacket.Packet{
		Header: netpacket.Header{
			Component: req.Component,
			Command:   req.Command,
			Error:     uint16(code),
			Type:      netpacket.TypeError,
			Sequence:  req.EchoSequence(),
		},
	}
}

// RunSession drives one session end to end: starts its writer goroutine,
// then reads and dispatches packets until the connection ends or ctx is
// cancelled (process shutdown, per §5's broadcast-signal cancellation). On
// the way out it runs the release hook before closing the session, so a
// session's game/matchmaking/directory state never outlives its connection
// — §3's "on release it leaves its game and the matchmaking queue and drops
// its subscription edges" and §9's "when the session ends, its Drop removes
// the player from the game".
func (r *Router) RunSession(ctx context.Context, s *session.Session) {
	go s.RunWriter()
	defer s.Close()

	// ReadPacket blocks on the socket with no context awareness; closing the
	// connection is what makes shutdown observable on a session's next
	// await, per §5's "each session task observes it on its next await".
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	defer func() {
		if r.onRelease != nil {
			r.onRelease(s)
		}
	}()

	for {
		pkt, err := s.ReadPacket(r.maxBody)
		if err != nil {
			return
		}

		if session.ShouldLogPacket(pkt.Header) {
			if session.ShouldLogPayload(pkt.Header) {
				slog.Debug("packet received", "session", s.ID(), "component", pkt.Component, "command", pkt.Command, "type", pkt.Type, "bodyLen", len(pkt.Body))
			} else {
				slog.Debug("packet received", "session", s.ID(), "component", pkt.Component, "command", pkt.Command, "type", pkt.Type)
			}
		}

		resp := r.Dispatch(ctx, s, pkt)
		if resp == nil {
			continue
		}
		if err := s.Enqueue(*resp); err != nil {
			return
		}
	}
}

package router

import (
	"context"
	"net"
	"testing"

	"github.com/PocketRelay/Server-sub000/internal/errs"
	"github.com/PocketRelay/Server-sub000/internal/netpacket"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/tdf"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := session.New(1, server, "tcp", "127.0.0.1", 1000)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDispatchUnknownRouteOnRequestReturnsEmptyResponse(t *testing.T) {
	r := New(NewRegistry(), 1<<16)
	s := newTestSession(t)

	pkt := netpacket.Packet{Header: netpacket.Header{Component: 0x99, Command: 0x01, Type: netpacket.TypeRequest, Sequence: 42}}
	resp := r.Dispatch(context.Background(), s, pkt)
	if resp == nil {
		t.Fatalf("Dispatch for unknown request route returned nil, want an empty Response")
	}
	if resp.Type != netpacket.TypeResponse {
		t.Errorf("Type = %v, want Response", resp.Type)
	}
	if resp.Sequence != 42 {
		t.Errorf("Sequence = %d, want echoed 42", resp.Sequence)
	}
}

func TestDispatchUnknownRouteOnNotifyReturnsNil(t *testing.T) {
	r := New(NewRegistry(), 1<<16)
	s := newTestSession(t)

	pkt := netpacket.Packet{Header: netpacket.Header{Component: 0x99, Command: 0x01, Type: netpacket.TypeNotify}}
	if resp := r.Dispatch(context.Background(), s, pkt); resp != nil {
		t.Errorf("Dispatch for unknown notify route = %+v, want nil", resp)
	}
}

func TestDispatchHandlerErrorProducesErrorPacketEchoingSequence(t *testing.T) {
	r := New(NewRegistry(), 1<<16)
	r.Handle(0x1, 0x28, func(ctx context.Context, req *Request) (*tdf.Group, error) {
		return nil, errs.New(errs.CodeWrongPassword)
	})
	s := newTestSession(t)

	pkt := netpacket.Packet{Header: netpacket.Header{Component: 0x1, Command: 0x28, Type: netpacket.TypeRequest, Sequence: 7}}
	resp := r.Dispatch(context.Background(), s, pkt)
	if resp == nil {
		t.Fatalf("Dispatch returned nil, want an Error packet")
	}
	if resp.Type != netpacket.TypeError {
		t.Errorf("Type = %v, want Error", resp.Type)
	}
	if resp.Error != uint16(errs.CodeWrongPassword) {
		t.Errorf("Error = 0x%x, want 0x%x", resp.Error, errs.CodeWrongPassword)
	}
	if resp.Sequence != 7 {
		t.Errorf("Sequence = %d, want echoed 7", resp.Sequence)
	}
}

func TestDispatchNonDomainErrorCollapsesToServerUnavailable(t *testing.T) {
	r := New(NewRegistry(), 1<<16)
	r.Handle(0x1, 0x28, func(ctx context.Context, req *Request) (*tdf.Group, error) {
		return nil, context.DeadlineExceeded
	})
	s := newTestSession(t)

	pkt := netpacket.Packet{Header: netpacket.Header{Component: 0x1, Command: 0x28, Type: netpacket.TypeRequest, Sequence: 3}}
	resp := r.Dispatch(context.Background(), s, pkt)
	if resp == nil || resp.Type != netpacket.TypeError {
		t.Fatalf("Dispatch = %+v, want an Error packet", resp)
	}
	if resp.Error != uint16(errs.CodeServerUnavailable) {
		t.Errorf("Error = 0x%x, want ServerUnavailable", resp.Error)
	}
}

func TestDispatchHandlerBodyBecomesResponsePacket(t *testing.T) {
	r := New(NewRegistry(), 1<<16)
	r.Handle(0x9, 0x02, func(ctx context.Context, req *Request) (*tdf.Group, error) {
		g := tdf.Group{}
		return &g, nil
	})
	s := newTestSession(t)

	pkt := netpacket.Packet{Header: netpacket.Header{Component: 0x9, Command: 0x02, Type: netpacket.TypeRequest, Sequence: 11}}
	resp := r.Dispatch(context.Background(), s, pkt)
	if resp == nil {
		t.Fatalf("Dispatch returned nil, want a Response packet")
	}
	if resp.Type != netpacket.TypeResponse {
		t.Errorf("Type = %v, want Response", resp.Type)
	}
	if resp.Sequence != 11 {
		t.Errorf("Sequence = %d, want echoed 11", resp.Sequence)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	type fakeService struct{ name string }
	reg := NewRegistry()
	if _, ok := Service[*fakeService](reg); ok {
		t.Fatalf("Service lookup before registration reported ok=true")
	}
	RegisterService[*fakeService](reg, &fakeService{name: "gamemanager"})
	v, ok := Service[*fakeService](reg)
	if !ok || v.name != "gamemanager" {
		t.Fatalf("Service lookup = (%+v, %v), want the registered value", v, ok)
	}
}

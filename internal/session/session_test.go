package session

import (
	"net"
	"testing"
	"time"

	"github.com/PocketRelay/Server-sub000/internal/netpacket"
)

func newPipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	s := New(1, serverConn, "tcp", "127.0.0.1", 9988)
	t.Cleanup(func() { s.Close() })
	return s, clientConn
}

func TestEnqueueAndRunWriterDeliversPacket(t *testing.T) {
	s, clientConn := newPipeSession(t)
	go s.RunWriter()

	p := netpacket.Packet{Header: netpacket.Header{Component: 1, Command: 2, Type: netpacket.TypeResponse, Sequence: 5}}
	if err := s.Enqueue(p); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := netpacket.NewReader(clientConn, 1<<16).ReadPacket()
	if err != nil {
		t.Fatalf("reading delivered packet: %v", err)
	}
	if got.Component != 1 || got.Command != 2 || got.Sequence != 5 {
		t.Errorf("unexpected packet: %+v", got.Header)
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	s, _ := newPipeSession(t)
	s.Close()
	if err := s.Enqueue(netpacket.Packet{}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSetPlayerReturnsPrevious(t *testing.T) {
	s, _ := newPipeSession(t)
	if prev := s.SetPlayer(nil); prev != nil {
		t.Fatal("expected nil previous on first set")
	}
}

type fakeHandle struct {
	id       int32
	received []netpacket.Packet
}

func (h *fakeHandle) ID() int32 { return h.id }
func (h *fakeHandle) Enqueue(p netpacket.Packet) error {
	h.received = append(h.received, p)
	return nil
}

type fakeNotifyFactory struct{}

func (fakeNotifyFactory) UserAdded(s *Session) netpacket.Packet {
	return netpacket.Packet{Header: netpacket.Header{Command: 1}}
}
func (fakeNotifyFactory) UserUpdated(s *Session, flags uint16) netpacket.Packet {
	return netpacket.Packet{Header: netpacket.Header{Command: 2}}
}
func (fakeNotifyFactory) UserRemoved(s *Session) netpacket.Packet {
	return netpacket.Packet{Header: netpacket.Header{Command: 3}}
}

// TestSubscriptionLifecycleFiresExactlyOneAddedAndRemoved verifies the §8
// invariant: a subscription edge sees exactly one NotifyUserAdded before
// exactly one NotifyUserRemoved.
func TestSubscriptionLifecycleFiresExactlyOneAddedAndRemoved(t *testing.T) {
	s, _ := newPipeSession(t)
	s.SetNotifyFactory(fakeNotifyFactory{})

	h := &fakeHandle{id: 99}
	s.AddSubscriber(h)
	if len(h.received) != 2 {
		t.Fatalf("expected UserAdded+UserUpdated, got %d packets", len(h.received))
	}
	if h.received[0].Command != 1 || h.received[1].Command != 2 {
		t.Errorf("unexpected notify order: %+v", h.received)
	}

	s.RemoveSubscriber(99)
	if len(h.received) != 3 || h.received[2].Command != 3 {
		t.Fatalf("expected one UserRemoved after removal, got %+v", h.received)
	}
}

// TestCloseDropsAllSubscribersExactlyOnce checks that teardown fires
// NotifyUserRemoved for every remaining edge, and Close is idempotent.
func TestCloseDropsAllSubscribersExactlyOnce(t *testing.T) {
	s, _ := newPipeSession(t)
	s.SetNotifyFactory(fakeNotifyFactory{})

	h1 := &fakeHandle{id: 1}
	h2 := &fakeHandle{id: 2}
	s.AddSubscriber(h1)
	s.AddSubscriber(h2)

	s.Close()
	s.Close() // idempotent

	for _, h := range []*fakeHandle{h1, h2} {
		removedCount := 0
		for _, p := range h.received {
			if p.Command == 3 {
				removedCount++
			}
		}
		if removedCount != 1 {
			t.Errorf("handle %d: expected exactly 1 removal notify, got %d", h.id, removedCount)
		}
	}
}

func TestOutboundQueueFullClosesSession(t *testing.T) {
	serverConn, _ := net.Pipe()
	s := New(1, serverConn, "tcp", "127.0.0.1", 9988)
	defer s.Close()

	// No RunWriter draining: fill the queue past capacity.
	var lastErr error
	for i := 0; i < defaultSendQueueSize+1; i++ {
		lastErr = s.Enqueue(netpacket.Packet{})
	}
	if lastErr != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull once the queue saturates, got %v", lastErr)
	}
	if !s.Closed() {
		t.Error("expected session to be closed after queue overflow")
	}
}

func TestCurrentGameID(t *testing.T) {
	s, _ := newPipeSession(t)
	if s.CurrentGameID() != 0 {
		t.Fatal("expected no current game initially")
	}
	s.SetCurrentGameID(42)
	if s.CurrentGameID() != 42 {
		t.Errorf("got %d, want 42", s.CurrentGameID())
	}
}

func TestReadPacketReturnsErrorOnClose(t *testing.T) {
	s, clientConn := newPipeSession(t)
	done := make(chan error, 1)
	go func() {
		_, err := s.ReadPacket(1 << 16)
		done <- err
	}()
	clientConn.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error after peer closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadPacket did not return after connection closed")
	}
}

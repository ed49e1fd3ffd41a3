package netpacket

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p := Packet{
		Header: Header{Component: 0x4, Command: 0x1, Error: 0, Type: TypeRequest, Sequence: 7},
		Body:   []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	var buf bytes.Buffer
	if err := NewWriter(&buf).WritePacket(p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if buf.Len() != HeaderSize+len(p.Body) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(p.Body), buf.Len())
	}

	got, err := NewReader(&buf, 1<<20).ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.Component != p.Component || got.Command != p.Command || got.Error != p.Error ||
		got.Type != p.Type || got.Sequence != p.Sequence {
		t.Errorf("header mismatch: got=%+v want=%+v", got.Header, p.Header)
	}
	if !bytes.Equal(got.Body, p.Body) {
		t.Errorf("body mismatch: got=%x want=%x", got.Body, p.Body)
	}
}

// TestExtendedLengthRoundTrip exercises the extended-length escape at a
// payload of exactly 80,000 bytes, matching the Notify scenario in the
// server's worked examples.
func TestExtendedLengthRoundTrip(t *testing.T) {
	body := make([]byte, 80000)
	for i := range body {
		body[i] = byte(i)
	}
	p := Packet{
		Header: Header{Type: TypeNotify, Sequence: 0},
		Body:   body,
	}
	var buf bytes.Buffer
	if err := NewWriter(&buf).WritePacket(p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if buf.Len() != ExtHeaderSize+len(body) {
		t.Fatalf("expected extended header framing, got %d bytes", buf.Len())
	}

	got, err := NewReader(&buf, 1<<20).ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if got.Sequence != 0 {
		t.Errorf("expected Notify sequence 0, got %d", got.Sequence)
	}
	if len(got.Body) != 80000 || !bytes.Equal(got.Body, body) {
		t.Errorf("extended body mismatch, got len=%d", len(got.Body))
	}
}

// TestBoundaryLength65536 checks the extended-length flag flips on exactly
// at the 0x10000 boundary, not one byte early or late.
func TestBoundaryLength65536(t *testing.T) {
	for _, n := range []int{0xFFFF, 0x10000} {
		body := make([]byte, n)
		p := Packet{Header: Header{Type: TypeResponse, Sequence: 1}, Body: body}
		var buf bytes.Buffer
		if err := NewWriter(&buf).WritePacket(p); err != nil {
			t.Fatalf("WritePacket(%d): %v", n, err)
		}
		got, err := NewReader(&buf, 1<<20).ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket(%d): %v", n, err)
		}
		if len(got.Body) != n {
			t.Errorf("length %d: got body len %d", n, len(got.Body))
		}
	}
}

func TestEchoSequence(t *testing.T) {
	req := Header{Type: TypeRequest, Sequence: 42}
	if req.EchoSequence() != 42 {
		t.Errorf("request echo: got %d, want 42", req.EchoSequence())
	}
	notify := Header{Type: TypeNotify, Sequence: 42}
	if notify.EchoSequence() != 0 {
		t.Errorf("notify echo: got %d, want 0", notify.EchoSequence())
	}
}

func TestReadPacketRejectsOversizedBody(t *testing.T) {
	p := Packet{Header: Header{Type: TypeRequest}, Body: make([]byte, 1000)}
	var buf bytes.Buffer
	if err := NewWriter(&buf).WritePacket(p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if _, err := NewReader(&buf, 100).ReadPacket(); err == nil {
		t.Error("expected error for body exceeding maxBody")
	}
}

func TestReadPacketRejectsUnknownType(t *testing.T) {
	hdr := make([]byte, HeaderSize)
	hdr[6] = 0xFF
	if _, err := NewReader(bytes.NewReader(hdr), 100).ReadPacket(); err == nil {
		t.Error("expected error for unknown packet type")
	}
}

func TestReadPacketEOFOnEmptyStream(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(nil), 100).ReadPacket(); err == nil {
		t.Error("expected error on empty stream")
	}
}

// Package tunnel implements the keyed mesh relay for peer-to-peer gameplay
// datagrams: a UDP transport and an HTTP-upgraded byte-stream transport,
// both framed identically and both routed through the same association ->
// tunnel -> pool-slot bookkeeping. No direct teacher analog exists (la2go
// has no NAT-traversal relay); grounded on the *shape* of the teacher's
// net.Conn-centric goroutine/map idioms (internal/gameserver/client.go,
// internal/gameserver/clients.go) plus the retrieved gametunnel-core pack
// example's Hub (connection-id-keyed session map with RemoteAddr rebinding
// and idle-timeout sweep) for the address-mobility and dissociation shape.
package tunnel

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedFrame is returned when a buffer is shorter than its declared
// frame length.
var ErrTruncatedFrame = errors.New("tunnel: truncated frame")

// frameHeaderSize is the index byte plus the 4-byte big-endian length word
// preceding every frame's payload, per §4.H's "index|length|payload" codec
// shared by both the UDP and HTTP transports.
const frameHeaderSize = 1 + 4

// Frame is one relayed gameplay datagram: a pool-slot index identifying the
// sender (rewritten to the recipient's own index on forward) plus an
// opaque payload.
type Frame struct {
	Index   uint8
	Payload []byte
}

// Encode serializes f as index(1) || length(4, big-endian) || payload.
func (f Frame) Encode() []byte {
	buf := make([]byte, frameHeaderSize+len(f.Payload))
	buf[0] = f.Index
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(f.Payload)))
	copy(buf[5:], f.Payload)
	return buf
}

// DecodeFrame parses a single index|length|payload frame, returning the
// number of bytes consumed.
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) < frameHeaderSize {
		return Frame{}, 0, ErrTruncatedFrame
	}
	length := binary.BigEndian.Uint32(buf[1:5])
	total := frameHeaderSize + int(length)
	if len(buf) < total {
		return Frame{}, 0, ErrTruncatedFrame
	}
	payload := make([]byte, length)
	copy(payload, buf[5:total])
	return Frame{Index: buf[0], Payload: payload}, total, nil
}

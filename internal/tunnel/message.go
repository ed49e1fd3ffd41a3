package tunnel

import (
	"encoding/binary"
	"errors"
)

// MessageType identifies the kind of control/data message carried by one
// UDP datagram or one HTTP-stream frame.
type MessageType uint8

const (
	MsgInitiate  MessageType = iota // client -> server: association token
	MsgInitiated                    // server -> client: assigned tunnel id
	MsgForward                      // both directions: index|length|payload frame
	MsgKeepAlive                    // server -> client: liveness ping
)

// envelopeHeaderSize is the message type byte plus the 4-byte big-endian
// tunnel id, prefixing every datagram per §4.H: "every received datagram is
// prefixed with tunnel_id u32 in addition to the frame". Initiate messages
// (sent before a tunnel id has been assigned) carry tunnel id 0.
const envelopeHeaderSize = 1 + 4

// ErrTruncatedEnvelope is returned when a buffer is shorter than the fixed
// message-type + tunnel-id header.
var ErrTruncatedEnvelope = errors.New("tunnel: truncated envelope")

// Envelope is one decoded datagram/stream message before its body is
// interpreted according to Type.
type Envelope struct {
	Type     MessageType
	TunnelID uint32
	Body     []byte
}

// EncodeEnvelope serializes type||tunnelID||body.
func EncodeEnvelope(typ MessageType, tunnelID uint32, body []byte) []byte {
	buf := make([]byte, envelopeHeaderSize+len(body))
	buf[0] = byte(typ)
	binary.BigEndian.PutUint32(buf[1:5], tunnelID)
	copy(buf[5:], body)
	return buf
}

// DecodeEnvelope parses the fixed header and leaves Body pointing at the
// remaining, type-specific bytes.
func DecodeEnvelope(buf []byte) (Envelope, error) {
	if len(buf) < envelopeHeaderSize {
		return Envelope{}, ErrTruncatedEnvelope
	}
	return Envelope{
		Type:     MessageType(buf[0]),
		TunnelID: binary.BigEndian.Uint32(buf[1:5]),
		Body:     buf[5:],
	}, nil
}

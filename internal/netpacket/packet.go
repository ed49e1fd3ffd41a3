// Package netpacket implements the framed packet codec that sits directly on
// top of the TCP stream: a fixed header (component, command, error, type,
// sequence) followed by an opaque TDF-encoded body. See internal/tdf for the
// body codec itself.
package netpacket

import "fmt"

// Type is the packet's request/response/notify/error discriminator.
type Type byte

const (
	TypeRequest Type = iota
	TypeResponse
	TypeNotify
	TypeError
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "Request"
	case TypeResponse:
		return "Response"
	case TypeNotify:
		return "Notify"
	case TypeError:
		return "Error"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

func ValidType(b byte) (Type, bool) {
	t := Type(b)
	switch t {
	case TypeRequest, TypeResponse, TypeNotify, TypeError:
		return t, true
	default:
		return 0, false
	}
}

// flagExtendedLength marks that a 16-bit length high word follows the base
// 12-byte header, per §3's "extended length" escape for payloads above
// 0xFFFF bytes.
const flagExtendedLength = 0x01

// HeaderSize is the fixed portion present on every packet; ExtHeaderSize is
// added when flagExtendedLength is set.
const (
	HeaderSize    = 12
	ExtHeaderSize = 14
)

// Header is the fixed, fully-decoded packet preamble. Length is not stored
// here — Reader.ReadPacket returns the body slice directly, and
// Writer.WritePacket takes the length from the packet's Body.
type Header struct {
	Component uint16
	Command   uint16
	Error     uint16
	Type      Type
	Sequence  uint16
}

// Packet is a fully decoded frame: header plus its opaque TDF-encoded body.
type Packet struct {
	Header
	Body []byte
}

// EchoSequence returns the sequence number a Response/Error answering this
// request should carry. Per §3, Notify packets always carry sequence 0.
func (h Header) EchoSequence() uint16 {
	if h.Type == TypeNotify {
		return 0
	}
	return h.Sequence
}

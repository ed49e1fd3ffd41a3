package netpacket

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reader is a stream-oriented packet decoder: one per session connection.
// It accumulates a full header (and, for extended-length packets, the
// additional length word) before allocating a body buffer, so a short read
// never forces a caller to retry from scratch.
type Reader struct {
	r       io.Reader
	maxBody int
}

// NewReader wraps r. maxBody bounds the body length accepted from the wire;
// a header declaring a larger body is rejected before any allocation, so a
// corrupt or hostile peer cannot force an unbounded allocation.
func NewReader(r io.Reader, maxBody int) *Reader {
	return &Reader{r: r, maxBody: maxBody}
}

// ReadPacket blocks until one full frame has been read from the underlying
// stream, or an error (including io.EOF on a clean close) occurs.
func (rd *Reader) ReadPacket() (Packet, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(rd.r, hdr[:]); err != nil {
		return Packet{}, err
	}

	h := Header{
		Component: binary.BigEndian.Uint16(hdr[0:2]),
		Command:   binary.BigEndian.Uint16(hdr[2:4]),
		Error:     binary.BigEndian.Uint16(hdr[4:6]),
	}
	typ, ok := ValidType(hdr[6])
	if !ok {
		return Packet{}, fmt.Errorf("netpacket: unknown packet type 0x%02X", hdr[6])
	}
	h.Type = typ
	flags := hdr[7]
	h.Sequence = binary.BigEndian.Uint16(hdr[8:10])
	length := uint32(binary.BigEndian.Uint16(hdr[10:12]))

	if flags&flagExtendedLength != 0 {
		var ext [2]byte
		if _, err := io.ReadFull(rd.r, ext[:]); err != nil {
			return Packet{}, err
		}
		length |= uint32(binary.BigEndian.Uint16(ext[:])) << 16
	}

	if int(length) > rd.maxBody {
		return Packet{}, fmt.Errorf("netpacket: body length %d exceeds limit %d", length, rd.maxBody)
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(rd.r, body); err != nil {
			return Packet{}, err
		}
	}

	return Packet{Header: h, Body: body}, nil
}

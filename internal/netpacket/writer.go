package netpacket

import (
	"encoding/binary"
	"sync"
)

// encodeBufPool reuses header+body scratch buffers across WritePacket calls,
// the same pooling idiom the teacher applies to its own packet writer.
var encodeBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 512)
		return &buf
	},
}

// Writer serializes packets onto a single underlying connection. It is not
// safe for concurrent use — the session runtime's writer goroutine is the
// only caller per connection (see internal/session).
type Writer struct {
	w interface {
		Write([]byte) (int, error)
	}
}

func NewWriter(w interface{ Write([]byte) (int, error) }) *Writer {
	return &Writer{w: w}
}

// WritePacket encodes header+body into one contiguous buffer and writes it
// in a single call, so the kernel sees one packet's bytes as one write.
func (wr *Writer) WritePacket(p Packet) error {
	bufPtr := encodeBufPool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	defer func() {
		*bufPtr = buf
		encodeBufPool.Put(bufPtr)
	}()

	extended := len(p.Body) > 0xFFFF
	headerLen := HeaderSize
	if extended {
		headerLen = ExtHeaderSize
	}

	var hdr [ExtHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], p.Component)
	binary.BigEndian.PutUint16(hdr[2:4], p.Command)
	binary.BigEndian.PutUint16(hdr[4:6], p.Error)
	hdr[6] = byte(p.Type)
	if extended {
		hdr[7] = flagExtendedLength
	} else {
		hdr[7] = 0
	}
	binary.BigEndian.PutUint16(hdr[8:10], p.Sequence)
	binary.BigEndian.PutUint16(hdr[10:12], uint16(len(p.Body)))
	if extended {
		binary.BigEndian.PutUint16(hdr[12:14], uint16(len(p.Body)>>16))
	}

	buf = append(buf, hdr[:headerLen]...)
	buf = append(buf, p.Body...)

	_, err := wr.w.Write(buf)
	return err
}

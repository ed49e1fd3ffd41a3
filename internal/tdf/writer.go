package tdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer encodes a sequence of TDF values into a growable buffer.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

// Bytes returns the encoded buffer so far.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) writeTagType(tag Tag, typ Type) error {
	packed, err := tag.Encode24()
	if err != nil {
		return err
	}
	w.buf = append(w.buf, byte(packed>>16), byte(packed>>8), byte(packed))
	w.buf = append(w.buf, byte(typ))
	return nil
}

// WriteField writes one tagged value, as found inside a Group or as a
// Union member.
func (w *Writer) WriteField(f Field) error {
	if err := w.writeTagType(f.Tag, f.Value.Type()); err != nil {
		return err
	}
	return w.writeValue(f.Value)
}

// WriteTopLevelGroup writes an untagged field list terminated the same way
// a nested Group is — used for a packet's top-level content.
func (w *Writer) WriteTopLevelGroup(g Group) error {
	return w.writeGroupBody(g)
}

func (w *Writer) writeValue(v Value) error {
	switch val := v.(type) {
	case VarInt:
		w.buf = putVarInt(w.buf, int64(val))
		return nil
	case String:
		return w.writeString(val)
	case Blob:
		return w.writeBlob(val)
	case Group:
		return w.writeGroup(val)
	case List:
		return w.writeList(val)
	case Map:
		return w.writeMap(val)
	case Union:
		return w.writeUnion(val)
	case IntList:
		return w.writeIntList(val)
	case ObjectType:
		w.writeObjectType(val)
		return nil
	case ObjectID:
		w.writeObjectType(val.ObjectType)
		w.buf = putVarInt(w.buf, val.Entity)
		return nil
	case Float32:
		return w.writeFloat(val)
	case Generic:
		return w.writeGeneric(val)
	default:
		return fmt.Errorf("tdf: encode: unsupported value type %T", v)
	}
}

func (w *Writer) writeString(s String) error {
	b := append([]byte(s), 0)
	w.buf = putVarUint(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
	return nil
}

func (w *Writer) writeBlob(b Blob) error {
	w.buf = putVarUint(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
	return nil
}

func (w *Writer) writeGroup(g Group) error {
	if g.Start2 {
		w.buf = append(w.buf, 0x01)
	} else {
		w.buf = append(w.buf, 0x00)
	}
	return w.writeGroupBody(g)
}

func (w *Writer) writeGroupBody(g Group) error {
	for _, f := range g.Fields {
		if err := w.WriteField(f); err != nil {
			return err
		}
	}
	w.buf = append(w.buf, 0x00)
	return nil
}

func (w *Writer) writeList(l List) error {
	w.buf = append(w.buf, byte(l.ElemType))
	w.buf = putVarUint(w.buf, uint64(len(l.Elems)))
	for i, e := range l.Elems {
		if e.Type() != l.ElemType {
			return fmt.Errorf("tdf: list element %d has type %v, want %v", i, e.Type(), l.ElemType)
		}
		if err := w.writeValue(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeMap(m Map) error {
	w.buf = append(w.buf, byte(m.KeyType), byte(m.ValType))
	w.buf = putVarUint(w.buf, uint64(len(m.Pairs)))
	for i, p := range m.Pairs {
		if p.Key.Type() != m.KeyType {
			return fmt.Errorf("tdf: map entry %d key has type %v, want %v", i, p.Key.Type(), m.KeyType)
		}
		if p.Val.Type() != m.ValType {
			return fmt.Errorf("tdf: map entry %d value has type %v, want %v", i, p.Val.Type(), m.ValType)
		}
		if err := w.writeValue(p.Key); err != nil {
			return err
		}
		if err := w.writeValue(p.Val); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeUnion(u Union) error {
	w.buf = append(w.buf, u.Discriminator)
	if u.Discriminator == unionUnset {
		return nil
	}
	if u.Member == nil {
		return fmt.Errorf("tdf: union with set discriminator 0x%02X has no member", u.Discriminator)
	}
	return w.WriteField(*u.Member)
}

func (w *Writer) writeIntList(l IntList) error {
	w.buf = putVarUint(w.buf, uint64(len(l)))
	for _, v := range l {
		w.buf = putVarInt(w.buf, v)
	}
	return nil
}

func (w *Writer) writeObjectType(ot ObjectType) {
	w.buf = putVarUint(w.buf, uint64(ot.Component))
	w.buf = putVarUint(w.buf, uint64(ot.Kind))
}

func (w *Writer) writeFloat(f Float32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(float32(f)))
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *Writer) writeGeneric(g Generic) error {
	w.buf = putVarUint(w.buf, uint64(len(g)))
	w.buf = append(w.buf, g...)
	return nil
}

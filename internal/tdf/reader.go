package tdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeError wraps any failure while decoding a TDF value: truncated
// buffer, unknown type nibble, or a map/list count disagreement. Handlers
// typically collapse this to errs.CodeServerUnavailable (§7).
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "tdf: decode: " + e.Reason }

func decodeErrf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Reader decodes a sequence of TDF values from an in-memory buffer.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Remaining() int { return len(r.data) - r.pos }
func (r *Reader) Position() int  { return r.pos }

func (r *Reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, decodeErrf("unexpected end of data at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, decodeErrf("need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) varUint() (uint64, error) {
	v, n, err := readVarUint(r.data, r.pos)
	if err != nil {
		return 0, decodeErrf("%v", err)
	}
	r.pos += n
	return v, nil
}

func (r *Reader) varInt() (int64, error) {
	v, n, err := readVarInt(r.data, r.pos)
	if err != nil {
		return 0, decodeErrf("%v", err)
	}
	r.pos += n
	return v, nil
}

// ReadTagType reads a packed 3-byte tag followed by a 1-byte type nibble.
func (r *Reader) ReadTagType() (Tag, Type, error) {
	raw, err := r.bytes(3)
	if err != nil {
		return Tag{}, 0, err
	}
	packed := uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2])
	tag, err := DecodeTag24(packed)
	if err != nil {
		return Tag{}, 0, decodeErrf("%v", err)
	}
	tb, err := r.byte()
	if err != nil {
		return Tag{}, 0, err
	}
	typ, ok := ValidType(tb)
	if !ok {
		return Tag{}, 0, decodeErrf("unknown type nibble 0x%X for tag %s", tb, tag)
	}
	return tag, typ, nil
}

// ReadValue decodes one value of the given Type (no leading tag — used for
// list/map elements, union members' values are read via ReadField).
func (r *Reader) ReadValue(t Type) (Value, error) {
	switch t {
	case TypeVarInt:
		v, err := r.varInt()
		if err != nil {
			return nil, err
		}
		return VarInt(v), nil
	case TypeString:
		return r.readString()
	case TypeBlob:
		return r.readBlob()
	case TypeGroup:
		return r.readGroup()
	case TypeList:
		return r.readList()
	case TypeMap:
		return r.readMap()
	case TypeUnion:
		return r.readUnion()
	case TypeIntList:
		return r.readIntList()
	case TypeObjectType:
		return r.readObjectType()
	case TypeObjectID:
		return r.readObjectID()
	case TypeFloat:
		return r.readFloat()
	case TypeGeneric:
		return r.readGeneric()
	default:
		return nil, decodeErrf("unsupported type %v", t)
	}
}

// ReadField reads one tagged value, as found inside a Group or as a Union
// member.
func (r *Reader) ReadField() (Field, error) {
	tag, typ, err := r.ReadTagType()
	if err != nil {
		return Field{}, err
	}
	v, err := r.ReadValue(typ)
	if err != nil {
		return Field{}, err
	}
	return Field{Tag: tag, Value: v}, nil
}

// ReadTopLevelGroup reads a Group that is not itself preceded by a tag —
// used for a packet's top-level content, which is an untagged field list
// terminated the same way a nested Group is.
func (r *Reader) ReadTopLevelGroup() (Group, error) {
	g, err := r.readGroupBody()
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

// readGroup reads a nested (tagged) Group value: a 1-byte start-2 flag
// (distinguishing a union-member group from a plain nested group, per
// §4.A) followed by the field list.
func (r *Reader) readGroup() (Value, error) {
	flag, err := r.byte()
	if err != nil {
		return nil, err
	}
	if flag > 1 {
		return nil, decodeErrf("invalid group start-2 flag 0x%02X", flag)
	}
	g, err := r.readGroupBody()
	if err != nil {
		return nil, err
	}
	g.Start2 = flag == 1
	return g, nil
}

func (r *Reader) readGroupBody() (Group, error) {
	var g Group
	for {
		sentinel, err := r.byte()
		if err != nil {
			return Group{}, err
		}
		if sentinel == 0x00 {
			return g, nil
		}
		r.pos--
		f, err := r.ReadField()
		if err != nil {
			return Group{}, err
		}
		g.Fields = append(g.Fields, f)
	}
}

func (r *Reader) readString() (Value, error) {
	n, err := r.varUint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return String(""), nil
	}
	raw, err := r.bytes(int(n))
	if err != nil {
		return nil, err
	}
	if raw[len(raw)-1] != 0 {
		return nil, decodeErrf("string missing trailing NUL")
	}
	return String(raw[:len(raw)-1]), nil
}

func (r *Reader) readBlob() (Value, error) {
	n, err := r.varUint()
	if err != nil {
		return nil, err
	}
	raw, err := r.bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return Blob(out), nil
}

func (r *Reader) readList() (Value, error) {
	tb, err := r.byte()
	if err != nil {
		return nil, err
	}
	elemType, ok := ValidType(tb)
	if !ok {
		return nil, decodeErrf("list: unknown element type nibble 0x%X", tb)
	}
	count, err := r.varUint()
	if err != nil {
		return nil, err
	}
	l := List{ElemType: elemType, Elems: make([]Value, 0, count)}
	for i := uint64(0); i < count; i++ {
		v, err := r.ReadValue(elemType)
		if err != nil {
			return nil, err
		}
		l.Elems = append(l.Elems, v)
	}
	return l, nil
}

func (r *Reader) readMap() (Value, error) {
	kb, err := r.byte()
	if err != nil {
		return nil, err
	}
	keyType, ok := ValidType(kb)
	if !ok {
		return nil, decodeErrf("map: unknown key type nibble 0x%X", kb)
	}
	vb, err := r.byte()
	if err != nil {
		return nil, err
	}
	valType, ok := ValidType(vb)
	if !ok {
		return nil, decodeErrf("map: unknown value type nibble 0x%X", vb)
	}
	count, err := r.varUint()
	if err != nil {
		return nil, err
	}
	m := Map{KeyType: keyType, ValType: valType, Pairs: make([]MapPair, 0, count)}
	for i := uint64(0); i < count; i++ {
		k, err := r.ReadValue(keyType)
		if err != nil {
			return nil, decodeErrf("map entry %d key: %v", i, err)
		}
		v, err := r.ReadValue(valType)
		if err != nil {
			return nil, decodeErrf("map entry %d value: %v", i, err)
		}
		m.Pairs = append(m.Pairs, MapPair{Key: k, Val: v})
	}
	return m, nil
}

func (r *Reader) readUnion() (Value, error) {
	disc, err := r.byte()
	if err != nil {
		return nil, err
	}
	if disc == unionUnset {
		return Union{Discriminator: disc}, nil
	}
	f, err := r.ReadField()
	if err != nil {
		return nil, err
	}
	return Union{Discriminator: disc, Member: &f}, nil
}

func (r *Reader) readIntList() (Value, error) {
	count, err := r.varUint()
	if err != nil {
		return nil, err
	}
	out := make(IntList, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := r.varInt()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Reader) readObjectType() (Value, error) {
	comp, err := r.varUint()
	if err != nil {
		return nil, err
	}
	kind, err := r.varUint()
	if err != nil {
		return nil, err
	}
	return ObjectType{Component: uint16(comp), Kind: uint16(kind)}, nil
}

func (r *Reader) readObjectID() (Value, error) {
	ot, err := r.readObjectType()
	if err != nil {
		return nil, err
	}
	entity, err := r.varInt()
	if err != nil {
		return nil, err
	}
	return ObjectID{ObjectType: ot.(ObjectType), Entity: entity}, nil
}

func (r *Reader) readFloat() (Value, error) {
	raw, err := r.bytes(4)
	if err != nil {
		return nil, err
	}
	bits := binary.BigEndian.Uint32(raw)
	return Float32(math.Float32frombits(bits)), nil
}

func (r *Reader) readGeneric() (Value, error) {
	n, err := r.varUint()
	if err != nil {
		return nil, err
	}
	raw, err := r.bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return Generic(out), nil
}

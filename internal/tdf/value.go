package tdf

// Value is any decoded TDF payload. Each concrete type below corresponds to
// one member of the Type enum.
type Value interface {
	Type() Type
}

type VarInt int64

func (VarInt) Type() Type { return TypeVarInt }

type String string

func (String) Type() Type { return TypeString }

type Blob []byte

func (Blob) Type() Type { return TypeBlob }

// Field is one tagged entry inside a Group: order is preserved on both
// encode and decode, matching §8's "order-preservation for ... group member
// order" round-trip law.
type Field struct {
	Tag   Tag
	Value Value
}

// Group is a tag->value sequence terminated by a sentinel byte on the wire.
// Start2 distinguishes a union-member group from a plain nested group, per
// §4.A ("a group may be prefixed by a start-2 marker").
type Group struct {
	Start2 bool
	Fields []Field
}

func (Group) Type() Type { return TypeGroup }

// Get returns the first field's value with the given tag, or nil if absent.
func (g Group) Get(tag string) Value {
	for _, f := range g.Fields {
		if f.Tag.String() == tag {
			return f.Value
		}
	}
	return nil
}

// List is a homogeneous, untagged sequence of values of ElemType.
type List struct {
	ElemType Type
	Elems    []Value
}

func (List) Type() Type { return TypeList }

// MapPair is one untagged key/value pair inside a Map.
type MapPair struct {
	Key Value
	Val Value
}

// Map is a homogeneous key/value sequence; KeyType and ValType bound every
// element. Order is preserved (§8 round-trip law).
type Map struct {
	KeyType Type
	ValType Type
	Pairs   []MapPair
}

func (Map) Type() Type { return TypeMap }

// Union carries a discriminator byte and, unless the discriminator is the
// unset sentinel (0x7F), exactly one tagged member.
type Union struct {
	Discriminator byte
	Member        *Field
}

func (Union) Type() Type { return TypeUnion }

// IsUnset reports whether this union carries no member.
func (u Union) IsUnset() bool { return u.Discriminator == unionUnset }

// IntList is a list of signed VarInts encoded without per-element tags.
type IntList []int64

func (IntList) Type() Type { return TypeIntList }

// ObjectType identifies a (component, type) pair, each a VarInt on the wire.
type ObjectType struct {
	Component uint16
	Kind      uint16
}

func (ObjectType) Type() Type { return TypeObjectType }

// ObjectID extends ObjectType with an entity VarInt.
type ObjectID struct {
	ObjectType
	Entity int64
}

func (ObjectID) Type() Type { return TypeObjectID }

// Float32 is an IEEE-754 32-bit big-endian float.
type Float32 float32

func (Float32) Type() Type { return TypeFloat }

// Generic is an escape hatch for opaque, type-prefixed payloads that don't
// fit the closed type list (unused by any handler in this server, kept for
// skip-compatibility with unknown future tags).
type Generic []byte

func (Generic) Type() Type { return TypeGeneric }

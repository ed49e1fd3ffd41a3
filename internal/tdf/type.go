package tdf

import "fmt"

// Type is the 4-bit type nibble following a tag in the wire format.
type Type byte

const (
	TypeVarInt Type = iota
	TypeString
	TypeBlob
	TypeGroup
	TypeList
	TypeMap
	TypeUnion
	TypeIntList
	TypeObjectType
	TypeObjectID
	TypeFloat
	TypeGeneric
)

func (t Type) String() string {
	switch t {
	case TypeVarInt:
		return "VarInt"
	case TypeString:
		return "String"
	case TypeBlob:
		return "Blob"
	case TypeGroup:
		return "Group"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	case TypeUnion:
		return "Union"
	case TypeIntList:
		return "IntList"
	case TypeObjectType:
		return "ObjectType"
	case TypeObjectID:
		return "ObjectId"
	case TypeFloat:
		return "Float"
	case TypeGeneric:
		return "Generic"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// ValidType reports whether b names a known Type nibble.
func ValidType(b byte) (Type, bool) {
	if b > byte(TypeGeneric) {
		return 0, false
	}
	return Type(b), true
}

// unionUnset is the discriminator byte meaning "no member follows".
const unionUnset = 0x7F

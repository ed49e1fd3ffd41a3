package tdf

// GetVarInt returns the VarInt value for tag, or (0, false) if absent or of
// a different type.
func (g Group) GetVarInt(tag string) (int64, bool) {
	v, ok := g.Get(tag).(VarInt)
	return int64(v), ok
}

func (g Group) GetU32(tag string) (uint32, bool) {
	v, ok := g.GetVarInt(tag)
	return uint32(v), ok
}

func (g Group) GetU16(tag string) (uint16, bool) {
	v, ok := g.GetVarInt(tag)
	return uint16(v), ok
}

func (g Group) GetU8(tag string) (uint8, bool) {
	v, ok := g.GetVarInt(tag)
	return uint8(v), ok
}

func (g Group) GetI32(tag string) (int32, bool) {
	v, ok := g.GetVarInt(tag)
	return int32(v), ok
}

// GetString returns the String value for tag, or ("", false).
func (g Group) GetString(tag string) (string, bool) {
	v, ok := g.Get(tag).(String)
	return string(v), ok
}

// GetBlob returns the Blob value for tag, or (nil, false).
func (g Group) GetBlob(tag string) ([]byte, bool) {
	v, ok := g.Get(tag).(Blob)
	return []byte(v), ok
}

// GetGroup returns the nested Group for tag, or (Group{}, false).
func (g Group) GetGroup(tag string) (Group, bool) {
	v, ok := g.Get(tag).(Group)
	return v, ok
}

// GetList returns the raw List for tag, or (List{}, false).
func (g Group) GetList(tag string) (List, bool) {
	v, ok := g.Get(tag).(List)
	return v, ok
}

// GetStrMap flattens a tagged string->string Map into a Go map; entries
// whose key or value isn't a String are skipped.
func (g Group) GetStrMap(tag string) (map[string]string, bool) {
	v, ok := g.Get(tag).(Map)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(v.Pairs))
	for _, p := range v.Pairs {
		k, kok := p.Key.(String)
		val, vok := p.Val.(String)
		if kok && vok {
			out[string(k)] = string(val)
		}
	}
	return out, true
}

// GetVarIntList flattens a tagged list of VarInt elements into []int64.
func (g Group) GetVarIntList(tag string) ([]int64, bool) {
	v, ok := g.Get(tag).(List)
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(v.Elems))
	for _, e := range v.Elems {
		if vi, ok := e.(VarInt); ok {
			out = append(out, int64(vi))
		}
	}
	return out, true
}

package tdf

// Builder accumulates tagged Fields into a Group, mirroring the ergonomic
// tag_u32/tag_str/tag_list_start helpers of the original source's codec.rs
// writer: handlers call one method per field instead of hand-assembling
// Field{Tag: ..., Value: ...} literals.
type Builder struct {
	fields []Field
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) mustTag(s string) Tag {
	t, err := NewTag(s)
	if err != nil {
		// A handler passing a tag outside the supported alphabet is a
		// programming error caught in development; tag_test.go's
		// alphabet already constrains every tag literal used below.
		panic(err)
	}
	return t
}

func (b *Builder) put(tagStr string, v Value) *Builder {
	b.fields = append(b.fields, Field{Tag: b.mustTag(tagStr), Value: v})
	return b
}

func (b *Builder) VarInt(tag string, v int64) *Builder { return b.put(tag, VarInt(v)) }
func (b *Builder) U8(tag string, v uint8) *Builder     { return b.put(tag, VarInt(int64(v))) }
func (b *Builder) U16(tag string, v uint16) *Builder   { return b.put(tag, VarInt(int64(v))) }
func (b *Builder) U32(tag string, v uint32) *Builder    { return b.put(tag, VarInt(int64(v))) }
func (b *Builder) U64(tag string, v uint64) *Builder    { return b.put(tag, VarInt(int64(v))) }
func (b *Builder) I32(tag string, v int32) *Builder     { return b.put(tag, VarInt(int64(v))) }
func (b *Builder) Zero(tag string) *Builder             { return b.put(tag, VarInt(0)) }

func (b *Builder) Str(tag string, v string) *Builder  { return b.put(tag, String(v)) }
func (b *Builder) StrEmpty(tag string) *Builder       { return b.put(tag, String("")) }
func (b *Builder) Blob(tag string, v []byte) *Builder { return b.put(tag, Blob(v)) }
func (b *Builder) BlobEmpty(tag string) *Builder      { return b.put(tag, Blob(nil)) }

// Group nests a child Group built via fn, tagged tag.
func (b *Builder) Group(tag string, fn func(*Builder)) *Builder {
	child := NewBuilder()
	fn(child)
	return b.put(tag, Group{Fields: child.fields})
}

// GroupStart2 is Group's union-member-flagged variant.
func (b *Builder) GroupStart2(tag string, fn func(*Builder)) *Builder {
	child := NewBuilder()
	fn(child)
	return b.put(tag, Group{Start2: true, Fields: child.fields})
}

// VarIntList writes an untagged list of signed VarInts under tag.
func (b *Builder) VarIntList(tag string, elemType Type, elems []Value) *Builder {
	return b.put(tag, List{ElemType: elemType, Elems: elems})
}

// GroupList writes a tagged list of Groups, each produced by one call to fn
// per item.
func (b *Builder) GroupList(tag string, n int, fn func(i int, g *Builder)) *Builder {
	elems := make([]Value, n)
	for i := 0; i < n; i++ {
		child := NewBuilder()
		fn(i, child)
		elems[i] = Group{Fields: child.fields}
	}
	return b.put(tag, List{ElemType: TypeGroup, Elems: elems})
}

// U32List writes a tagged list of unsigned VarInts (e.g. ADMN's player-id list).
func (b *Builder) U32List(tag string, vals []int32) *Builder {
	elems := make([]Value, len(vals))
	for i, v := range vals {
		elems[i] = VarInt(int64(v))
	}
	return b.put(tag, List{ElemType: TypeVarInt, Elems: elems})
}

// StrMap writes a tagged string->string Map, iterating keys in the order
// given (callers pass a pre-sorted key slice so wire output is deterministic).
func (b *Builder) StrMap(tag string, keys []string, m map[string]string) *Builder {
	pairs := make([]MapPair, len(keys))
	for i, k := range keys {
		pairs[i] = MapPair{Key: String(k), Val: String(m[k])}
	}
	return b.put(tag, Map{KeyType: TypeString, ValType: TypeString, Pairs: pairs})
}

// UnionGroup writes a tagged union whose single member is a Group, with
// discriminator disc and member tag memberTag (typically "VALU").
func (b *Builder) UnionGroup(tag string, disc byte, memberTag string, fn func(*Builder)) *Builder {
	child := NewBuilder()
	fn(child)
	member := Field{Tag: b.mustTag(memberTag), Value: Group{Fields: child.fields}}
	return b.put(tag, Union{Discriminator: disc, Member: &member})
}

// Build finalizes the accumulated fields into a Group.
func (b *Builder) Build() Group { return Group{Fields: b.fields} }

package tdf

import (
	"reflect"
	"testing"
)

func tag(t *testing.T, s string) Tag {
	t.Helper()
	tg, err := NewTag(s)
	if err != nil {
		t.Fatalf("NewTag(%q): %v", s, err)
	}
	return tg
}

func roundTripGroup(t *testing.T, g Group) Group {
	t.Helper()
	w := NewWriter()
	if err := w.WriteTopLevelGroup(g); err != nil {
		t.Fatalf("WriteTopLevelGroup: %v", err)
	}
	r := NewReader(w.Bytes())
	got, err := r.ReadTopLevelGroup()
	if err != nil {
		t.Fatalf("ReadTopLevelGroup: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected 0 remaining bytes, got %d", r.Remaining())
	}
	return got
}

func TestRoundTrip_ScalarFields(t *testing.T) {
	g := Group{Fields: []Field{
		{Tag: tag(t, "INT"), Value: VarInt(-12345)},
		{Tag: tag(t, "STR"), Value: String("hello world")},
		{Tag: tag(t, "BLB"), Value: Blob{0xDE, 0xAD, 0xBE, 0xEF}},
		{Tag: tag(t, "FLT"), Value: Float32(3.5)},
		{Tag: tag(t, "OTY"), Value: ObjectType{Component: 4, Kind: 7}},
		{Tag: tag(t, "OID"), Value: ObjectID{ObjectType: ObjectType{Component: 4, Kind: 7}, Entity: 99}},
	}}
	got := roundTripGroup(t, g)
	if !reflect.DeepEqual(g, got) {
		t.Errorf("round trip mismatch:\n got=%+v\nwant=%+v", got, g)
	}
}

func TestRoundTrip_NegativeAndZeroVarInt(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, 64, -64, -65, 1 << 40, -(1 << 40)} {
		g := Group{Fields: []Field{{Tag: tag(t, "VAL"), Value: VarInt(v)}}}
		got := roundTripGroup(t, g)
		if got.Fields[0].Value.(VarInt) != VarInt(v) {
			t.Errorf("VarInt(%d) round trip got %v", v, got.Fields[0].Value)
		}
	}
}

func TestRoundTrip_EmptyString(t *testing.T) {
	g := Group{Fields: []Field{{Tag: tag(t, "STR"), Value: String("")}}}
	got := roundTripGroup(t, g)
	if got.Fields[0].Value.(String) != "" {
		t.Errorf("expected empty string, got %q", got.Fields[0].Value)
	}
}

func TestRoundTrip_List_PreservesOrder(t *testing.T) {
	l := List{ElemType: TypeVarInt, Elems: []Value{VarInt(3), VarInt(1), VarInt(4), VarInt(1), VarInt(5)}}
	g := Group{Fields: []Field{{Tag: tag(t, "LST"), Value: l}}}
	got := roundTripGroup(t, g)
	gl := got.Fields[0].Value.(List)
	if !reflect.DeepEqual(gl, l) {
		t.Errorf("list round trip mismatch: got=%+v want=%+v", gl, l)
	}
}

func TestRoundTrip_Map_PreservesOrder(t *testing.T) {
	m := Map{
		KeyType: TypeString,
		ValType: TypeString,
		Pairs: []MapPair{
			{Key: String("ME3map"), Val: String("map2")},
			{Key: String("ME3privacy"), Val: String("PUBLIC")},
		},
	}
	g := Group{Fields: []Field{{Tag: tag(t, "ATT"), Value: m}}}
	got := roundTripGroup(t, g)
	gm := got.Fields[0].Value.(Map)
	if !reflect.DeepEqual(gm, m) {
		t.Errorf("map round trip mismatch: got=%+v want=%+v", gm, m)
	}
}

func TestRoundTrip_NestedGroup(t *testing.T) {
	inner := Group{Fields: []Field{{Tag: tag(t, "INR"), Value: VarInt(7)}}}
	outer := Group{Fields: []Field{
		{Tag: tag(t, "GRP"), Value: inner},
		{Tag: tag(t, "AFT"), Value: String("after")},
	}}
	got := roundTripGroup(t, outer)
	if !reflect.DeepEqual(got, outer) {
		t.Errorf("nested group round trip mismatch: got=%+v want=%+v", got, outer)
	}
}

func TestRoundTrip_UnionSet(t *testing.T) {
	member := Field{Tag: tag(t, "VAL"), Value: VarInt(42)}
	u := Union{Discriminator: 0x01, Member: &member}
	g := Group{Fields: []Field{{Tag: tag(t, "UNI"), Value: u}}}
	got := roundTripGroup(t, g)
	gu := got.Fields[0].Value.(Union)
	if gu.Discriminator != u.Discriminator || !reflect.DeepEqual(*gu.Member, *u.Member) {
		t.Errorf("union round trip mismatch: got=%+v want=%+v", gu, u)
	}
}

func TestRoundTrip_UnionUnset(t *testing.T) {
	u := Union{Discriminator: unionUnset}
	g := Group{Fields: []Field{{Tag: tag(t, "UNI"), Value: u}}}
	got := roundTripGroup(t, g)
	gu := got.Fields[0].Value.(Union)
	if !gu.IsUnset() || gu.Member != nil {
		t.Errorf("expected unset union with no member, got %+v", gu)
	}
}

func TestRoundTrip_IntList(t *testing.T) {
	g := Group{Fields: []Field{{Tag: tag(t, "ILS"), Value: IntList{1, -2, 3, 0}}}}
	got := roundTripGroup(t, g)
	if !reflect.DeepEqual(got.Fields[0].Value.(IntList), IntList{1, -2, 3, 0}) {
		t.Errorf("IntList round trip mismatch: got=%+v", got.Fields[0].Value)
	}
}

func TestRoundTrip_StartTwoGroup(t *testing.T) {
	inner := Group{Start2: true, Fields: []Field{{Tag: tag(t, "MEM"), Value: VarInt(1)}}}
	outer := Group{Fields: []Field{{Tag: tag(t, "UGP"), Value: inner}}}
	got := roundTripGroup(t, outer)
	if !reflect.DeepEqual(got, outer) {
		t.Errorf("start-2 group round trip mismatch: got=%+v want=%+v", got, outer)
	}
}

func TestDecode_TruncatedBufferFails(t *testing.T) {
	w := NewWriter()
	if err := w.WriteTopLevelGroup(Group{Fields: []Field{{Tag: tag(t, "STR"), Value: String("hello")}}}); err != nil {
		t.Fatalf("WriteTopLevelGroup: %v", err)
	}
	truncated := w.Bytes()[:len(w.Bytes())-2]
	r := NewReader(truncated)
	if _, err := r.ReadTopLevelGroup(); err == nil {
		t.Error("expected decode error on truncated buffer")
	}
}

func TestDecode_UnknownTypeNibbleFails(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0xFF}
	r := NewReader(data)
	if _, err := r.ReadField(); err == nil {
		t.Error("expected decode error for unknown type nibble")
	}
}

func TestGroupGet(t *testing.T) {
	g := Group{Fields: []Field{
		{Tag: tag(t, "NAM"), Value: String("host")},
		{Tag: tag(t, "LVL"), Value: VarInt(5)},
	}}
	if v := g.Get("NAM"); v.(String) != "host" {
		t.Errorf("Get(NAM) = %v", v)
	}
	if v := g.Get("ZZZ"); v != nil {
		t.Errorf("Get(ZZZ) = %v, want nil", v)
	}
}

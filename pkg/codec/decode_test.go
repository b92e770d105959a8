package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/eventring/pkg/wire"
)

// payloadBuilder assembles word payloads the way the producing side lays
// them out, so tests exercise the same layout rules the decoder mirrors.
type payloadBuilder struct {
	words []uint32
}

func (b *payloadBuilder) word(w uint32) *payloadBuilder {
	b.words = append(b.words, w)
	return b
}

func (b *payloadBuilder) u64(v uint64) *payloadBuilder {
	b.words = append(b.words, uint32(v), uint32(v>>32))
	return b
}

func (b *payloadBuilder) float(v float64) *payloadBuilder {
	return b.u64(math.Float64bits(v))
}

func (b *payloadBuilder) str(s string) *payloadBuilder {
	b.words = append(b.words, uint32(len(s)))
	padded := make([]byte, wire.RoundUpWords(len(s))*wire.WordSize)
	copy(padded, s)
	for i := 0; i < len(padded); i += 4 {
		b.words = append(b.words, uint32(padded[i])|uint32(padded[i+1])<<8|
			uint32(padded[i+2])<<16|uint32(padded[i+3])<<24)
	}
	return b
}

func (b *payloadBuilder) nullmask(nullable int, set ...int) *payloadBuilder {
	mask := make([]uint32, wire.NullmaskWords(nullable))
	for _, i := range set {
		wire.SetBit(mask, i)
	}
	b.words = append(b.words, mask...)
	return b
}

func TestDecodeScalars(t *testing.T) {
	testCases := []struct {
		name    string
		typ     *Type
		payload []uint32
		want    Value
	}{
		{"bool true", &Type{Kind: TBool}, []uint32{1}, Bool{V: true}},
		{"bool false", &Type{Kind: TBool}, []uint32{0}, Bool{V: false}},
		{"u8", &Type{Kind: TU8}, []uint32{0x1FF}, U8{V: 0xFF}},
		{"u16", &Type{Kind: TU16}, []uint32{0x12345}, U16{V: 0x2345}},
		{"u32", &Type{Kind: TU32}, []uint32{0xDEADBEEF}, U32{V: 0xDEADBEEF}},
		{"i8 negative", &Type{Kind: TI8}, []uint32{0xFF}, I8{V: -1}},
		{"i16 negative", &Type{Kind: TI16}, []uint32{0xFFFE}, I16{V: -2}},
		{"i32 negative", &Type{Kind: TI32}, []uint32{0xFFFFFFFF}, I32{V: -1}},
		{"u64", &Type{Kind: TU64}, (&payloadBuilder{}).u64(0x0123456789ABCDEF).words,
			U64{V: 0x0123456789ABCDEF}},
		{"i64", &Type{Kind: TI64}, (&payloadBuilder{}).u64(math.MaxUint64).words, I64{V: -1}},
		{"float", &Type{Kind: TFloat}, (&payloadBuilder{}).float(math.Pi).words, Float{V: math.Pi}},
		{"eth", &Type{Kind: TEth}, (&payloadBuilder{}).u64(0x0000AABBCCDDEEFF).words,
			Eth{V: 0x0000AABBCCDDEEFF}},
		{"ip4", &Type{Kind: TIP4}, (&payloadBuilder{}).u64(0xC0A80101).words,
			IP4{V: 0xC0A80101}},
		{"u128", &Type{Kind: TU128},
			(&payloadBuilder{}).u64(0x1111222233334444).u64(0x5555666677778888).words,
			U128{Lo: 0x1111222233334444, Hi: 0x5555666677778888}},
		{"string", &Type{Kind: TString}, (&payloadBuilder{}).str("hello").words,
			String{V: "hello"}},
		{"empty string", &Type{Kind: TString}, (&payloadBuilder{}).str("").words,
			String{V: ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.typ, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeStringRounding(t *testing.T) {
	// 5 bytes round up to 2 payload words; the builder and decoder must
	// agree on the padding.
	p := (&payloadBuilder{}).str("abcde")
	require.Len(t, p.words, 3)

	got, err := Decode(&Type{Kind: TString}, p.words)
	require.NoError(t, err)
	assert.Equal(t, String{V: "abcde"}, got)
}

func TestDecodeTupleWithNullmask(t *testing.T) {
	// Three nullable fields with bits [1,0,1] plus a non-nullable one in
	// between: field 2 must come out Null while its siblings decode,
	// regardless of its position among non-nullable fields.
	typ := &Type{Kind: TTuple, Fields: []TypeField{
		{Type: &Type{Kind: TU32, Nullable: true}},
		{Type: &Type{Kind: TBool}},
		{Type: &Type{Kind: TU32, Nullable: true}},
		{Type: &Type{Kind: TU32, Nullable: true}},
	}}

	p := (&payloadBuilder{}).
		nullmask(3, 0, 2). // bits for nullable children 0 and 2
		word(11).          // first nullable, present
		word(1).           // bool
		word(33)           // third nullable, present
	got, err := Decode(typ, p.words)
	require.NoError(t, err)

	want := Tuple{Items: []Value{U32{V: 11}, Bool{V: true}, Null{}, U32{V: 33}}}
	assert.Equal(t, want, got)
}

func TestDecodeVec(t *testing.T) {
	typ := &Type{Kind: TVec, Dim: 3, Elem: &Type{Kind: TU32}}
	got, err := Decode(typ, []uint32{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, Vec{Items: []Value{U32{V: 7}, U32{V: 8}, U32{V: 9}}}, got)
}

func TestDecodeVecNullableElems(t *testing.T) {
	typ := &Type{Kind: TVec, Dim: 4, Elem: &Type{Kind: TU32, Nullable: true}}
	p := (&payloadBuilder{}).nullmask(4, 1, 3).word(20).word(40)
	got, err := Decode(typ, p.words)
	require.NoError(t, err)
	assert.Equal(t, Vec{Items: []Value{Null{}, U32{V: 20}, Null{}, U32{V: 40}}}, got)
}

func TestDecodeRecordSerOrder(t *testing.T) {
	// Declared order (a, b) but serialized b first. The payload carries b's
	// value first; the decoded record must still list a before b.
	typ := &Type{Kind: TRecord, Fields: []TypeField{
		{Name: "a", Type: &Type{Kind: TU32}},
		{Name: "b", Type: &Type{Kind: TString}},
	}, SerOrder: []int{1, 0}}

	p := (&payloadBuilder{}).str("bee").word(42)
	got, err := Decode(typ, p.words)
	require.NoError(t, err)

	want := Record{Fields: []Field{
		{Name: "a", Value: U32{V: 42}},
		{Name: "b", Value: String{V: "bee"}},
	}}
	assert.Equal(t, want, got)
}

func TestDecodeRecordNullmaskFollowsWireOrder(t *testing.T) {
	// Both fields nullable, serialized in reverse: bit 0 belongs to the
	// field visited first on the wire (b), not to the first declared one.
	typ := &Type{Kind: TRecord, Fields: []TypeField{
		{Name: "a", Type: &Type{Kind: TU32, Nullable: true}},
		{Name: "b", Type: &Type{Kind: TU32, Nullable: true}},
	}, SerOrder: []int{1, 0}}

	p := (&payloadBuilder{}).nullmask(2, 0).word(7) // only first visited (b) present
	got, err := Decode(typ, p.words)
	require.NoError(t, err)

	want := Record{Fields: []Field{
		{Name: "a", Value: Null{}},
		{Name: "b", Value: U32{V: 7}},
	}}
	assert.Equal(t, want, got)
}

func TestDecodeNested(t *testing.T) {
	typ := &Type{Kind: TTuple, Fields: []TypeField{
		{Type: &Type{Kind: TFloat}},
		{Type: &Type{Kind: TVec, Dim: 2, Elem: &Type{Kind: TU16}}},
	}}

	p := (&payloadBuilder{}).float(1.5).word(3).word(4)
	got, err := Decode(typ, p.words)
	require.NoError(t, err)

	want := Tuple{Items: []Value{
		Float{V: 1.5},
		Vec{Items: []Value{U16{V: 3}, U16{V: 4}}},
	}}
	assert.Equal(t, want, got)
}

func TestDecodeShortPayloadYieldsErrorNode(t *testing.T) {
	testCases := []struct {
		name    string
		typ     *Type
		payload []uint32
	}{
		{"u64 with one word", &Type{Kind: TU64}, []uint32{1}},
		{"float with nothing", &Type{Kind: TFloat}, nil},
		{"u128 with two words", &Type{Kind: TU128}, []uint32{1, 2}},
		{"string body truncated", &Type{Kind: TString}, []uint32{100, 0}},
		{"string header missing", &Type{Kind: TString}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.typ, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, KindError, got.Kind(), "got %v", got)
		})
	}
}

func TestDecodeErrorIsContained(t *testing.T) {
	// The second field runs out of words; the first must still decode and
	// the error must stay on the offending node.
	typ := &Type{Kind: TTuple, Fields: []TypeField{
		{Type: &Type{Kind: TU32}},
		{Type: &Type{Kind: TU64}},
	}}

	got, err := Decode(typ, []uint32{5, 6})
	require.NoError(t, err)

	tup, ok := got.(Tuple)
	require.True(t, ok)
	assert.Equal(t, U32{V: 5}, tup.Items[0])
	assert.Equal(t, KindError, tup.Items[1].Kind())
}

func TestDecodeTopLevelNullableIsCallerError(t *testing.T) {
	_, err := Decode(&Type{Kind: TU32, Nullable: true}, []uint32{1})
	assert.Error(t, err)
}

func TestDecodeUnsupportedKinds(t *testing.T) {
	for _, kind := range []TypeKind{TIP, TCidr4, TCidr6, TCidr, TList} {
		got, err := Decode(&Type{Kind: kind}, []uint32{1, 2, 3, 4})
		require.NoError(t, err)
		assert.Equal(t, KindError, got.Kind(), "kind %s", kind)
	}
}

func TestDecodeIP6(t *testing.T) {
	// Bytes 20 01 0d b8 .. .. 01 packed little-endian into words.
	p := (&payloadBuilder{}).
		word(0xB80D0120).
		word(0x00000000).
		word(0x00000000).
		word(0x01000000)
	got, err := Decode(&Type{Kind: TIP6}, p.words)
	require.NoError(t, err)

	ip, ok := got.(IP6)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::1", ip.String())
}

package codec

import (
	"fmt"

	"github.com/ssargent/eventring/pkg/wire"
)

// reader is a bounded word cursor over one record's payload. decode consumes
// from it and never reads past the end.
type reader struct {
	words []uint32
	pos   int
}

func (r *reader) remaining() int { return len(r.words) - r.pos }

func (r *reader) take(n int) []uint32 {
	w := r.words[r.pos : r.pos+n]
	r.pos += n
	return w
}

// Decode interprets payload against t and returns the decoded value tree.
// Malformed or truncated input surfaces as Error nodes inside the tree, at
// the smallest granularity possible; the returned error reports caller
// mistakes only (a nullable top-level type is a schema violation, since the
// top level has no enclosing nullmask).
func Decode(t *Type, payload []uint32) (Value, error) {
	if t.Nullable {
		return nil, fmt.Errorf("codec: top-level type must not be nullable")
	}
	r := &reader{words: payload}
	return decode(t, r), nil
}

func short(t *Type, r *reader, need int) Error {
	return Error{Msg: fmt.Sprintf("cannot decode %s: need %d words at offset %d, have %d",
		t.Kind, need, r.pos, r.remaining())}
}

func decode(t *Type, r *reader) Value {
	switch t.Kind {
	case TBool:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return Bool{V: r.take(1)[0] != 0}
	case TU8:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return U8{V: uint8(r.take(1)[0])}
	case TU16:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return U16{V: uint16(r.take(1)[0])}
	case TU32:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return U32{V: r.take(1)[0]}
	case TI8:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return I8{V: int8(uint8(r.take(1)[0]))}
	case TI16:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return I16{V: int16(uint16(r.take(1)[0]))}
	case TI32:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		return I32{V: int32(r.take(1)[0])}
	case TFloat:
		if r.remaining() < 2 {
			return short(t, r, 2)
		}
		return Float{V: wire.Float64At(r.take(2), 0)}
	case TU64:
		if r.remaining() < 2 {
			return short(t, r, 2)
		}
		return U64{V: wire.Uint64At(r.take(2), 0)}
	case TI64:
		if r.remaining() < 2 {
			return short(t, r, 2)
		}
		return I64{V: int64(wire.Uint64At(r.take(2), 0))}
	case TEth:
		if r.remaining() < 2 {
			return short(t, r, 2)
		}
		return Eth{V: wire.Uint64At(r.take(2), 0)}
	case TIP4:
		if r.remaining() < 2 {
			return short(t, r, 2)
		}
		return IP4{V: uint32(wire.Uint64At(r.take(2), 0))}
	case TU128:
		if r.remaining() < 4 {
			return short(t, r, 4)
		}
		w := r.take(4)
		return U128{Lo: wire.Uint64At(w, 0), Hi: wire.Uint64At(w, 2)}
	case TI128:
		if r.remaining() < 4 {
			return short(t, r, 4)
		}
		w := r.take(4)
		return I128{Lo: wire.Uint64At(w, 0), Hi: wire.Uint64At(w, 2)}
	case TIP6:
		if r.remaining() < 4 {
			return short(t, r, 4)
		}
		w := r.take(4)
		var b [16]byte
		for i := 0; i < 16; i++ {
			b[i] = byte(w[i/4] >> (8 * (uint(i) % 4)))
		}
		return IP6{V: b}
	case TString:
		if r.remaining() < 1 {
			return short(t, r, 1)
		}
		n := int(r.take(1)[0])
		nw := wire.RoundUpWords(n)
		if n < 0 || r.remaining() < nw {
			return Error{Msg: fmt.Sprintf("cannot decode string of length %d: %d words left", n, r.remaining())}
		}
		w := r.take(nw)
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(w[i/4] >> (8 * (uint(i) % 4)))
		}
		return String{V: string(b)}
	case TTuple:
		mw := t.nullmaskWords()
		if r.remaining() < mw {
			return short(t, r, mw)
		}
		mask := r.take(mw)
		items := make([]Value, 0, len(t.Fields))
		nullIdx := 0
		for _, f := range t.Fields {
			items = append(items, decodeChild(f.Type, r, mask, &nullIdx))
		}
		return Tuple{Items: items}
	case TVec:
		mw := t.nullmaskWords()
		if r.remaining() < mw {
			return short(t, r, mw)
		}
		mask := r.take(mw)
		items := make([]Value, 0, t.Dim)
		nullIdx := 0
		for i := 0; i < t.Dim; i++ {
			items = append(items, decodeChild(t.Elem, r, mask, &nullIdx))
		}
		return Vec{Items: items}
	case TRecord:
		mw := t.nullmaskWords()
		if r.remaining() < mw {
			return short(t, r, mw)
		}
		mask := r.take(mw)
		// Children are visited in serialization order but land at their
		// declared index; nullmask bits follow the visit order.
		fields := make([]Field, len(t.Fields))
		nullIdx := 0
		for _, idx := range t.serOrder() {
			f := t.Fields[idx]
			fields[idx] = Field{Name: f.Name, Value: decodeChild(f.Type, r, mask, &nullIdx)}
		}
		return Record{Fields: fields}
	case TIP, TCidr4, TCidr6, TCidr, TList:
		return Error{Msg: fmt.Sprintf("decoding %s values is not supported", t.Kind)}
	default:
		return Error{Msg: fmt.Sprintf("cannot decode: unknown tag %d", int(t.Kind))}
	}
}

// decodeChild consumes this child's nullmask bit if it is nullable, then its
// payload if present. Absent children cost no payload words.
func decodeChild(t *Type, r *reader, mask []uint32, nullIdx *int) Value {
	if t.Nullable {
		i := *nullIdx
		*nullIdx++
		if !wire.BitSet(mask, i) {
			return Null{}
		}
	}
	return decode(t, r)
}

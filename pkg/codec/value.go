package codec

import (
	"fmt"
	"math/big"
	"net/netip"
	"strconv"
	"strings"
)

// Kind identifies a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindError
	KindBool
	KindFloat
	KindString
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindEth
	KindIP4
	KindIP6
	KindTuple
	KindVec
	KindRecord
)

// Value is a decoded payload node. The variant set is closed: every Value is
// one of the concrete types in this file. A Value tree is immutable and
// carries no reference to the channel it was decoded from.
type Value interface {
	Kind() Kind
	String() string

	value()
}

// Null is an absent nullable value.
type Null struct{}

// Error marks a node that could not be decoded. It replaces the node, not
// the whole tree, so siblings remain inspectable.
type Error struct {
	Msg string
}

// Bool is a boolean scalar.
type Bool struct{ V bool }

// Float is a double-precision scalar.
type Float struct{ V float64 }

// String is a variable-length byte string.
type String struct{ V string }

// Unsigned integer scalars.
type (
	U8  struct{ V uint8 }
	U16 struct{ V uint16 }
	U32 struct{ V uint32 }
	U64 struct{ V uint64 }
	// U128 holds a 128-bit unsigned integer as two 64-bit halves.
	U128 struct{ Hi, Lo uint64 }
)

// Signed integer scalars. I128 stores its halves in two's complement.
type (
	I8   struct{ V int8 }
	I16  struct{ V int16 }
	I32  struct{ V int32 }
	I64  struct{ V int64 }
	I128 struct{ Hi, Lo uint64 }
)

// Eth is an Ethernet address stored in the low 48 bits.
type Eth struct{ V uint64 }

// IP4 is an IPv4 address in host order.
type IP4 struct{ V uint32 }

// IP6 is an IPv6 address.
type IP6 struct{ V [16]byte }

// Tuple is an ordered, positional list of values.
type Tuple struct{ Items []Value }

// Vec is a fixed-size homogeneous list of values.
type Vec struct{ Items []Value }

// Field is one named record member.
type Field struct {
	Name  string
	Value Value
}

// Record is a list of named values in declared field order.
type Record struct{ Fields []Field }

func (Null) Kind() Kind   { return KindNull }
func (Error) Kind() Kind  { return KindError }
func (Bool) Kind() Kind   { return KindBool }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (U8) Kind() Kind     { return KindU8 }
func (U16) Kind() Kind    { return KindU16 }
func (U32) Kind() Kind    { return KindU32 }
func (U64) Kind() Kind    { return KindU64 }
func (U128) Kind() Kind   { return KindU128 }
func (I8) Kind() Kind     { return KindI8 }
func (I16) Kind() Kind    { return KindI16 }
func (I32) Kind() Kind    { return KindI32 }
func (I64) Kind() Kind    { return KindI64 }
func (I128) Kind() Kind   { return KindI128 }
func (Eth) Kind() Kind    { return KindEth }
func (IP4) Kind() Kind    { return KindIP4 }
func (IP6) Kind() Kind    { return KindIP6 }
func (Tuple) Kind() Kind  { return KindTuple }
func (Vec) Kind() Kind    { return KindVec }
func (Record) Kind() Kind { return KindRecord }

func (Null) value()   {}
func (Error) value()  {}
func (Bool) value()   {}
func (Float) value()  {}
func (String) value() {}
func (U8) value()     {}
func (U16) value()    {}
func (U32) value()    {}
func (U64) value()    {}
func (U128) value()   {}
func (I8) value()     {}
func (I16) value()    {}
func (I32) value()    {}
func (I64) value()    {}
func (I128) value()   {}
func (Eth) value()    {}
func (IP4) value()    {}
func (IP6) value()    {}
func (Tuple) value()  {}
func (Vec) value()    {}
func (Record) value() {}

func (Null) String() string { return "NULL" }

func (v Error) String() string { return "<error: " + v.Msg + ">" }

func (v Bool) String() string {
	if v.V {
		return "true"
	}
	return "false"
}

func (v Float) String() string { return strconv.FormatFloat(v.V, 'g', -1, 64) }

func (v String) String() string { return strconv.Quote(v.V) }

func (v U8) String() string  { return strconv.FormatUint(uint64(v.V), 10) }
func (v U16) String() string { return strconv.FormatUint(uint64(v.V), 10) }
func (v U32) String() string { return strconv.FormatUint(uint64(v.V), 10) }
func (v U64) String() string { return strconv.FormatUint(v.V, 10) }

func (v U128) String() string {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	return n.String()
}

func (v I8) String() string  { return strconv.FormatInt(int64(v.V), 10) }
func (v I16) String() string { return strconv.FormatInt(int64(v.V), 10) }
func (v I32) String() string { return strconv.FormatInt(int64(v.V), 10) }
func (v I64) String() string { return strconv.FormatInt(v.V, 10) }

func (v I128) String() string {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	if v.Hi>>63 == 1 {
		wrap := new(big.Int).Lsh(big.NewInt(1), 128)
		n.Sub(n, wrap)
	}
	return n.String()
}

func (v Eth) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		byte(v.V>>40), byte(v.V>>32), byte(v.V>>24),
		byte(v.V>>16), byte(v.V>>8), byte(v.V))
}

func (v IP4) String() string {
	return netip.AddrFrom4([4]byte{byte(v.V >> 24), byte(v.V >> 16), byte(v.V >> 8), byte(v.V)}).String()
}

func (v IP6) String() string { return netip.AddrFrom16(v.V).String() }

func (v Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range v.Items {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(item.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (v Vec) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range v.Items {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(item.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (v Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range v.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}

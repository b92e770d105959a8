// Package codec decodes the typed payload of a channel record into a tree
// of values, driven by a schema descriptor.
//
// # Payload Format
//
// Payloads are sequences of little-endian 32-bit words (see pkg/wire).
// Scalars occupy a fixed number of words per width class:
//
//	1 word   bool, u8, u16, u32, i8, i16, i32
//	2 words  float (double precision), u64, i64, eth, ip4
//	4 words  u128, i128, ip6
//
// Strings carry one length word (byte count) followed by the bytes rounded
// up to whole words.
//
// Composite values (tuples, vectors, records) start with a nullmask: one bit
// per nullable immediate child, byte-packed little-endian and rounded up to
// whole words. Bits are tested in the order nullable children are visited,
// not by overall child index. An absent child decodes to Null and consumes
// no payload.
//
// Records are visited in the schema's serialization order, which may differ
// from the declared field order; decoded fields land at their declared index
// so presentation code sees logical order. Field names live in the schema,
// never on the wire.
//
// # Error Containment
//
// Decoding never reads past the end of the payload. A span too short for the
// node at hand produces an Error value for that node only, so one malformed
// field still leaves its siblings inspectable. Schema tags without decode
// support (ip, cidr4, cidr6, cidr, list) also decode to Error placeholders.
//
// A top-level type must not be nullable; that is a caller error reported by
// Decode itself, not an Error value.
package codec

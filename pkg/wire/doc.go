// Package wire defines the on-disk word format shared by the ring channel
// and the tuple codec.
//
// All quantities are little-endian 32-bit words. A record inside a channel
// occupies a contiguous run of words:
//
//	[Length(1)][TStart(2)][TStop(2)][Payload(Length words)]
//
// Fields:
//   - Length: payload length in words. The special value SkipMarker means
//     there is no record here; the next record starts at word 0. Records are
//     never split across the end of the word array.
//   - TStart, TStop: the record's event-time bounds as a float64 spread over
//     two words each. They are written at commit time, after the payload was
//     copied in.
//   - Payload: the framed tuple bytes, produced and consumed by pkg/codec.
//
// This layout is part of format version "ring1"; any change to it requires a
// new version tag in the channel header.
//
// Within a payload, composite values are preceded by a nullmask holding one
// bit per nullable immediate child, packed little-endian and rounded up to
// whole words. Variable-size data (strings) carry a byte length and are
// rounded up to whole words.
package wire

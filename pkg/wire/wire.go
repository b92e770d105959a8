package wire

import "math"

const (
	// WordSize is the number of bytes per word.
	WordSize = 4

	// Frame layout, in words relative to the start of a record.
	FrameLenOff    = 0
	FrameTStartOff = 1
	FrameTStopOff  = 3
	FrameOverhead  = 5

	// SkipMarker is a length-prefix value meaning "no record here, continue
	// at word 0". It is written when a record would not fit contiguously
	// before the end of the word array.
	SkipMarker uint32 = 0xFFFFFFFF
)

// RoundUpWords returns the number of words required to store n bytes.
func RoundUpWords(n int) int {
	return (n + WordSize - 1) / WordSize
}

// NullmaskWords returns the number of words occupied by a nullmask covering
// the given number of nullable children (one bit each, byte-packed, rounded
// up to whole words).
func NullmaskWords(nullable int) int {
	return RoundUpWords((nullable + 7) / 8)
}

// FramedWords returns the total footprint of a record with the given payload
// length, including the frame overhead.
func FramedWords(payloadWords int) int {
	return payloadWords + FrameOverhead
}

// Float64At reads a float64 spread over two consecutive words.
func Float64At(w []uint32, off int) float64 {
	bits := uint64(w[off]) | uint64(w[off+1])<<32
	return math.Float64frombits(bits)
}

// PutFloat64 writes a float64 over two consecutive words.
func PutFloat64(w []uint32, off int, v float64) {
	bits := math.Float64bits(v)
	w[off] = uint32(bits)
	w[off+1] = uint32(bits >> 32)
}

// Uint64At reads a uint64 spread over two consecutive words.
func Uint64At(w []uint32, off int) uint64 {
	return uint64(w[off]) | uint64(w[off+1])<<32
}

// PutUint64 writes a uint64 over two consecutive words.
func PutUint64(w []uint32, off int, v uint64) {
	w[off] = uint32(v)
	w[off+1] = uint32(v >> 32)
}

// BitSet reports whether bit i is set in a little-endian word-packed bitmap.
func BitSet(mask []uint32, i int) bool {
	return mask[i/32]>>(uint(i)%32)&1 == 1
}

// SetBit sets bit i in a little-endian word-packed bitmap.
func SetBit(mask []uint32, i int) {
	mask[i/32] |= 1 << (uint(i) % 32)
}

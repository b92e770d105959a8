package wire

import (
	"math"
	"testing"
)

func TestRoundUpWords(t *testing.T) {
	testCases := []struct {
		bytes int
		words int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{9, 3},
	}

	for _, tc := range testCases {
		if got := RoundUpWords(tc.bytes); got != tc.words {
			t.Errorf("RoundUpWords(%d) = %d, want %d", tc.bytes, got, tc.words)
		}
	}
}

func TestNullmaskWords(t *testing.T) {
	testCases := []struct {
		nullable int
		words    int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{32, 1},
		{33, 2},
		{64, 2},
	}

	for _, tc := range testCases {
		if got := NullmaskWords(tc.nullable); got != tc.words {
			t.Errorf("NullmaskWords(%d) = %d, want %d", tc.nullable, got, tc.words)
		}
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 1.5e300, math.Pi, math.Inf(1), math.Inf(-1)}

	w := make([]uint32, 2)
	for _, v := range values {
		PutFloat64(w, 0, v)
		if got := Float64At(w, 0); got != v {
			t.Errorf("Float64At after PutFloat64(%v) = %v", v, got)
		}
	}

	// NaN does not compare equal to itself.
	PutFloat64(w, 0, math.NaN())
	if !math.IsNaN(Float64At(w, 0)) {
		t.Error("NaN did not survive the round trip")
	}
}

func TestBitSet(t *testing.T) {
	mask := make([]uint32, 2)
	for _, i := range []int{0, 5, 31, 32, 40, 63} {
		SetBit(mask, i)
	}
	for i := 0; i < 64; i++ {
		want := i == 0 || i == 5 || i == 31 || i == 32 || i == 40 || i == 63
		if got := BitSet(mask, i); got != want {
			t.Errorf("BitSet(mask, %d) = %v, want %v", i, got, want)
		}
	}
}

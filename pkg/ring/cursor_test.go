package ring

import "testing"

func TestCursorIdentity(t *testing.T) {
	// With no allocation in flight (prodHead == prodTail and
	// consHead == consTail), the reserved-gap convention gives
	// free + used + 1 == capacity for every reachable cursor pair.
	const capacity = 64
	for prod := uint32(0); prod < capacity; prod++ {
		for cons := uint32(0); cons < capacity; cons++ {
			free := numFree(capacity, cons, prod)
			used := numEntries(capacity, prod, cons)
			if free+used+1 != capacity {
				t.Fatalf("prod=%d cons=%d: free=%d used=%d, free+used+1 != %d",
					prod, cons, free, used, capacity)
			}
		}
	}
}

func TestNumEntries(t *testing.T) {
	testCases := []struct {
		prodTail, consHead, want uint32
	}{
		{0, 0, 0},
		{10, 0, 10},
		{10, 10, 0},
		{3, 60, 7}, // wrapped
		{63, 63, 0},
	}
	for _, tc := range testCases {
		if got := numEntries(64, tc.prodTail, tc.consHead); got != tc.want {
			t.Errorf("numEntries(64, %d, %d) = %d, want %d",
				tc.prodTail, tc.consHead, got, tc.want)
		}
	}
}

func TestNumFree(t *testing.T) {
	testCases := []struct {
		consTail, prodHead, want uint32
	}{
		{0, 0, 63},  // empty
		{1, 0, 0},   // full
		{10, 5, 4},  // nearly full
		{5, 10, 58}, // wrapped
	}
	for _, tc := range testCases {
		if got := numFree(64, tc.consTail, tc.prodHead); got != tc.want {
			t.Errorf("numFree(64, %d, %d) = %d, want %d",
				tc.consTail, tc.prodHead, got, tc.want)
		}
	}
}

func TestSpanContains(t *testing.T) {
	testCases := []struct {
		from, to, pos uint32
		want          bool
	}{
		{10, 20, 10, true},
		{10, 20, 19, true},
		{10, 20, 20, false},
		{10, 20, 5, false},
		{60, 4, 62, true}, // wrapped span
		{60, 4, 0, true},
		{60, 4, 4, false},
		{60, 4, 30, false},
	}
	for _, tc := range testCases {
		if got := spanContains(64, tc.from, tc.to, tc.pos); got != tc.want {
			t.Errorf("spanContains(64, %d, %d, %d) = %v, want %v",
				tc.from, tc.to, tc.pos, got, tc.want)
		}
	}
}

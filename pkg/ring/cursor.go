package ring

// Cursor arithmetic. All cursors live in [0, capacity); the reserved-gap
// convention keeps one word unused so that a full channel is distinguishable
// from an empty one. For every reachable cursor state,
//
//	numFree(consTail, prodHead) + numEntries(prodTail, consHead) + 1 == capacity
//
// whenever no allocation is in flight.

// numEntries returns the number of committed, unread words, i.e. the length
// of the half-open readable span [consHead, prodTail).
func numEntries(capacity, prodTail, consHead uint32) uint32 {
	if prodTail >= consHead {
		return prodTail - consHead
	}
	return prodTail + capacity - consHead
}

// numFree returns the number of words available for reservation between the
// producer head and the consumer tail, excluding the reserved gap word.
func numFree(capacity, consTail, prodHead uint32) uint32 {
	if consTail > prodHead {
		return consTail - prodHead - 1
	}
	return consTail + capacity - prodHead - 1
}

// ringDist returns the forward distance from base to pos, modulo capacity.
// Using the consumer tail as base linearizes the live region, which makes
// cursor positions totally ordered.
func ringDist(capacity, base, pos uint32) uint32 {
	if pos >= base {
		return pos - base
	}
	return pos + capacity - base
}

// spanContains reports whether pos lies in the half-open span [from, to),
// where the span may wrap around the end of the array.
func spanContains(capacity, from, to, pos uint32) bool {
	return ringDist(capacity, from, pos) < ringDist(capacity, from, to)
}

// Package ring implements a memory-mapped, fixed-capacity circular word
// buffer shared by cooperating local processes.
//
// A channel is a file holding a 128-byte header followed by a flat array of
// little-endian 32-bit words (see pkg/wire for the record frame layout). The
// header carries four cursors, all taken modulo the capacity:
//
//   - producer head: next word reserved for writing
//   - producer tail: last fully committed write boundary (visible to readers)
//   - consumer head: next word reserved for reading
//   - consumer tail: next word released back to free space
//
// The channel is empty when the producer tail equals the consumer head, and
// full when the producer head equals the consumer tail minus one: one word is
// permanently reserved to disambiguate full from empty, so a channel of
// capacity N holds at most N-1 words.
//
// Writes and reads are two-phase. A reserve call takes the channel guard,
// advances the head cursor and returns a Tx describing the reserved span; the
// payload copy then happens outside the guard, which is safe because the span
// is exclusively owned until the matching commit advances the tail cursor.
// Reserve order and commit order may diverge when several producers share a
// channel; whichever commit publishes the furthest boundary wins. Consumer
// releases are stricter: a dequeue commit waits for every earlier reservation
// to commit first, so no span returns to free space before its own commit.
//
// The guard is a spin lock stored in the mapped header, shared by every
// attached process. A holder that dies while spinning others out is treated
// as killed after a bounded number of attempts and the lock is forcibly
// cleared; this is a liveness heuristic, not a safety proof, and the spin
// bound is configurable per attachment.
//
// A channel created in wrap mode resolves a full buffer by evicting the
// oldest committed records instead of rejecting the write. Data loss is the
// explicit contract of wrap mode. Non-wrapping channels reject with ErrNoRoom
// and leave retry policy to the caller; the header stores an advisory timeout
// that the convenience Enqueue helper honors.
//
// Repair and Rotate are maintenance operations. They assume the caller can
// guarantee no concurrent attachment; the package does not enforce this.
package ring

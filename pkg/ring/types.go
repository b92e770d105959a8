package ring

import "errors"

// Errors
var (
	// ErrNoRoom is returned by a reserve on a full non-wrapping channel. It
	// is transient: space appears as soon as a consumer commits.
	ErrNoRoom = errors.New("ring: no more room")

	// ErrNoData is returned by a dequeue on an empty channel. An empty
	// channel is a normal condition, not a failure.
	ErrNoData = errors.New("ring: no data")

	// ErrVersionMismatch is returned by Attach when the file's format
	// version differs from the expected one.
	ErrVersionMismatch = errors.New("ring: version mismatch")

	// ErrRecordTooLarge is returned when a record cannot fit: on enqueue,
	// when the framed record exceeds what the channel could ever hold; on
	// dequeue, when the caller's buffer is smaller than the stored record.
	// The dequeue case never advances the consumer cursor.
	ErrRecordTooLarge = errors.New("ring: record too large")

	// ErrCorrupt is returned when a length prefix does not describe a
	// well-formed record. The channel file needs offline inspection.
	ErrCorrupt = errors.New("ring: corrupt record framing")
)

// Tx describes a reserved-but-not-committed word span. It is returned by the
// reserve operations and consumed by the matching commit.
type Tx struct {
	frame   uint32 // first word of the record frame (length prefix)
	payload uint32 // first word of the payload
	words   uint32 // payload length in words
	next    uint32 // first word past the record (next frame boundary)
	seen    uint32 // head cursor observed when the span was reserved
}

// Words returns the payload length in words.
func (tx Tx) Words() int { return int(tx.words) }

// Options configures channel creation.
type Options struct {
	// Capacity is the size of the word array. The channel holds at most
	// Capacity-1 words of framed records.
	Capacity uint32

	// Wrap selects overwrite-on-full instead of reject-on-full.
	Wrap bool

	// Timeout is an advisory bound, in seconds, for retrying an enqueue
	// that failed with ErrNoRoom. It is stored in the header and honored by
	// Enqueue; the low-level reserve never blocks.
	Timeout float64
}

// Stats is a snapshot of the channel's summary statistics, queryable without
// decoding any record.
type Stats struct {
	Capacity  uint32  `json:"capacity_words"`
	Used      uint32  `json:"used_words"`
	Free      uint32  `json:"free_words"`
	FirstSeq  uint64  `json:"first_seq"`
	NumAllocs uint32  `json:"num_allocs"`
	TMin      float64 `json:"t_min"`
	TMax      float64 `json:"t_max"`
	Wrap      bool    `json:"wrap"`
}

package ring

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T, opts Options) *Ring {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chan.r")
	require.NoError(t, Create(path, opts))
	r, err := Attach(path, FormatVersion)
	require.NoError(t, err)
	t.Cleanup(func() { r.Detach() })
	return r
}

func payloadOf(n int, fill uint32) []uint32 {
	p := make([]uint32, n)
	for i := range p {
		p[i] = fill
	}
	return p
}

func TestCreateRejectsTinyCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.r")
	assert.Error(t, Create(path, Options{Capacity: 3}))
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.r")
	require.NoError(t, Create(path, Options{Capacity: 64}))
	assert.Error(t, Create(path, Options{Capacity: 64}))
}

func TestAttachMissingFile(t *testing.T) {
	_, err := Attach(filepath.Join(t.TempDir(), "nope.r"), FormatVersion)
	assert.Error(t, err)
}

func TestAttachVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.r")
	require.NoError(t, Create(path, Options{Capacity: 64}))

	_, err := Attach(path, "ring2")
	assert.ErrorIs(t, err, ErrVersionMismatch)

	// The expected version still attaches.
	r, err := Attach(path, FormatVersion)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), r.Capacity())
	require.NoError(t, r.Detach())
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 256})

	records := [][]uint32{
		{1, 2, 3, 4},
		{},
		payloadOf(20, 0xABCD),
		{42},
	}
	for i, p := range records {
		require.NoError(t, r.Enqueue(p, float64(i), float64(i)+0.5))
	}

	buf := make([]uint32, 64)
	for i, want := range records {
		n, tStart, tStop, err := r.Dequeue(buf)
		require.NoError(t, err)
		assert.Equal(t, want, append([]uint32{}, buf[:n]...))
		assert.Equal(t, float64(i), tStart)
		assert.Equal(t, float64(i)+0.5, tStop)
	}

	_, _, _, err := r.Dequeue(buf)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDequeueEmptyLeavesCursors(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 64})

	before := r.Stats()
	_, err := r.DequeueReserve()
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, before, r.Stats())
}

func TestNoRoomExactness(t *testing.T) {
	// Capacity 32 holds 31 words; 4-word payloads frame to 9 words, so
	// exactly three fit and the fourth must fail, leaving the first three
	// readable.
	r := newTestRing(t, Options{Capacity: 32})

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Enqueue(payloadOf(4, uint32(i)), 0, 0))
	}
	err := r.Enqueue(payloadOf(4, 99), 0, 0)
	assert.ErrorIs(t, err, ErrNoRoom)

	buf := make([]uint32, 8)
	for i := 0; i < 3; i++ {
		n, _, _, err := r.Dequeue(buf)
		require.NoError(t, err)
		assert.Equal(t, payloadOf(4, uint32(i)), append([]uint32{}, buf[:n]...))
	}
}

func TestEnqueueRecordTooLarge(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 16})

	// 11 payload words frame to 16, one more than the channel can hold.
	_, err := r.EnqueueReserve(11)
	assert.ErrorIs(t, err, ErrRecordTooLarge)

	_, err = r.EnqueueReserve(10)
	assert.NoError(t, err)
}

func TestWrapEvictsOldest(t *testing.T) {
	// Three 9-word framed records fill a 32-word wrapping channel; the
	// fourth evicts the two oldest (the second goes because the record
	// must also fit contiguously) and succeeds instead of failing.
	r := newTestRing(t, Options{Capacity: 32, Wrap: true})

	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Enqueue(payloadOf(4, uint32(i)), float64(i), float64(i)))
	}
	require.NoError(t, r.Enqueue(payloadOf(4, 4), 4, 4))

	assert.Equal(t, uint64(2), r.FirstSeq())
	assert.Equal(t, uint32(4), r.NumAllocs())

	buf := make([]uint32, 8)
	n, _, _, err := r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, payloadOf(4, 3), append([]uint32{}, buf[:n]...))

	n, _, _, err = r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, payloadOf(4, 4), append([]uint32{}, buf[:n]...))

	_, _, _, err = r.Dequeue(buf)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDequeueAdvancesFirstSeq(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 64})
	require.NoError(t, r.Enqueue(payloadOf(3, 1), 1, 1))
	require.NoError(t, r.Enqueue(payloadOf(3, 2), 2, 2))
	assert.Equal(t, uint64(0), r.FirstSeq())

	buf := make([]uint32, 8)
	_, _, _, err := r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.FirstSeq())

	_, _, _, err = r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.FirstSeq())
}

func TestDequeueBufferTooSmallRollsBack(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 64})
	require.NoError(t, r.Enqueue(payloadOf(6, 7), 1, 2))

	small := make([]uint32, 2)
	_, _, _, err := r.Dequeue(small)
	assert.ErrorIs(t, err, ErrRecordTooLarge)

	// The failed read must not leave a reservation in flight: the record
	// is still there for a big enough buffer.
	big := make([]uint32, 16)
	n, tStart, tStop, err := r.Dequeue(big)
	require.NoError(t, err)
	assert.Equal(t, payloadOf(6, 7), append([]uint32{}, big[:n]...))
	assert.Equal(t, 1.0, tStart)
	assert.Equal(t, 2.0, tStop)
}

func TestReserveCommitSplitPhases(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 64})

	tx, err := r.EnqueueReserve(3)
	require.NoError(t, err)

	// Nothing is visible until the commit.
	_, err = r.DequeueReserve()
	assert.ErrorIs(t, err, ErrNoData)

	copy(r.Payload(tx), []uint32{7, 8, 9})
	r.EnqueueCommit(tx, 10, 20)

	rtx, err := r.DequeueReserve()
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8, 9}, append([]uint32{}, r.Payload(rtx)...))
	tStart, tStop := r.Times(rtx)
	assert.Equal(t, 10.0, tStart)
	assert.Equal(t, 20.0, tStop)

	// Space is reclaimed only by the consumer commit.
	used := r.Stats().Used
	assert.NotZero(t, used)
	r.DequeueCommit(rtx)
	assert.Zero(t, r.Stats().Used)
}

func TestDequeueCommitWaitsForPredecessor(t *testing.T) {
	// Two records, two read reservations, committed in reverse order. The
	// second commit must not release the first record's span before its own
	// commit arrives.
	r := newTestRing(t, Options{Capacity: 64})
	require.NoError(t, r.Enqueue(payloadOf(3, 0xAAAA), 1, 1))
	require.NoError(t, r.Enqueue(payloadOf(3, 0xBBBB), 2, 2))

	tx1, err := r.DequeueReserve()
	require.NoError(t, err)
	tx2, err := r.DequeueReserve()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.DequeueCommit(tx2)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	// Both 8-word frames are still held, so free space is unchanged and the
	// first record's words are intact.
	assert.Equal(t, uint32(47), r.Stats().Free)
	assert.Equal(t, payloadOf(3, 0xAAAA), append([]uint32{}, r.Payload(tx1)...))

	// A write that would need the first record's words still fails.
	err = r.Enqueue(payloadOf(43, 0xCCCC), 3, 3)
	assert.ErrorIs(t, err, ErrNoRoom)

	r.DequeueCommit(tx1)
	<-done

	assert.Equal(t, uint32(63), r.Stats().Free)
	assert.Equal(t, uint64(2), r.FirstSeq())
	assert.Zero(t, r.Stats().Used)
}

func TestReservedFrameScannableWhenNeighborPublishes(t *testing.T) {
	// A neighbor's commit can publish the write boundary past a frame that
	// is still reserved. The walk over that frame relies on its length
	// prefix, so the prefix must be in place from the reserve onwards.
	r := newTestRing(t, Options{Capacity: 64})

	tx1, err := r.EnqueueReserve(3)
	require.NoError(t, err)
	copy(r.Payload(tx1), []uint32{1, 2, 3})

	tx2, err := r.EnqueueReserve(2)
	require.NoError(t, err)
	copy(r.Payload(tx2), []uint32{4, 5})
	r.EnqueueCommit(tx2, 2, 2)

	buf := make([]uint32, 8)
	n, _, _, err := r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, append([]uint32{}, buf[:n]...))

	n, _, _, err = r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, []uint32{4, 5}, append([]uint32{}, buf[:n]...))
}

func TestStatsTimeRange(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 128})

	_, _, ok := r.TimeRange()
	assert.False(t, ok)

	require.NoError(t, r.Enqueue([]uint32{1}, 5.0, 6.0))
	require.NoError(t, r.Enqueue([]uint32{2}, 2.0, 3.0))
	require.NoError(t, r.Enqueue([]uint32{3}, 4.0, 9.0))

	tmin, tmax, ok := r.TimeRange()
	require.True(t, ok)
	assert.Equal(t, 2.0, tmin)
	assert.Equal(t, 9.0, tmax)

	// Dequeuing must not shrink the observed range.
	buf := make([]uint32, 4)
	_, _, _, err := r.Dequeue(buf)
	require.NoError(t, err)
	tmin, tmax, _ = r.TimeRange()
	assert.Equal(t, 2.0, tmin)
	assert.Equal(t, 9.0, tmax)
}

func TestScanWalksWithoutCursorMutation(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 128})
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Enqueue(payloadOf(i, uint32(i)), float64(i), float64(i)))
	}

	var seen [][]uint32
	for tx, ok := r.ScanFirst(); ok; tx, ok = r.ScanNext(tx) {
		seen = append(seen, append([]uint32{}, r.Payload(tx)...))
	}
	require.Len(t, seen, 3)
	for i, p := range seen {
		assert.Equal(t, payloadOf(i+1, uint32(i+1)), p)
	}

	// The live consumer still sees the first record.
	buf := make([]uint32, 8)
	n, _, _, err := r.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, payloadOf(1, 1), append([]uint32{}, buf[:n]...))
}

func TestScanEmpty(t *testing.T) {
	r := newTestRing(t, Options{Capacity: 64})
	_, ok := r.ScanFirst()
	assert.False(t, ok)
}

func TestCrossHandleVisibility(t *testing.T) {
	// Two attachments to the same file stand in for two processes.
	path := filepath.Join(t.TempDir(), "chan.r")
	require.NoError(t, Create(path, Options{Capacity: 128}))

	producer, err := Attach(path, FormatVersion)
	require.NoError(t, err)
	defer producer.Detach()
	consumer, err := Attach(path, FormatVersion)
	require.NoError(t, err)
	defer consumer.Detach()

	require.NoError(t, producer.Enqueue([]uint32{0xFEED}, 1, 2))

	buf := make([]uint32, 4)
	n, _, _, err := consumer.Dequeue(buf)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0xFEED}, append([]uint32{}, buf[:n]...))
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	const producers = 4
	const perProducer = 200

	path := filepath.Join(t.TempDir(), "chan.r")
	require.NoError(t, Create(path, Options{Capacity: 256, Timeout: 30}))

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			r, err := Attach(path, FormatVersion)
			if err != nil {
				t.Error(err)
				return
			}
			defer r.Detach()
			for i := 0; i < perProducer; i++ {
				if err := r.Enqueue([]uint32{id, uint32(i)}, 0, 0); err != nil {
					t.Errorf("producer %d: %v", id, err)
					return
				}
			}
		}(uint32(p))
	}

	consumer, err := Attach(path, FormatVersion)
	require.NoError(t, err)
	defer consumer.Detach()

	counts := make(map[uint32]int)
	buf := make([]uint32, 4)
	for received := 0; received < producers*perProducer; {
		n, _, _, err := consumer.Dequeue(buf)
		if errors.Is(err, ErrNoData) {
			continue
		}
		require.NoError(t, err)
		require.Equal(t, 2, n)
		counts[buf[0]]++
		received++
	}
	wg.Wait()

	for p := uint32(0); p < producers; p++ {
		assert.Equal(t, perProducer, counts[p], "producer %d", p)
	}
	assert.Equal(t, uint32(producers*perProducer), consumer.NumAllocs())
}

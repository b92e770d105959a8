package ring

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ssargent/eventring/pkg/wire"
)

// minCapacity is the smallest useful word array: one empty-payload record
// plus the reserved gap word.
const minCapacity = wire.FrameOverhead + 2

// Ring is an attached channel. A Ring is bound to the process that attached
// it; cross-process sharing happens through the mapped file, not through
// this handle.
type Ring struct {
	file     *os.File
	mem      []byte
	hdr      *header
	data     []uint32
	path     string
	capacity uint32

	spinLimit      uint64
	onForcedUnlock func(path string)
}

// Create initializes a new channel file at path with zeroed cursors. It
// fails if the file already exists.
func Create(path string, opts Options) error {
	return create(path, opts, 0)
}

func create(path string, opts Options, firstSeq uint64) error {
	if opts.Capacity < minCapacity {
		return fmt.Errorf("ring: capacity %d below minimum %d", opts.Capacity, minCapacity)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("ring: creating %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	size := int64(HeaderSize) + int64(opts.Capacity)*wire.WordSize
	if err := file.Truncate(size); err != nil {
		cleanup()
		return fmt.Errorf("ring: sizing %s: %w", path, err)
	}
	mem, err := mmapFile(file, int(size))
	if err != nil {
		cleanup()
		return fmt.Errorf("ring: mapping %s: %w", path, err)
	}

	// Truncate gave us a zero-filled file, so the cursors, the guard and
	// the allocation count are already in their initial state.
	hdr := &header{base: unsafe.Pointer(&mem[0])}
	hdr.SetVersion(FormatVersion)
	hdr.SetFirstSeq(firstSeq)
	hdr.SetNumWords(opts.Capacity)
	hdr.SetWrap(opts.Wrap)
	hdr.SetTMin(math.Inf(1))
	hdr.SetTMax(math.Inf(-1))
	hdr.SetTimeout(opts.Timeout)

	if err := munmapFile(mem); err != nil {
		cleanup()
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("ring: closing %s: %w", path, err)
	}
	return nil
}

// Attach maps an existing channel file. It fails with ErrVersionMismatch if
// the stored format version differs from the expected one; no mapping is
// retained on failure.
func Attach(path, version string) (*Ring, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ring: opening %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("ring: stat %s: %w", path, err)
	}
	if info.Size() < HeaderSize {
		file.Close()
		return nil, fmt.Errorf("ring: %s too small to hold a header (%d bytes)", path, info.Size())
	}
	mem, err := mmapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("ring: mapping %s: %w", path, err)
	}
	hdr := &header{base: unsafe.Pointer(&mem[0])}
	if got := hdr.Version(); got != version {
		munmapFile(mem)
		file.Close()
		return nil, fmt.Errorf("%w: %s has version %q, expected %q", ErrVersionMismatch, path, got, version)
	}
	capacity := hdr.NumWords()
	if capacity < minCapacity || int64(HeaderSize)+int64(capacity)*wire.WordSize > info.Size() {
		munmapFile(mem)
		file.Close()
		return nil, fmt.Errorf("ring: %s declares %d words but holds %d bytes", path, capacity, info.Size())
	}

	return &Ring{
		file:      file,
		mem:       mem,
		hdr:       hdr,
		data:      unsafe.Slice((*uint32)(unsafe.Pointer(&mem[HeaderSize])), int(capacity)),
		path:      path,
		capacity:  capacity,
		spinLimit: DefaultSpinLimit,
	}, nil
}

// Detach unmaps the channel. The Ring must not be used afterwards.
func (r *Ring) Detach() error {
	if r.mem == nil {
		return nil
	}
	err := munmapFile(r.mem)
	r.mem, r.hdr, r.data = nil, nil, nil
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the backing file path.
func (r *Ring) Path() string { return r.path }

// Capacity returns the size of the word array.
func (r *Ring) Capacity() uint32 { return r.capacity }

// Wrap reports whether the channel overwrites on full.
func (r *Ring) Wrap() bool { return r.hdr.Wrap() }

// NumAllocs returns the number of committed allocations.
func (r *Ring) NumAllocs() uint32 { return r.hdr.NumAllocs() }

// FirstSeq returns the sequence number of the record at the consumer tail,
// the oldest one still occupying channel space. It advances when records are
// released by dequeue commits or evicted by wrapping producers.
func (r *Ring) FirstSeq() uint64 { return r.hdr.FirstSeq() }

// TimeRange returns the observed [min t_start, max t_stop] over all
// committed records, and false if nothing was committed yet.
func (r *Ring) TimeRange() (tmin, tmax float64, ok bool) {
	if r.hdr.NumAllocs() == 0 {
		return 0, 0, false
	}
	return r.hdr.TMin(), r.hdr.TMax(), true
}

// Stats returns a snapshot of the channel's summary statistics.
func (r *Ring) Stats() Stats {
	h := r.hdr
	s := Stats{
		Capacity:  r.capacity,
		Used:      numEntries(r.capacity, h.ProdTail(), h.ConsHead()),
		Free:      numFree(r.capacity, h.ConsTail(), h.ProdHead()),
		FirstSeq:  h.FirstSeq(),
		NumAllocs: h.NumAllocs(),
		Wrap:      h.Wrap(),
	}
	if s.NumAllocs > 0 {
		s.TMin, s.TMax = h.TMin(), h.TMax()
	}
	return s
}

// EnqueueReserve reserves room for a payload of numWords words plus framing
// and advances the producer head. On a full non-wrapping channel it returns
// ErrNoRoom immediately; retrying is the caller's policy. On a full wrapping
// channel it evicts the oldest committed records instead.
//
// The returned span is exclusively owned by the caller until EnqueueCommit,
// so the payload copy needs no guard.
func (r *Ring) EnqueueReserve(numWords int) (Tx, error) {
	need := uint32(wire.FramedWords(numWords))
	if numWords < 0 || need > r.capacity-1 {
		return Tx{}, fmt.Errorf("%w: %d framed words, channel holds at most %d",
			ErrRecordTooLarge, need, r.capacity-1)
	}

	h := r.hdr
	r.lock()
	prodHead := h.ProdHead()
	prodTail := h.ProdTail()

	// Records are contiguous: when the frame would cross the end of the
	// array, a skip marker is written at the head and the record starts at
	// word 0.
	var skip uint32
	if need > r.capacity-prodHead {
		skip = r.capacity - prodHead
	}

	for {
		consTail := h.ConsTail()
		if need+skip <= numFree(r.capacity, consTail, prodHead) {
			break
		}
		if !h.Wrap() || consTail == prodTail {
			r.unlock()
			return Tx{}, ErrNoRoom
		}
		r.evictOldest(consTail)
	}

	start := prodHead
	if skip > 0 {
		r.data[prodHead] = wire.SkipMarker
		start = 0
	}
	next := start + need
	if next == r.capacity {
		next = 0
	}
	// The length prefix makes the frame scannable and must be in place
	// before the guard drops: a neighboring producer may publish past this
	// frame the moment the guard is free.
	r.data[start+wire.FrameLenOff] = uint32(numWords)
	h.SetProdHead(next)
	r.unlock()

	return Tx{
		frame:   start,
		payload: start + wire.FrameOverhead,
		words:   uint32(numWords),
		next:    next,
		seen:    prodHead,
	}, nil
}

// evictOldest advances the consumer tail past one record, dragging the
// consumer head along if it pointed inside the evicted span. Caller holds
// the guard.
func (r *Ring) evictOldest(consTail uint32) {
	h := r.hdr
	next := uint32(0)
	if w := r.data[consTail]; w != wire.SkipMarker {
		next = consTail + uint32(wire.FramedWords(int(w)))
		if next >= r.capacity {
			next = 0
		}
		h.AddFirstSeq(1)
	}
	if consHead := h.ConsHead(); consHead == consTail ||
		spanContains(r.capacity, consTail, next, consHead) {
		h.SetConsHead(next)
	}
	h.SetConsTail(next)
}

// EnqueueCommit writes the record's time tags and publishes the reserved
// span. Commit order, not reserve order, decides visibility: the commit that
// carries the furthest boundary wins, so a later-reserved, earlier-committed
// span may publish a predecessor still being copied. Channels with several
// producers must tolerate that or serialize commits themselves.
func (r *Ring) EnqueueCommit(tx Tx, tStart, tStop float64) {
	wire.PutFloat64(r.data, int(tx.frame)+wire.FrameTStartOff, tStart)
	wire.PutFloat64(r.data, int(tx.frame)+wire.FrameTStopOff, tStop)

	h := r.hdr
	r.lock()
	base := h.ConsTail()
	if ringDist(r.capacity, base, tx.next) > ringDist(r.capacity, base, h.ProdTail()) {
		h.SetProdTail(tx.next)
	}
	h.IncNumAllocs()
	if tStart < h.TMin() {
		h.SetTMin(tStart)
	}
	if tStop > h.TMax() {
		h.SetTMax(tStop)
	}
	r.unlock()
}

// dequeueLocked resolves the next readable record without moving any cursor.
// Caller holds the guard.
func (r *Ring) dequeueLocked() (Tx, error) {
	h := r.hdr
	consHead := h.ConsHead()
	prodTail := h.ProdTail()
	seen := consHead
	for {
		if consHead == prodTail {
			return Tx{}, ErrNoData
		}
		w := r.data[consHead]
		if w == wire.SkipMarker {
			consHead = 0
			continue
		}
		framed := uint32(wire.FramedWords(int(w)))
		if uint64(w) > uint64(r.capacity) || consHead+framed > r.capacity {
			return Tx{}, fmt.Errorf("%w: length prefix %d at word %d", ErrCorrupt, w, consHead)
		}
		next := consHead + framed
		if next == r.capacity {
			next = 0
		}
		return Tx{
			frame:   consHead,
			payload: consHead + wire.FrameOverhead,
			words:   w,
			next:    next,
			seen:    seen,
		}, nil
	}
}

// DequeueReserve reserves the next unread record and advances the consumer
// head past it. An empty channel returns ErrNoData without touching any
// cursor. The record's words stay in place until DequeueCommit releases
// them, so Payload may be read without copying.
func (r *Ring) DequeueReserve() (Tx, error) {
	r.lock()
	tx, err := r.dequeueLocked()
	if err != nil {
		r.unlock()
		return Tx{}, err
	}
	r.hdr.SetConsHead(tx.next)
	r.unlock()
	return tx, nil
}

// DequeueCommit releases the record's span back to producers. Releases are
// strictly ordered: the tail only advances from the position the reservation
// observed, so a commit whose predecessor is still outstanding waits for it
// rather than freeing words that were never committed. A span the eviction
// path has already reclaimed is treated as released.
func (r *Ring) DequeueCommit(tx Tx) {
	h := r.hdr
	for {
		r.lock()
		consTail := h.ConsTail()
		if consTail == tx.seen {
			h.SetConsTail(tx.next)
			h.AddFirstSeq(r.countRecords(tx.seen, tx.next))
			r.unlock()
			return
		}
		if !spanContains(r.capacity, consTail, h.ConsHead(), tx.seen) {
			// Eviction moved the tail past this span already.
			r.unlock()
			return
		}
		r.unlock()
		runtime.Gosched()
	}
}

// countRecords walks the record frames from one boundary to another and
// returns how many records the span holds. Skip markers do not count. Both
// boundaries must be frame boundaries.
func (r *Ring) countRecords(from, to uint32) uint64 {
	var n uint64
	for from != to {
		w := r.data[from]
		if w == wire.SkipMarker {
			from = 0
			continue
		}
		from += uint32(wire.FramedWords(int(w)))
		if from >= r.capacity {
			from = 0
		}
		n++
	}
	return n
}

// Payload returns the record's payload words, referencing the mapped file
// directly. For a dequeue reservation the slice is valid until the matching
// DequeueCommit; for an enqueue reservation, until EnqueueCommit.
func (r *Ring) Payload(tx Tx) []uint32 {
	return r.data[tx.payload : tx.payload+tx.words : tx.payload+tx.words]
}

// Times returns a committed record's time tags.
func (r *Ring) Times(tx Tx) (tStart, tStop float64) {
	return wire.Float64At(r.data, int(tx.frame)+wire.FrameTStartOff),
		wire.Float64At(r.data, int(tx.frame)+wire.FrameTStopOff)
}

// Enqueue reserves, copies and commits one record. On a full non-wrapping
// channel it retries every millisecond for up to the header's advisory
// timeout before giving up with ErrNoRoom.
func (r *Ring) Enqueue(payload []uint32, tStart, tStop float64) error {
	var deadline time.Time
	for {
		tx, err := r.EnqueueReserve(len(payload))
		if err == nil {
			copy(r.Payload(tx), payload)
			r.EnqueueCommit(tx, tStart, tStop)
			return nil
		}
		if !errors.Is(err, ErrNoRoom) {
			return err
		}
		timeout := r.hdr.Timeout()
		if timeout <= 0 {
			return err
		}
		now := time.Now()
		if deadline.IsZero() {
			deadline = now.Add(time.Duration(timeout * float64(time.Second)))
		} else if now.After(deadline) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

// Dequeue reads the next record into buf and returns the payload length in
// words together with the record's time tags. When buf is smaller than the
// record, ErrRecordTooLarge is returned before any cursor moves, so the
// record stays readable with a larger buffer.
func (r *Ring) Dequeue(buf []uint32) (int, float64, float64, error) {
	r.lock()
	tx, err := r.dequeueLocked()
	if err != nil {
		r.unlock()
		return 0, 0, 0, err
	}
	if int(tx.words) > len(buf) {
		r.unlock()
		return 0, 0, 0, fmt.Errorf("%w: record is %d words, buffer holds %d",
			ErrRecordTooLarge, tx.words, len(buf))
	}
	r.hdr.SetConsHead(tx.next)
	r.unlock()

	copy(buf[:tx.words], r.Payload(tx))
	tStart, tStop := r.Times(tx)
	r.DequeueCommit(tx)
	return int(tx.words), tStart, tStop, nil
}

// ScanFirst returns the oldest physically present record without touching
// any cursor. Together with ScanNext it provides a read-only forward walk
// for offline inspection and archival reads.
func (r *Ring) ScanFirst() (Tx, bool) {
	return r.scanFrom(r.hdr.ConsTail())
}

// ScanNext returns the record following tx, or false past the last one.
func (r *Ring) ScanNext(tx Tx) (Tx, bool) {
	return r.scanFrom(tx.next)
}

func (r *Ring) scanFrom(pos uint32) (Tx, bool) {
	prodTail := r.hdr.ProdTail()
	for {
		if pos == prodTail || pos >= r.capacity {
			return Tx{}, false
		}
		w := r.data[pos]
		if w == wire.SkipMarker {
			pos = 0
			continue
		}
		framed := uint32(wire.FramedWords(int(w)))
		if uint64(w) > uint64(r.capacity) || pos+framed > r.capacity {
			return Tx{}, false
		}
		next := pos + framed
		if next == r.capacity {
			next = 0
		}
		return Tx{frame: pos, payload: pos + wire.FrameOverhead, words: w, next: next, seen: pos}, true
	}
}

// Repair collapses a head cursor left ahead of its tail by a holder that
// crashed between reserve and commit, discarding the uncommitted span, and
// clears the guard in case the holder died inside it. It must only run when
// no other process holds the channel open. Repair is idempotent: the first
// call after a crash returns true, an immediate second call returns false.
func (r *Ring) Repair() bool {
	h := r.hdr
	fixed := false
	if h.ProdHead() != h.ProdTail() {
		h.SetProdHead(h.ProdTail())
		fixed = true
	}
	if h.ConsHead() != h.ConsTail() {
		h.SetConsHead(h.ConsTail())
		fixed = true
	}
	atomic.StoreUint32(h.lockWord(), 0)
	return fixed
}

// Rotate seals the current backing file under archivePath and redirects
// subsequent operations to a fresh, empty file at the original path. The
// sealed file keeps its header and stays scannable; the fresh one carries
// firstSeq advanced past every allocation made so far. The caller must
// guarantee no other process is attached while rotating.
func (r *Ring) Rotate(archivePath string) error {
	h := r.hdr
	firstSeq := h.FirstSeq() + r.countRecords(h.ConsTail(), h.ProdTail())
	opts := Options{Capacity: r.capacity, Wrap: h.Wrap(), Timeout: h.Timeout()}

	if err := os.Rename(r.path, archivePath); err != nil {
		return fmt.Errorf("ring: sealing %s: %w", r.path, err)
	}
	if err := create(r.path, opts, firstSeq); err != nil {
		// The old mapping still points at the sealed file, which keeps
		// this handle usable even though the swap failed.
		return err
	}
	fresh, err := Attach(r.path, FormatVersion)
	if err != nil {
		return err
	}

	munmapFile(r.mem)
	r.file.Close()
	r.file, r.mem, r.hdr, r.data = fresh.file, fresh.mem, fresh.hdr, fresh.data
	return nil
}

package ring

import (
	"math"
	"sync/atomic"
	"unsafe"
)

const (
	// FormatVersion tags the current header and frame layout. It is stored
	// as an 8-byte right-padded ASCII string at the start of the file.
	FormatVersion = "ring1"

	// HeaderSize is the byte size of the mapped header. The word array
	// starts immediately after it.
	HeaderSize = 128
)

// Header field offsets, in bytes.
const (
	offVersion   = 0x00 // [8]byte, right-padded ASCII
	offFirstSeq  = 0x08 // uint64, sequence number of the oldest live record
	offNumWords  = 0x10 // uint32, capacity (immutable after creation)
	offFlags     = 0x14 // uint32, bit 0 = wrap
	offLock      = 0x18 // uint32, channel guard (0 free, 1 held)
	offNumAllocs = 0x1C // uint32, completed allocations
	offProdHead  = 0x20 // uint32
	offProdTail  = 0x24 // uint32
	offConsHead  = 0x28 // uint32
	offConsTail  = 0x2C // uint32
	offTMin      = 0x30 // float64 bits, min committed t_start
	offTMax      = 0x38 // float64 bits, max committed t_stop
	offTimeout   = 0x40 // float64 bits, advisory enqueue retry bound
)

const flagWrap = uint32(1)

// header is a view over the mapped channel header. All cursor and statistic
// fields are accessed atomically: the backing memory is shared with other
// processes.
type header struct {
	base unsafe.Pointer
}

func (h *header) u32p(off uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(h.base) + off))
}

func (h *header) u64p(off uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(uintptr(h.base) + off))
}

// Version returns the stored version tag with trailing NULs stripped.
func (h *header) Version() string {
	b := (*[8]byte)(unsafe.Pointer(uintptr(h.base) + offVersion))
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func (h *header) SetVersion(v string) {
	b := (*[8]byte)(unsafe.Pointer(uintptr(h.base) + offVersion))
	*b = [8]byte{}
	copy(b[:], v)
}

func (h *header) FirstSeq() uint64     { return atomic.LoadUint64(h.u64p(offFirstSeq)) }
func (h *header) SetFirstSeq(v uint64) { atomic.StoreUint64(h.u64p(offFirstSeq), v) }
func (h *header) AddFirstSeq(n uint64) { atomic.AddUint64(h.u64p(offFirstSeq), n) }

func (h *header) NumWords() uint32     { return atomic.LoadUint32(h.u32p(offNumWords)) }
func (h *header) SetNumWords(v uint32) { atomic.StoreUint32(h.u32p(offNumWords), v) }

func (h *header) Wrap() bool { return atomic.LoadUint32(h.u32p(offFlags))&flagWrap != 0 }
func (h *header) SetWrap(wrap bool) {
	var f uint32
	if wrap {
		f = flagWrap
	}
	atomic.StoreUint32(h.u32p(offFlags), f)
}

func (h *header) lockWord() *uint32 { return h.u32p(offLock) }

func (h *header) NumAllocs() uint32     { return atomic.LoadUint32(h.u32p(offNumAllocs)) }
func (h *header) SetNumAllocs(v uint32) { atomic.StoreUint32(h.u32p(offNumAllocs), v) }
func (h *header) IncNumAllocs()         { atomic.AddUint32(h.u32p(offNumAllocs), 1) }

func (h *header) ProdHead() uint32     { return atomic.LoadUint32(h.u32p(offProdHead)) }
func (h *header) SetProdHead(v uint32) { atomic.StoreUint32(h.u32p(offProdHead), v) }
func (h *header) ProdTail() uint32     { return atomic.LoadUint32(h.u32p(offProdTail)) }
func (h *header) SetProdTail(v uint32) { atomic.StoreUint32(h.u32p(offProdTail), v) }
func (h *header) ConsHead() uint32     { return atomic.LoadUint32(h.u32p(offConsHead)) }
func (h *header) SetConsHead(v uint32) { atomic.StoreUint32(h.u32p(offConsHead), v) }
func (h *header) ConsTail() uint32     { return atomic.LoadUint32(h.u32p(offConsTail)) }
func (h *header) SetConsTail(v uint32) { atomic.StoreUint32(h.u32p(offConsTail), v) }

func (h *header) TMin() float64 {
	return math.Float64frombits(atomic.LoadUint64(h.u64p(offTMin)))
}

func (h *header) SetTMin(v float64) {
	atomic.StoreUint64(h.u64p(offTMin), math.Float64bits(v))
}

func (h *header) TMax() float64 {
	return math.Float64frombits(atomic.LoadUint64(h.u64p(offTMax)))
}

func (h *header) SetTMax(v float64) {
	atomic.StoreUint64(h.u64p(offTMax), math.Float64bits(v))
}

func (h *header) Timeout() float64 {
	return math.Float64frombits(atomic.LoadUint64(h.u64p(offTimeout)))
}

func (h *header) SetTimeout(v float64) {
	atomic.StoreUint64(h.u64p(offTimeout), math.Float64bits(v))
}

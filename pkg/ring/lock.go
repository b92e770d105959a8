package ring

import (
	"runtime"
	"sync/atomic"
)

// DefaultSpinLimit is the number of failed lock attempts after which the
// holder is assumed killed in action and the guard is forcibly cleared.
// The critical sections guarded by the lock are a handful of cursor updates,
// so a live holder releases within a few hundred cycles.
const DefaultSpinLimit = 1_000_000

// lock acquires the channel guard shared by every attached process. The
// guard protects all cursor mutation; payload copies happen outside it.
//
// Forced clearing after spinLimit failed attempts is a liveness heuristic,
// not a safety proof: if the holder was alive but stalled, two holders may
// briefly coexist. A crashed holder is recovered without operator
// intervention; a merely slow one loses the guard.
func (r *Ring) lock() {
	w := r.hdr.lockWord()
	var spins uint64
	for !atomic.CompareAndSwapUint32(w, 0, 1) {
		spins++
		if spins >= r.spinLimit/2 {
			runtime.Gosched()
		}
		if spins >= r.spinLimit {
			atomic.StoreUint32(w, 0)
			spins = 0
			if r.onForcedUnlock != nil {
				r.onForcedUnlock(r.path)
			}
		}
	}
}

func (r *Ring) unlock() {
	atomic.StoreUint32(r.hdr.lockWord(), 0)
}

// SetSpinLimit adjusts the killed-in-action threshold for this attachment.
// It does not affect other processes attached to the same channel.
func (r *Ring) SetSpinLimit(limit uint64) {
	if limit < 2 {
		limit = 2
	}
	r.spinLimit = limit
}

// OnForcedUnlock installs a callback invoked whenever the guard is forcibly
// cleared. The callback runs on the acquiring goroutine and must not touch
// the channel.
func (r *Ring) OnForcedUnlock(fn func(path string)) {
	r.onForcedUnlock = fn
}

// Package archive maintains a durable index of sealed channel segments.
//
// Rotating a channel seals its backing file as a read-only segment. The
// index records each segment's path and summary (sequence range, record
// count, observed time range) in a pebble database, keyed by a KSUID, so
// replay-style readers can find the segments overlapping a past time range
// without opening every file.
package archive

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/eventring/pkg/ring"
)

// Segment describes one sealed channel file.
type Segment struct {
	ID        ksuid.KSUID `json:"id"`
	Path      string      `json:"path"`
	FirstSeq  uint64      `json:"first_seq"`
	Records   uint32      `json:"records"`
	TMin      float64     `json:"t_min"`
	TMax      float64     `json:"t_max"`
	SealedAt  time.Time   `json:"sealed_at"`
	HasEvents bool        `json:"has_events"`
}

// Overlaps reports whether the segment's observed time range intersects
// [t1, t2]. Segments that never saw a commit overlap nothing.
func (s Segment) Overlaps(t1, t2 float64) bool {
	return s.HasEvents && s.TMin <= t2 && s.TMax >= t1
}

// Index is a pebble-backed segment catalog.
type Index struct {
	db *pebble.DB
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("archive: opening index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the index database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Register records a sealed segment and returns its assigned ID.
func (i *Index) Register(seg Segment) (ksuid.KSUID, error) {
	if seg.ID.IsNil() {
		seg.ID = ksuid.New()
	}
	data, err := json.Marshal(seg)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("archive: encoding segment: %w", err)
	}
	if err := i.db.Set(seg.ID.Bytes(), data, pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("archive: storing segment: %w", err)
	}
	return seg.ID, nil
}

// Get returns one segment by ID.
func (i *Index) Get(id ksuid.KSUID) (Segment, error) {
	data, closer, err := i.db.Get(id.Bytes())
	if err != nil {
		return Segment{}, fmt.Errorf("archive: segment %s: %w", id, err)
	}
	defer closer.Close()

	var seg Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return Segment{}, fmt.Errorf("archive: decoding segment %s: %w", id, err)
	}
	return seg, nil
}

// Segments returns every registered segment. KSUIDs are time-ordered, so
// iteration order matches sealing order.
func (i *Index) Segments() ([]Segment, error) {
	iter, err := i.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: iterating index: %w", err)
	}
	defer iter.Close()

	var segs []Segment
	for iter.First(); iter.Valid(); iter.Next() {
		var seg Segment
		if err := json.Unmarshal(iter.Value(), &seg); err != nil {
			return nil, fmt.Errorf("archive: decoding segment %x: %w", iter.Key(), err)
		}
		segs = append(segs, seg)
	}
	return segs, iter.Error()
}

// Overlapping returns the segments whose observed time range intersects
// [t1, t2], in sealing order. This is the replay entry point: each returned
// segment can be walked with ring.Attach plus ScanFirst/ScanNext.
func (i *Index) Overlapping(t1, t2 float64) ([]Segment, error) {
	segs, err := i.Segments()
	if err != nil {
		return nil, err
	}
	matched := segs[:0]
	for _, seg := range segs {
		if seg.Overlaps(t1, t2) {
			matched = append(matched, seg)
		}
	}
	return matched, nil
}

// Rotate seals r into dir under a fresh KSUID-derived file name, registers
// the segment and returns it. The caller must guarantee no other process is
// attached to the channel during rotation.
func Rotate(r *ring.Ring, i *Index, dir string) (Segment, error) {
	id := ksuid.New()
	seg := Segment{
		ID:       id,
		Path:     filepath.Join(dir, id.String()+".seg"),
		FirstSeq: r.FirstSeq(),
		Records:  r.NumAllocs(),
		SealedAt: time.Now().UTC(),
	}
	if tmin, tmax, ok := r.TimeRange(); ok {
		seg.TMin, seg.TMax, seg.HasEvents = tmin, tmax, true
	}

	if err := r.Rotate(seg.Path); err != nil {
		return Segment{}, err
	}
	if _, err := i.Register(seg); err != nil {
		return Segment{}, err
	}
	return seg, nil
}

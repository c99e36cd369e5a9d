// Precomputed demand surge grid: immutable per-generation snapshots keyed by
// (location, time bucket).
package surge

import (
	"time"

	"glide/internal/types"
)

// NeutralFactor is served for any lookup outside the populated grid.
const NeutralFactor = 1.0

type cellKey struct {
	Location types.ID
	Bucket   int64 // unix seconds of the floored bucket start
}

// GridCell is one (location, time-bucket) coordinate of a generation.
type GridCell struct {
	LocationID types.ID
	Bucket     time.Time
	Factor     float64
	ComputedAt time.Time
}

// FloorBucket floors a lookup timestamp to the grid's bucket granularity.
func FloorBucket(t time.Time, width time.Duration) time.Time {
	return t.UTC().Truncate(width)
}

// Clamp bounds a surge factor to [min, max]. Applied at write time only;
// reads serve stored values as-is.
func Clamp(f, min, max float64) float64 {
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

// Shrink pulls a factor toward neutral proportional to (1 - confidence).
// A fully confident prediction passes through; a zero-confidence one collapses
// to 1.0. Tunable policy, not a contract.
func Shrink(f, confidence float64) float64 {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return NeutralFactor + confidence*(f-NeutralFactor)
}

// Snapshot is one complete grid generation. It is immutable after Build and
// safe for concurrent readers; a new generation replaces it wholesale.
type Snapshot struct {
	Generation  int64
	ComputedAt  time.Time
	BucketWidth time.Duration
	cells       map[cellKey]float64
}

// Lookup returns the stored factor for (location, floored time) and whether
// the cell is covered by this generation.
func (s *Snapshot) Lookup(locationID types.ID, at time.Time) (float64, bool) {
	if s == nil || len(s.cells) == 0 {
		return NeutralFactor, false
	}
	bucket := FloorBucket(at, s.BucketWidth)
	f, ok := s.cells[cellKey{Location: locationID, Bucket: bucket.Unix()}]
	if !ok {
		return NeutralFactor, false
	}
	return f, true
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cells)
}

// Cells returns the generation's contents for persistence.
func (s *Snapshot) Cells() []GridCell {
	out := make([]GridCell, 0, len(s.cells))
	for k, f := range s.cells {
		out = append(out, GridCell{
			LocationID: k.Location,
			Bucket:     time.Unix(k.Bucket, 0).UTC(),
			Factor:     f,
			ComputedAt: s.ComputedAt,
		})
	}
	return out
}

// Builder accumulates the next generation in an isolated staging area.
type Builder struct {
	snapshot *Snapshot
}

func NewBuilder(generation int64, computedAt time.Time, bucketWidth time.Duration) *Builder {
	return &Builder{snapshot: &Snapshot{
		Generation:  generation,
		ComputedAt:  computedAt,
		BucketWidth: bucketWidth,
		cells:       make(map[cellKey]float64),
	}}
}

func (b *Builder) Put(locationID types.ID, bucket time.Time, factor float64) {
	floored := FloorBucket(bucket, b.snapshot.BucketWidth)
	b.snapshot.cells[cellKey{Location: locationID, Bucket: floored.Unix()}] = factor
}

func (b *Builder) Build() *Snapshot {
	return b.snapshot
}

package surge

import (
	"testing"
	"time"

	"glide/internal/types"
)

func TestFloorBucket(t *testing.T) {
	width := 15 * time.Minute
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{
			time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2026, 8, 20, 14, 7, 31, 0, time.UTC),
			time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2026, 8, 20, 14, 29, 59, 0, time.UTC),
			time.Date(2026, 8, 20, 14, 15, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		if got := FloorBucket(tt.in, width); !got.Equal(tt.want) {
			t.Errorf("FloorBucket(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1, 0.5},
		{0.5, 0.5},
		{1.7, 1.7},
		{3.0, 3.0},
		{9.9, 3.0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in, 0.5, 3.0); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShrink(t *testing.T) {
	tests := []struct {
		name       string
		factor     float64
		confidence float64
		want       float64
	}{
		{"full confidence passes through", 2.0, 1.0, 2.0},
		{"half confidence halves the deviation", 2.0, 0.5, 1.5},
		{"zero confidence collapses to neutral", 2.0, 0.0, 1.0},
		{"works below neutral too", 0.6, 0.5, 0.8},
		{"confidence clamped to [0,1]", 2.0, 1.4, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shrink(tt.factor, tt.confidence); got != tt.want {
				t.Fatalf("Shrink(%v, %v) = %v, want %v", tt.factor, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestSnapshotLookup(t *testing.T) {
	width := 15 * time.Minute
	at := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)

	b := NewBuilder(1, at, width)
	b.Put("bay_42", at, 1.3)
	snap := b.Build()

	// Any timestamp inside the bucket resolves to the same cell.
	for _, offset := range []time.Duration{0, time.Minute, 14*time.Minute + 59*time.Second} {
		got, ok := snap.Lookup("bay_42", at.Add(offset))
		if !ok || got != 1.3 {
			t.Fatalf("Lookup(+%v) = %v, %v; want 1.3, true", offset, got, ok)
		}
	}

	// Outside coverage or horizon: neutral, never an error.
	tests := []struct {
		name     string
		location string
		at       time.Time
	}{
		{"unknown location", "bay_99", at},
		{"beyond horizon", "bay_42", at.Add(time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snap.Lookup(types.ID(tt.location), tt.at)
			if ok || got != NeutralFactor {
				t.Fatalf("Lookup = %v, %v; want %v, false", got, ok, NeutralFactor)
			}
		})
	}

	// Nil snapshot (nothing published yet) is also a neutral miss.
	var none *Snapshot
	if got, ok := none.Lookup("bay_42", at); ok || got != NeutralFactor {
		t.Fatalf("nil snapshot Lookup = %v, %v; want %v, false", got, ok, NeutralFactor)
	}
}

// Surge service: pure snapshot lookup. This path never triggers inference;
// coverage gaps and horizon overruns serve the neutral factor by design.
package surge

import (
	"context"
	"time"

	"glide/internal/metrics"
	"glide/internal/types"
)

type SnapshotSource interface {
	Current() *Snapshot
}

type Service struct {
	store   SnapshotSource
	metrics *metrics.Metrics
}

func NewService(store SnapshotSource, m *metrics.Metrics) *Service {
	return &Service{store: store, metrics: m}
}

// GetFactor returns the surge factor for a location at a point in time, and
// whether the grid covered it. Misses are neutral, never an error.
func (s *Service) GetFactor(_ context.Context, locationID types.ID, at time.Time) (float64, bool) {
	factor, ok := s.store.Current().Lookup(locationID, at)
	if ok {
		s.metrics.GridHits.Inc()
		return factor, true
	}
	s.metrics.GridMisses.Inc()
	return NeutralFactor, false
}

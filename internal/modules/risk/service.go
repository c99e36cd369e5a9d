// Risk service implements the tiered lookup: entity cache first, live
// inference with write-through on miss, neutral-degraded on failure.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glide/internal/config"
	"glide/internal/metrics"
	"glide/internal/modules/prediction"
	"glide/internal/types"
)

type Cache interface {
	Get(ctx context.Context, id types.ID) (CachedPrediction, error)
	Set(ctx context.Context, p CachedPrediction) error
}

type Service struct {
	cache   Cache
	source  prediction.Source
	cfg     config.RiskConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(cache Cache, source prediction.Source, cfg config.RiskConfig, m *metrics.Metrics) *Service {
	return &Service{
		cache:   cache,
		source:  source,
		cfg:     cfg,
		metrics: m,
		logger:  log.With().Str("component", "risk_service").Logger(),
		now:     time.Now,
	}
}

// GetMultiplier never returns an error: every failure on this path is absorbed
// into the neutral multiplier with Degraded set, so a price request can always
// be composed.
func (s *Service) GetMultiplier(ctx context.Context, entityID types.ID) Lookup {
	now := s.now()

	cached, err := s.cache.Get(ctx, entityID)
	if err == nil && !cached.Expired(now) {
		s.metrics.CacheHits.WithLabelValues(string(prediction.KindRisk)).Inc()
		return Lookup{
			Multiplier:   cached.Value,
			ModelVersion: cached.ModelVersion,
			Source:       SourceCacheHit,
		}
	}

	reason := "absent"
	switch {
	case err == nil:
		reason = "expired"
	case errors.Is(err, ErrCacheUnavailable):
		reason = "unavailable"
	}
	s.metrics.CacheMisses.WithLabelValues(string(prediction.KindRisk), reason).Inc()

	// Single synchronous blocking point on the per-entity path; carries its
	// own budget, shorter than the aggregator's overall deadline.
	inferCtx, cancel := context.WithTimeout(ctx, s.cfg.InferenceBudget)
	defer cancel()

	start := s.now()
	res, err := s.source.Predict(inferCtx, prediction.EntityFeatures(entityID))
	s.metrics.InferenceLatency.WithLabelValues(string(prediction.KindRisk)).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.Degraded.WithLabelValues("risk").Inc()
		s.logger.Warn().Err(err).Str("entity_id", string(entityID)).Msg("fallback inference failed, serving neutral")
		return Lookup{Multiplier: NeutralMultiplier, Source: SourceDegraded, Degraded: true}
	}

	multiplier := MapScore(res.Value, s.cfg.MinMultiplier, s.cfg.MaxMultiplier)
	entry := CachedPrediction{
		EntityID:     entityID,
		Value:        multiplier,
		ModelVersion: res.ModelVersion,
		ComputedAt:   now,
		ExpiresAt:    now.Add(s.cfg.CacheTTL),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		// Write-through is best effort: the fresh value is still good.
		s.logger.Warn().Err(err).Str("entity_id", string(entityID)).Msg("write-through failed")
	}

	return Lookup{
		Multiplier:   multiplier,
		ModelVersion: res.ModelVersion,
		Source:       SourceInference,
	}
}

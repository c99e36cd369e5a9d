// Nightly materialization of risk predictions for the active entity
// population. Entities are processed independently: one failed inference never
// aborts the batch, and previously cached values keep serving until their own
// expiry.
package risk

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glide/internal/config"
	"glide/internal/metrics"
	"glide/internal/modules/prediction"
	"glide/internal/types"
)

const jobName = "risk_refresh"

type Population interface {
	ActiveEntities(ctx context.Context, window time.Duration) ([]types.ID, error)
}

type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// JobReport is the completion record exposed to the observability stack so
// cache staleness can be detected operationally.
type JobReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Processed int
	Failed    int
	Skipped   bool // another run held the lock
}

type RefreshJob struct {
	cache      Cache
	population Population
	source     prediction.Source
	lock       Locker
	cfg        config.RiskConfig
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

func NewRefreshJob(cache Cache, population Population, source prediction.Source, lock Locker, cfg config.RiskConfig, m *metrics.Metrics) *RefreshJob {
	return &RefreshJob{
		cache:      cache,
		population: population,
		source:     source,
		lock:       lock,
		cfg:        cfg,
		metrics:    m,
		logger:     log.With().Str("component", jobName).Logger(),
		now:        time.Now,
	}
}

// Run executes one refresh cycle. Idempotent: re-running overwrites entries
// with equivalent fresh ones.
func (j *RefreshJob) Run(ctx context.Context) (JobReport, error) {
	start := j.now()
	report := JobReport{StartedAt: start}

	ok, err := j.lock.TryAcquire(ctx)
	if err != nil {
		return report, err
	}
	if !ok {
		report.Skipped = true
		j.logger.Info().Msg("refresh already running, skipping")
		return report, nil
	}
	defer func() {
		_ = j.lock.Release(ctx)
	}()

	entities, err := j.population.ActiveEntities(ctx, j.cfg.ActiveWindow)
	if err != nil {
		// Fatal for this run only; existing cache entries keep serving.
		j.metrics.JobFailures.WithLabelValues(jobName).Inc()
		return report, err
	}

	for _, id := range entities {
		if ctx.Err() != nil {
			break
		}
		if err := j.refreshOne(ctx, id); err != nil {
			report.Failed++
			j.logger.Warn().Err(err).Str("entity_id", string(id)).Msg("entity refresh failed")
			continue
		}
		report.Processed++
	}

	report.Duration = j.now().Sub(start)
	j.metrics.JobDuration.WithLabelValues(jobName).Observe(report.Duration.Seconds())
	j.metrics.JobProcessed.WithLabelValues(jobName).Add(float64(report.Processed))
	j.metrics.JobFailures.WithLabelValues(jobName).Add(float64(report.Failed))
	j.logger.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("entity cache refresh complete")
	return report, nil
}

func (j *RefreshJob) refreshOne(ctx context.Context, id types.ID) error {
	res, err := j.source.Predict(ctx, prediction.EntityFeatures(id))
	if err != nil {
		return err
	}
	now := j.now()
	return j.cache.Set(ctx, CachedPrediction{
		EntityID:     id,
		Value:        MapScore(res.Value, j.cfg.MinMultiplier, j.cfg.MaxMultiplier),
		ModelVersion: res.ModelVersion,
		ComputedAt:   now,
		ExpiresAt:    now.Add(j.cfg.CacheTTL),
	})
}

// RunScheduler drives the nightly cycle until the context is cancelled.
func (j *RefreshJob) RunScheduler(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.Error().Err(err).Msg("refresh run failed")
			}
		}
	}
}

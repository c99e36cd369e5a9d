// Grid refresh job: every cycle recomputes the full locations × buckets
// cross-product over the forward horizon into a staging snapshot, then swaps
// it in atomically. A failed run leaves the previous generation serving.
package surge

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

const jobName = "surge_refresh"

// ErrNoOutput marks a run that produced no cells at all; the previous
// generation keeps serving and the failure is raised for alerting.
var ErrNoOutput = errors.New("grid refresh produced no cells")

type Coverage interface {
	ActiveLocations(ctx context.Context) ([]types.ID, error)
}

type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Archiver persists published generations for restart recovery. Persistence
// failures are logged but do not block the in-memory swap.
type Archiver interface {
	SaveGeneration(ctx context.Context, snap *Snapshot) error
}

type JobReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Generation int64
	Cells      int
	Failed     int
	Skipped    bool
}

type RefreshJob struct {
	store    *Store
	coverage Coverage
	source   prediction.Source
	archive  Archiver
	lock     Locker
	cfg      config.SurgeConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func NewRefreshJob(store *Store, coverage Coverage, source prediction.Source, archive Archiver, lock Locker, cfg config.SurgeConfig, m *metrics.Metrics) *RefreshJob {
	return &RefreshJob{
		store:    store,
		coverage: coverage,
		source:   source,
		archive:  archive,
		lock:     lock,
		cfg:      cfg,
		metrics:  m,
		logger:   log.With().Str("component", jobName).Logger(),
		now:      time.Now,
	}
}

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

	locations, err := j.coverage.ActiveLocations(ctx)
	if err != nil {
		j.metrics.JobFailures.WithLabelValues(jobName).Inc()
		return report, err
	}

	generation := j.nextGeneration()
	builder := NewBuilder(generation, start, j.cfg.BucketWidth)

	first := FloorBucket(start, j.cfg.BucketWidth)
	for _, loc := range locations {
		for bucket := first; bucket.Before(start.Add(j.cfg.Horizon)); bucket = bucket.Add(j.cfg.BucketWidth) {
			if ctx.Err() != nil {
				j.metrics.JobFailures.WithLabelValues(jobName).Inc()
				return report, ctx.Err()
			}
			res, err := j.source.Predict(ctx, prediction.CellFeatures(loc, bucket))
			if err != nil {
				report.Failed++
				continue
			}
			factor := Clamp(Shrink(res.Value, res.Confidence), j.cfg.MinFactor, j.cfg.MaxFactor)
			builder.Put(loc, bucket, factor)
			report.Cells++
		}
	}

	report.Duration = j.now().Sub(start)
	j.metrics.JobDuration.WithLabelValues(jobName).Observe(report.Duration.Seconds())
	j.metrics.JobFailures.WithLabelValues(jobName).Add(float64(report.Failed))

	if report.Cells == 0 {
		// Nothing usable was produced; keep serving generation N.
		return report, ErrNoOutput
	}

	snap := builder.Build()
	if j.archive != nil {
		if err := j.archive.SaveGeneration(ctx, snap); err != nil {
			j.logger.Warn().Err(err).Int64("generation", generation).Msg("generation persistence failed")
		}
	}
	j.store.Swap(snap)

	report.Generation = generation
	j.metrics.JobProcessed.WithLabelValues(jobName).Add(float64(report.Cells))
	j.logger.Info().
		Int64("generation", generation).
		Int("cells", report.Cells).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("surge grid published")
	return report, nil
}

func (j *RefreshJob) nextGeneration() int64 {
	if cur := j.store.Current(); cur != nil {
		return cur.Generation + 1
	}
	return j.now().Unix()
}

// RunScheduler recomputes the grid on its fixed cadence, independently of the
// nightly entity refresh, until the context is cancelled.
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

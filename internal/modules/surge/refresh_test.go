package surge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"glide/internal/config"
	"glide/internal/metrics"
	"glide/internal/modules/prediction"
	"glide/internal/types"
)

type fakeCoverage struct {
	ids []types.ID
	err error
}

func (c *fakeCoverage) ActiveLocations(context.Context) ([]types.ID, error) {
	return c.ids, c.err
}

type fakeLock struct {
	held bool
}

func (l *fakeLock) TryAcquire(context.Context) (bool, error) { return !l.held, nil }
func (l *fakeLock) Release(context.Context) error            { return nil }

type fakeDemandSource struct {
	mu      sync.Mutex
	calls   int
	value   float64
	conf    float64
	err     error
	failFor map[types.ID]bool
}

func (s *fakeDemandSource) Kind() prediction.Kind { return prediction.KindDemand }

func (s *fakeDemandSource) Predict(_ context.Context, f prediction.Features) (prediction.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return prediction.Result{}, s.err
	}
	if s.failFor != nil && s.failFor[f.LocationID] {
		return prediction.Result{}, prediction.ErrUnavailable
	}
	return prediction.Result{Value: s.value, ModelVersion: "demand-v2", Confidence: s.conf}, nil
}

func testSurgeConfig() config.SurgeConfig {
	return config.SurgeConfig{
		BucketWidth: 15 * time.Minute,
		Horizon:     2 * time.Hour,
		MinFactor:   0.5,
		MaxFactor:   3.0,
	}
}

func TestRefreshJob_PublishesFullCrossProduct(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	store := NewStore()
	source := &fakeDemandSource{value: 1.3, conf: 1.0}

	job := NewRefreshJob(store, &fakeCoverage{ids: []types.ID{"bay_41", "bay_42"}}, source, nil, &fakeLock{}, testSurgeConfig(), metrics.NewNop())
	job.now = func() time.Time { return now }

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 2 locations × 8 buckets over a 2h horizon at 15m width.
	if report.Cells != 16 {
		t.Fatalf("cells = %d, want 16", report.Cells)
	}
	if report.Failed != 0 {
		t.Fatalf("failed = %d, want 0", report.Failed)
	}

	got, ok := store.Current().Lookup("bay_42", time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC))
	if !ok || got != 1.3 {
		t.Fatalf("Lookup = %v, %v; want 1.3, true", got, ok)
	}
	// The last bucket of the horizon is covered too.
	got, ok = store.Current().Lookup("bay_41", now.Add(2*time.Hour-time.Minute))
	if !ok || got != 1.3 {
		t.Fatalf("horizon-edge Lookup = %v, %v; want 1.3, true", got, ok)
	}
}

func TestRefreshJob_ClampsAndShrinksAtWriteTime(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		conf  float64
		want  float64
	}{
		{"clamped to max", 5.0, 1.0, 3.0},
		{"clamped to min", 0.1, 1.0, 0.5},
		{"low confidence shrinks toward neutral", 2.0, 0.5, 1.5},
		{"shrink applies before clamp", 9.0, 0.2, 2.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
			store := NewStore()
			source := &fakeDemandSource{value: tt.value, conf: tt.conf}
			cfg := testSurgeConfig()
			cfg.Horizon = 15 * time.Minute // one bucket

			job := NewRefreshJob(store, &fakeCoverage{ids: []types.ID{"bay_1"}}, source, nil, &fakeLock{}, cfg, metrics.NewNop())
			job.now = func() time.Time { return now }

			if _, err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			got, ok := store.Current().Lookup("bay_1", now)
			if !ok {
				t.Fatal("cell not published")
			}
			if got != tt.want {
				t.Fatalf("factor = %v, want %v", got, tt.want)
			}
			if got < cfg.MinFactor || got > cfg.MaxFactor {
				t.Fatalf("factor %v outside [%v, %v]", got, cfg.MinFactor, cfg.MaxFactor)
			}
		})
	}
}

func TestRefreshJob_FailedRunKeepsPreviousGeneration(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	store := NewStore()

	previous := NewBuilder(7, now.Add(-15*time.Minute), 15*time.Minute)
	previous.Put("bay_42", now, 1.8)
	store.Swap(previous.Build())

	source := &fakeDemandSource{err: prediction.ErrUnavailable}
	job := NewRefreshJob(store, &fakeCoverage{ids: []types.ID{"bay_42"}}, source, nil, &fakeLock{}, testSurgeConfig(), metrics.NewNop())
	job.now = func() time.Time { return now }

	_, err := job.Run(context.Background())
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want ErrNoOutput", err)
	}

	got, ok := store.Current().Lookup("bay_42", now)
	if !ok || got != 1.8 {
		t.Fatalf("previous generation disturbed: %v, %v", got, ok)
	}
	if store.Current().Generation != 7 {
		t.Fatalf("generation = %d, want 7", store.Current().Generation)
	}
}

func TestRefreshJob_PartialFailurePublishesSurvivingCells(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	store := NewStore()
	cfg := testSurgeConfig()
	cfg.Horizon = 30 * time.Minute // two buckets per location

	source := &fakeDemandSource{value: 1.4, conf: 1.0, failFor: map[types.ID]bool{"bay_2": true}}
	job := NewRefreshJob(store, &fakeCoverage{ids: []types.ID{"bay_1", "bay_2"}}, source, nil, &fakeLock{}, cfg, metrics.NewNop())
	job.now = func() time.Time { return now }

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Cells != 2 || report.Failed != 2 {
		t.Fatalf("cells = %d failed = %d, want 2 and 2", report.Cells, report.Failed)
	}

	// Failed cells are absent and read as neutral misses.
	got, ok := store.Current().Lookup("bay_2", now)
	if ok || got != NeutralFactor {
		t.Fatalf("failed cell Lookup = %v, %v; want neutral miss", got, ok)
	}
}

func TestService_MissesNeverTriggerInference(t *testing.T) {
	store := NewStore() // nothing published yet
	svc := NewService(store, metrics.NewNop())

	got, covered := svc.GetFactor(context.Background(), "bay_42", time.Now())
	if covered || got != NeutralFactor {
		t.Fatalf("GetFactor = %v, %v; want neutral miss", got, covered)
	}
}

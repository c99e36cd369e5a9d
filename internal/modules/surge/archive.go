// Generation persistence backed by PostgreSQL, so a restarted instance serves
// the last published grid instead of an empty one. The serving path never
// touches the database.
package surge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"glide/internal/types"
)

type GenerationStore struct {
	db *pgxpool.Pool
}

func NewGenerationStore(db *pgxpool.Pool) *GenerationStore {
	return &GenerationStore{db: db}
}

// SaveGeneration writes a full generation and flips the current-generation
// marker in one transaction. Older generations beyond the previous one are
// pruned.
func (s *GenerationStore) SaveGeneration(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin generation save: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range snap.Cells() {
		batch.Queue(`
			INSERT INTO surge_grid (generation, location_id, bucket, factor, computed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			snap.Generation, string(c.LocationID), c.Bucket, c.Factor, c.ComputedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing generation %d: %w", snap.Generation, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO surge_grid_meta (id, current_generation, bucket_width_seconds, computed_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET current_generation = $1, bucket_width_seconds = $2, computed_at = $3`,
		snap.Generation, int64(snap.BucketWidth.Seconds()), snap.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("flipping current generation: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM surge_grid WHERE generation < $1 - 1`, snap.Generation)
	if err != nil {
		return fmt.Errorf("pruning old generations: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadCurrent reads the persisted current generation, or nil when none has
// been published yet.
func (s *GenerationStore) LoadCurrent(ctx context.Context) (*Snapshot, error) {
	var generation, widthSeconds int64
	var computedAt time.Time
	err := s.db.QueryRow(ctx, `
		SELECT current_generation, bucket_width_seconds, computed_at
		FROM surge_grid_meta WHERE id = 1`,
	).Scan(&generation, &widthSeconds, &computedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading grid meta: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT location_id, bucket, factor
		FROM surge_grid WHERE generation = $1`, generation,
	)
	if err != nil {
		return nil, fmt.Errorf("reading generation %d: %w", generation, err)
	}
	defer rows.Close()

	builder := NewBuilder(generation, computedAt, time.Duration(widthSeconds)*time.Second)
	for rows.Next() {
		var locationID string
		var bucket time.Time
		var factor float64
		if err := rows.Scan(&locationID, &bucket, &factor); err != nil {
			return nil, err
		}
		builder.Put(types.ID(locationID), bucket, factor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// Active-entity population query for the nightly refresh job.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glide/internal/types"
)

type PopulationStore struct {
	db *pgxpool.Pool
}

func NewPopulationStore(db *pgxpool.Pool) *PopulationStore {
	return &PopulationStore{db: db}
}

// ActiveEntities lists customers active within the rolling window, the
// population the nightly job materializes predictions for.
func (s *PopulationStore) ActiveEntities(ctx context.Context, window time.Duration) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM customers
		WHERE last_active_at > NOW() - make_interval(secs => $1)
		ORDER BY id`,
		window.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying active entities: %w", err)
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

// Coverage query: the set of locations each grid generation is computed for.
package surge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"glide/internal/types"
)

type CoverageStore struct {
	db *pgxpool.Pool
}

func NewCoverageStore(db *pgxpool.Pool) *CoverageStore {
	return &CoverageStore{db: db}
}

func (s *CoverageStore) ActiveLocations(ctx context.Context) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM locations WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying covered locations: %w", err)
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

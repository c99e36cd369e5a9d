// Base rate store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetBaseRate(ctx context.Context, vehicleType string) (BaseRate, error) {
	row := s.db.QueryRow(ctx, `
		SELECT vehicle_type, per_minute, vehicle_factor, currency
		FROM base_rates
		WHERE vehicle_type = $1`, vehicleType,
	)
	var r BaseRate
	err := row.Scan(&r.VehicleType, &r.PerMinute, &r.VehicleFactor, &r.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return BaseRate{}, ErrUnknownVehicleType
	}
	if err != nil {
		return BaseRate{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	return r, nil
}

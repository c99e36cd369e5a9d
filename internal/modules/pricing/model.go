// Price aggregation types: per-request components composed into a quote.
package pricing

import (
	"errors"
	"time"

	"glide/internal/types"
)

var (
	ErrBadRequest         = errors.New("bad pricing request")
	ErrUnknownVehicleType = errors.New("unknown vehicle type")
	ErrRateUnavailable    = errors.New("base rate unavailable")
)

type PriceRequest struct {
	EntityID         types.ID
	LocationID       types.ID
	At               time.Time
	VehicleType      string
	EstimatedMinutes float64
}

// BaseRate is the externally owned starting point of a price: a per-minute
// rate plus a vehicle-type factor. Its retrieval failing is fatal to the
// request, unlike the prediction components.
type BaseRate struct {
	VehicleType   string
	PerMinute     float64
	VehicleFactor float64
	Currency      string
}

// Components is the transient per-request aggregate; it never outlives the
// request/response cycle.
type Components struct {
	BasePrice        float64 `json:"base_price"`
	RiskMultiplier   float64 `json:"risk_multiplier"`
	DemandMultiplier float64 `json:"demand_multiplier"`
	VehicleFactor    float64 `json:"vehicle_type_factor"`
	FinalPrice       float64 `json:"final_price"`
}

type Quote struct {
	ID         types.ID
	Components Components
	Total      types.Money // final per-minute price × estimated duration
	Degraded   bool
	CreatedAt  time.Time
}

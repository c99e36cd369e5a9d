// Price aggregator: composes base rate, risk multiplier, demand surge, and
// vehicle factor under a hard deadline. Prediction failures degrade to
// neutral; only base-rate retrieval is fatal.
package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glide/internal/config"
	"glide/internal/metrics"
	"glide/internal/modules/risk"
	"glide/internal/modules/surge"
	"glide/internal/types"
)

type RateSource interface {
	GetBaseRate(ctx context.Context, vehicleType string) (BaseRate, error)
}

type RiskSource interface {
	GetMultiplier(ctx context.Context, entityID types.ID) risk.Lookup
}

type SurgeSource interface {
	GetFactor(ctx context.Context, locationID types.ID, at time.Time) (float64, bool)
}

type Service struct {
	rates   RateSource
	risk    RiskSource
	surge   SurgeSource
	cfg     config.PricingConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(rates RateSource, riskSvc RiskSource, surgeSvc SurgeSource, cfg config.PricingConfig, m *metrics.Metrics) *Service {
	return &Service{
		rates:   rates,
		risk:    riskSvc,
		surge:   surgeSvc,
		cfg:     cfg,
		metrics: m,
		logger:  log.With().Str("component", "price_aggregator").Logger(),
		now:     time.Now,
	}
}

// ComputePrice issues the two prediction lookups concurrently and waits for
// both or the overall deadline, whichever comes first. Components that do not
// resolve in time are defaulted to neutral and the quote marked degraded.
func (s *Service) ComputePrice(ctx context.Context, req PriceRequest) (Quote, error) {
	if req.EntityID == "" || req.LocationID == "" || req.VehicleType == "" {
		return Quote{}, ErrBadRequest
	}
	at := req.At
	if at.IsZero() {
		at = s.now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	rate, err := s.rates.GetBaseRate(ctx, req.VehicleType)
	if err != nil {
		return Quote{}, err
	}
	if rate.Currency == "" {
		rate.Currency = s.cfg.DefaultCurrency
	}

	riskCh := make(chan risk.Lookup, 1)
	surgeCh := make(chan float64, 1)
	go func() {
		lctx, lcancel := context.WithTimeout(ctx, s.cfg.LookupBudget)
		defer lcancel()
		riskCh <- s.risk.GetMultiplier(lctx, req.EntityID)
	}()
	go func() {
		lctx, lcancel := context.WithTimeout(ctx, s.cfg.LookupBudget)
		defer lcancel()
		factor, _ := s.surge.GetFactor(lctx, req.LocationID, at)
		surgeCh <- factor
	}()

	components := Components{
		BasePrice:        rate.PerMinute,
		RiskMultiplier:   risk.NeutralMultiplier,
		DemandMultiplier: surge.NeutralFactor,
		VehicleFactor:    rate.VehicleFactor,
	}
	degraded := false

	for pending := 2; pending > 0; {
		select {
		case l := <-riskCh:
			riskCh = nil
			pending--
			components.RiskMultiplier = l.Multiplier
			if l.Degraded {
				degraded = true
			}
		case f := <-surgeCh:
			surgeCh = nil
			pending--
			components.DemandMultiplier = f
		case <-ctx.Done():
			// Hard deadline: whatever has not resolved stays neutral.
			degraded = true
			s.metrics.Degraded.WithLabelValues("deadline").Inc()
			pending = 0
		}
	}

	components.FinalPrice = components.BasePrice *
		components.RiskMultiplier *
		components.DemandMultiplier *
		components.VehicleFactor

	quote := Quote{
		ID:         types.ID(uuid.NewString()),
		Components: components,
		Degraded:   degraded,
		CreatedAt:  s.now(),
	}
	if req.EstimatedMinutes > 0 {
		quote.Total = types.Cents(components.FinalPrice*req.EstimatedMinutes, rate.Currency)
	} else {
		quote.Total = types.Cents(components.FinalPrice, rate.Currency)
	}

	s.logger.Info().
		Str("entity_id", string(req.EntityID)).
		Str("location_id", string(req.LocationID)).
		Float64("base_price", components.BasePrice).
		Float64("risk_multiplier", components.RiskMultiplier).
		Float64("demand_multiplier", components.DemandMultiplier).
		Float64("vehicle_factor", components.VehicleFactor).
		Float64("final_price", components.FinalPrice).
		Bool("degraded", degraded).
		Msg("price computed")
	return quote, nil
}

// Cached per-customer risk prediction and the score-to-multiplier mapping.
package risk

import (
	"errors"
	"time"

	"glide/internal/types"
)

var (
	ErrNotCached        = errors.New("entity not cached")
	ErrCacheUnavailable = errors.New("entity cache unavailable")
)

// LookupSource records how a multiplier was obtained, for telemetry and the
// per-request log.
type LookupSource string

const (
	SourceCacheHit  LookupSource = "cache_hit"
	SourceInference LookupSource = "cache_miss_inference"
	SourceDegraded  LookupSource = "degraded_neutral"
)

// NeutralMultiplier is the no-adjustment value substituted when no usable
// prediction is available.
const NeutralMultiplier = 1.0

// CachedPrediction is the entity-cache entry. A record with ExpiresAt <= now
// is treated as absent even if physically present (lazy expiry).
type CachedPrediction struct {
	EntityID     types.ID  `json:"entity_id"`
	Value        float64   `json:"value"`
	ModelVersion string    `json:"model_version"`
	ComputedAt   time.Time `json:"computed_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (p CachedPrediction) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// Lookup is the result of a tiered multiplier lookup.
type Lookup struct {
	Multiplier   float64
	ModelVersion string
	Source       LookupSource
	Degraded     bool
}

// MapScore converts a raw model score (a probability in [0,1]) into a bounded
// price multiplier by linear interpolation between min and max. Monotonic by
// construction; out-of-range scores clamp to the nearest bound.
func MapScore(score, min, max float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return min + score*(max-min)
}

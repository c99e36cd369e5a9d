// Prediction source contract shared by the risk and demand models.
package prediction

import (
	"context"
	"errors"
	"time"

	"glide/internal/types"
)

type Kind string

const (
	KindRisk   Kind = "risk"
	KindDemand Kind = "demand"
)

var (
	ErrUnavailable = errors.New("prediction source unavailable")
	ErrBadScore    = errors.New("prediction source returned an unusable score")
)

// Features identifies the subject of a prediction. The online feature store is
// fronted by the model server, so callers address predictions by subject and
// the server joins the feature vector itself.
type Features struct {
	EntityID   types.ID  `json:"entity_id,omitempty"`
	LocationID types.ID  `json:"location_id,omitempty"`
	Bucket     time.Time `json:"bucket,omitempty"`
}

func EntityFeatures(id types.ID) Features {
	return Features{EntityID: id}
}

func CellFeatures(locationID types.ID, bucket time.Time) Features {
	return Features{LocationID: locationID, Bucket: bucket}
}

// Result is the ephemeral output of one inference call. It is never persisted
// except as the payload written into a cache entry or grid cell.
type Result struct {
	Value        float64 `json:"value"`
	ModelVersion string  `json:"model_version"`
	Confidence   float64 `json:"confidence"`
}

// Source computes a fresh scalar prediction for a subject. Implementations are
// slow (tens of milliseconds) and sit behind caches on the serving path.
type Source interface {
	Kind() Kind
	Predict(ctx context.Context, f Features) (Result, error)
}

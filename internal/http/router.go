// HTTP server; registers routes and delegates to module services.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"glide/internal/http/middleware"
	"glide/internal/modules/pricing"
	"glide/internal/modules/risk"
	"glide/internal/types"
)

type RiskService interface {
	GetMultiplier(ctx context.Context, entityID types.ID) risk.Lookup
}

type SurgeService interface {
	GetFactor(ctx context.Context, locationID types.ID, at time.Time) (float64, bool)
}

type PricingService interface {
	ComputePrice(ctx context.Context, req pricing.PriceRequest) (pricing.Quote, error)
}

type ServerDeps struct {
	Pricing  PricingService
	Risk     RiskService
	Surge    SurgeService
	Registry *prometheus.Registry
}

type Server struct {
	pricing  PricingService
	risk     RiskService
	surge    SurgeService
	registry *prometheus.Registry
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		pricing:  deps.Pricing,
		risk:     deps.Risk,
		surge:    deps.Surge,
		registry: deps.Registry,
	}
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	api := r.Group("/api/v1")
	api.POST("/quotes", s.HandleQuote)
	api.GET("/surge", s.HandleSurge)
	api.GET("/risk/:entity", s.HandleRisk)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return r
}

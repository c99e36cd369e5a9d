// Request handlers for quotes, surge lookups, and risk lookups.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"glide/internal/modules/pricing"
	"glide/internal/types"
)

type quoteRequest struct {
	EntityID         string  `json:"entity_id" binding:"required"`
	LocationID       string  `json:"location_id" binding:"required"`
	At               string  `json:"at"`
	VehicleType      string  `json:"vehicle_type" binding:"required"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

type quoteResponse struct {
	QuoteID    string             `json:"quote_id"`
	Components pricing.Components `json:"components"`
	Total      int64              `json:"total_cents"`
	Currency   string             `json:"currency"`
	Degraded   bool               `json:"degraded"`
}

func (s *Server) HandleQuote(c *gin.Context) {
	var body quoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	var at time.Time
	if body.At != "" {
		parsed, err := time.Parse(time.RFC3339, body.At)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid at timestamp")
			return
		}
		at = parsed
	}

	quote, err := s.pricing.ComputePrice(c.Request.Context(), pricing.PriceRequest{
		EntityID:         types.ID(body.EntityID),
		LocationID:       types.ID(body.LocationID),
		At:               at,
		VehicleType:      body.VehicleType,
		EstimatedMinutes: body.EstimatedMinutes,
	})
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		QuoteID:    string(quote.ID),
		Components: quote.Components,
		Total:      quote.Total.Amount,
		Currency:   quote.Total.Currency,
		Degraded:   quote.Degraded,
	})
}

func (s *Server) HandleSurge(c *gin.Context) {
	locationID := c.Query("location_id")
	if locationID == "" {
		writeError(c, http.StatusBadRequest, "location_id is required")
		return
	}
	at := time.Now()
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid at timestamp")
			return
		}
		at = parsed
	}

	factor, covered := s.surge.GetFactor(c.Request.Context(), types.ID(locationID), at)
	c.JSON(http.StatusOK, gin.H{
		"location_id":  locationID,
		"surge_factor": factor,
		"covered":      covered,
	})
}

func (s *Server) HandleRisk(c *gin.Context) {
	entityID := c.Param("entity")
	if entityID == "" {
		writeError(c, http.StatusBadRequest, "entity id is required")
		return
	}
	lookup := s.risk.GetMultiplier(c.Request.Context(), types.ID(entityID))
	c.JSON(http.StatusOK, gin.H{
		"entity_id":  entityID,
		"multiplier": lookup.Multiplier,
		"source":     lookup.Source,
		"degraded":   lookup.Degraded,
	})
}

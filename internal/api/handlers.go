// Package api exposes the serving path over HTTP: scoring and pricing
// against the immutable assets loaded at process start. The transport
// is thin glue; all semantics live in the scoring and pricing packages.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/pricing"
	"telematics-risk-lab/internal/scoring"
)

// Handler serves scoring and pricing requests. A nil serving context
// means assets failed to load at start: every request answers 503
// rather than serving partial state.
type Handler struct {
	serving *scoring.ServingContext
	pricer  *pricing.Calculator
}

// NewHandler creates a new Handler.
func NewHandler(serving *scoring.ServingContext, pricer *pricing.Calculator) *Handler {
	return &Handler{serving: serving, pricer: pricer}
}

// RegisterRoutes sets up the protected scoring/pricing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/score", h.ScoreDriver)
	r.POST("/price", h.CalculatePrice)
}

// BearerAuth rejects requests whose Authorization header does not carry
// the expected bearer token.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		credentials, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || credentials != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Next()
	}
}

type scoreRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

type priceRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
	// Pointer so an explicit base_premium of 0 passes the required check.
	BasePremium *float64 `json:"base_premium" binding:"required"`
}

// ScoreDriver handles POST /score: risk probability plus peer-relative
// top-feature explanation for one driver.
func (h *Handler) ScoreDriver(c *gin.Context) {
	start := time.Now()
	defer func() { requestDuration.Observe(time.Since(start).Seconds()) }()

	if h.serving == nil {
		requestFailures.WithLabelValues("assets_unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assets not loaded"})
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestFailures.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver_id required"})
		return
	}

	result, err := h.serving.Score(c.Request.Context(), req.DriverID)
	if err != nil {
		h.writeError(c, req.DriverID, err)
		return
	}

	scoreRequests.Inc()
	log.Info().Str("driver_id", req.DriverID).Float64("risk_score", result.RiskScore).Msg("scoring request processed")
	c.JSON(http.StatusOK, result)
}

// CalculatePrice handles POST /price: bounded premium adjustment for
// one driver.
func (h *Handler) CalculatePrice(c *gin.Context) {
	start := time.Now()
	defer func() { requestDuration.Observe(time.Since(start).Seconds()) }()

	if h.serving == nil || h.pricer == nil {
		requestFailures.WithLabelValues("assets_unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assets not loaded"})
		return
	}

	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestFailures.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver_id and base_premium required"})
		return
	}

	result, err := h.pricer.Price(c.Request.Context(), req.DriverID, *req.BasePremium)
	if err != nil {
		h.writeError(c, req.DriverID, err)
		return
	}

	priceRequests.Inc()
	log.Info().
		Str("driver_id", req.DriverID).
		Float64("base_premium", *req.BasePremium).
		Float64("premium", result.Premium).
		Msg("pricing request processed")
	c.JSON(http.StatusOK, result)
}

// writeError maps domain errors to HTTP status codes with enough detail
// to identify the offending driver or config key.
func (h *Handler) writeError(c *gin.Context, driverID string, err error) {
	switch {
	case errors.Is(err, scoring.ErrDriverNotFound):
		requestFailures.WithLabelValues("driver_not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "driver " + driverID + " not found"})
	case errors.Is(err, scoring.ErrFeatureSetMismatch):
		requestFailures.WithLabelValues("feature_set_mismatch").Inc()
		log.Error().Err(err).Str("driver_id", driverID).Msg("feature set mismatch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, pricing.ErrConfiguration), errors.Is(err, pricing.ErrCalibrationUnavailable):
		requestFailures.WithLabelValues("pricing_config").Inc()
		log.Error().Err(err).Str("driver_id", driverID).Msg("pricing configuration error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		requestFailures.WithLabelValues("internal").Inc()
		log.Error().Err(err).Str("driver_id", driverID).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

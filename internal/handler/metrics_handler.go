package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes a dependency.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  http.Handler
	required map[string]ReadinessCheck
	optional map[string]ReadinessCheck
	timeout  time.Duration
}

// NewMetricsHandler constructs a metrics handler. A failing required check
// makes Ready return 503; a failing optional check only reports "degraded".
func NewMetricsHandler(metrics http.Handler, required, optional map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, required: required, optional: optional, timeout: 2 * time.Second}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs the dependency checks.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.required)+len(h.optional))
	state := "ready"
	for name, check := range h.optional {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			state = "degraded"
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	for name, check := range h.required {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			state = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"status": state, "checks": results})
}

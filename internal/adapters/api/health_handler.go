package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/ports"
)

// HealthResponse aggregates component health
type HealthResponse struct {
	Status     string                        `json:"status"`
	Components map[string]ports.HealthStatus `json:"components"`
}

// getHealth handles GET /api/health requests
func (s *HTTPServerAdapter) getHealth(c *gin.Context) {
	components := s.healthChecker.CheckAll(c.Request.Context())
	overall := overallStatus(components)

	code := http.StatusOK
	if overall == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{Status: overall, Components: components})
}

// overallStatus folds component statuses: any unhealthy wins, then degraded
func overallStatus(components map[string]ports.HealthStatus) string {
	overall := "healthy"
	for _, component := range components {
		switch component.Status {
		case "unhealthy":
			return "unhealthy"
		case "degraded":
			overall = "degraded"
		}
	}
	return overall
}

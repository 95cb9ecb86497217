package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"homeweather.app/pkg/errors"
)

// ProviderOrderRequest is the body of PUT /api/providers. An empty secondary
// disables fallback.
type ProviderOrderRequest struct {
	Primary   string `json:"primary" binding:"required,provider"`
	Secondary string `json:"secondary" binding:"omitempty,provider,nefield=Primary"`
}

// getProviders handles GET /api/providers requests
func (s *HTTPServerAdapter) getProviders(c *gin.Context) {
	c.JSON(http.StatusOK, s.aggregator.GetProviderInfo())
}

// setProviderOrder handles PUT /api/providers requests
func (s *HTTPServerAdapter) setProviderOrder(c *gin.Context) {
	if s.providerAdmin == nil {
		s.handleError(c, errors.NewUnavailableError("provider order cannot be changed"))
		return
	}

	var req ProviderOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	if err := s.providerAdmin.SetOrder(req.Primary, req.Secondary); err != nil {
		s.handleError(c, err)
		return
	}

	slog.Info("Provider order changed", "primary", req.Primary, "secondary", req.Secondary)
	c.JSON(http.StatusOK, s.aggregator.GetProviderInfo())
}

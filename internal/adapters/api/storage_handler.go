package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/ports"
)

type historyQuery struct {
	Location string `form:"location"`
	Days     int    `form:"days" binding:"omitempty,min=1,max=365"`
}

type exportQuery struct {
	Location string `form:"location"`
	Format   string `form:"format" binding:"omitempty,oneof=json csv"`
}

// MigrateRequest is the body of POST /api/storage/migrate
type MigrateRequest struct {
	Target string `json:"target" binding:"required,backend"`
}

// PruneResponse reports how many records a prune removed
type PruneResponse struct {
	Removed int `json:"removed"`
}

// getHistory handles GET /api/history requests
func (s *HTTPServerAdapter) getHistory(c *gin.Context) {
	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	records, err := s.storage.Query(c.Request.Context(), query.Location, query.Days)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// exportRecords handles GET /api/export requests as a file download
func (s *HTTPServerAdapter) exportRecords(c *gin.Context) {
	query := exportQuery{Format: string(ports.ExportJSON)}
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	format := ports.ExportFormat(query.Format)
	data, err := s.storage.ExportAll(c.Request.Context(), query.Location, format)
	if err != nil {
		s.handleError(c, err)
		return
	}

	contentType := "application/json"
	if format == ports.ExportCSV {
		contentType = "text/csv"
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="weather_export.%s"`, format))
	c.Data(http.StatusOK, contentType, data)
}

// getStorageStatus handles GET /api/storage requests
func (s *HTTPServerAdapter) getStorageStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.storage.Status(c.Request.Context()))
}

// migrateStorage handles POST /api/storage/migrate requests
func (s *HTTPServerAdapter) migrateStorage(c *gin.Context) {
	var req MigrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	slog.Info("Storage migration requested", "target", req.Target)

	// a client that disconnects must not abort the copy halfway
	report, err := s.storage.Migrate(context.WithoutCancel(c.Request.Context()), ports.BackendName(req.Target))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// pruneStorage handles POST /api/storage/prune requests
func (s *HTTPServerAdapter) pruneStorage(c *gin.Context) {
	removed, err := s.storage.ClearOldData(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PruneResponse{Removed: removed})
}

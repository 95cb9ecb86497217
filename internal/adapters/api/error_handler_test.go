package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"homeweather.app/pkg/errors"
)

func TestHTTPServerAdapter_HandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := &HTTPServerAdapter{}

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", errors.NewValidationError("location is required"), http.StatusBadRequest, "location is required"},
		{"not_found", errors.NewNotFoundError("no analytics for kyiv"), http.StatusNotFound, "no analytics for kyiv"},
		{"provider", errors.NewProviderError("weatherapi failed", nil), http.StatusServiceUnavailable, "Weather service unavailable, try again later"},
		{"all_providers_failed", errors.NewAllProvidersFailedError("all weather providers failed", fmt.Errorf("timeout")), http.StatusServiceUnavailable, "Weather service unavailable, try again later"},
		{"unavailable", errors.NewUnavailableError("remote backend is not configured"), http.StatusConflict, "remote backend is not configured"},
		{"migration", errors.NewMigrationError("failed to copy record 3 of 5", nil), http.StatusInternalServerError, "failed to copy record 3 of 5"},
		{"storage", errors.NewStorageError("disk full", nil), http.StatusInternalServerError, "Storage error"},
		{"configuration", errors.NewConfigurationError("bad config", nil), http.StatusInternalServerError, "Internal server error"},
		{"wrapped", fmt.Errorf("outer: %w", errors.NewNotFoundError("missing")), http.StatusNotFound, "missing"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", func(c *gin.Context) { server.handleError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantMessage, response.Error)
		})
	}
}

func TestBindingError(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/forecast?days=9", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "location is required")
	assert.Contains(t, response.Error, "days must be at most 3")

	w = ts.do(http.MethodGet, "/api/forecast?location=Kyiv&days=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Invalid request format", response.Error)
}

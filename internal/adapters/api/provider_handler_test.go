package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"homeweather.app/pkg/errors"
)

func TestProviderHandler(t *testing.T) {
	info := map[string]interface{}{"primary": "weatherapi", "secondary": "openweathermap", "fallback_enabled": true}

	t.Run("GetInfo", func(t *testing.T) {
		ts := newTestServer(t)
		ts.aggregator.On("GetProviderInfo").Return(info)

		w := ts.do(http.MethodGet, "/api/providers", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"fallback_enabled":true`)
	})

	t.Run("Swap", func(t *testing.T) {
		ts := newTestServer(t)
		ts.admin.On("SetOrder", "openweathermap", "weatherapi").Return(nil)
		ts.aggregator.On("GetProviderInfo").Return(info)

		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"openweathermap","secondary":"weatherapi"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DisableFallback", func(t *testing.T) {
		ts := newTestServer(t)
		ts.admin.On("SetOrder", "weatherapi", "").Return(nil)
		ts.aggregator.On("GetProviderInfo").Return(info)

		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"weatherapi"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"accuweather"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "primary is invalid")
	})

	t.Run("SameProviderTwice", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"weatherapi","secondary":"weatherapi"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ManagerRejects", func(t *testing.T) {
		ts := newTestServer(t)
		ts.admin.On("SetOrder", "weatherapi", "openweathermap").
			Return(errors.NewValidationError("unknown weather provider: weatherapi"))

		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"weatherapi","secondary":"openweathermap"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NoAdmin", func(t *testing.T) {
		ts := newTestServer(t, func(o *ServerOptions) { o.ProviderAdmin = nil })
		w := ts.do(http.MethodPut, "/api/providers", `{"primary":"weatherapi"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

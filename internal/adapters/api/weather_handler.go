package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/core/storage"
	"homeweather.app/internal/ports"
)

const defaultForecastDays = 3

type locationQuery struct {
	Location string `form:"location" binding:"required"`
}

type forecastQuery struct {
	Location string `form:"location" binding:"required"`
	Days     int    `form:"days" binding:"omitempty,min=1,max=3"`
}

type searchQuery struct {
	Q string `form:"q" binding:"required"`
}

// getWeather handles GET /api/weather requests
func (s *HTTPServerAdapter) getWeather(c *gin.Context) {
	var query locationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	slog.Debug("Getting weather", "location", query.Location)

	result, err := s.storage.GetWeatherData(c.Request.Context(), storage.WeatherRequest{
		Location:  query.Location,
		Freshness: s.config.Freshness,
	}, s.aggregator)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getForecast handles GET /api/forecast requests
func (s *HTTPServerAdapter) getForecast(c *gin.Context) {
	query := forecastQuery{Days: defaultForecastDays}
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	snapshot, err := s.aggregator.GetForecast(c.Request.Context(), query.Location, query.Days)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// searchLocations handles GET /api/search requests
func (s *HTTPServerAdapter) searchLocations(c *gin.Context) {
	var query searchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	if s.searcher == nil {
		c.JSON(http.StatusOK, []ports.LocationCandidate{})
		return
	}

	candidates, err := s.searcher.SearchLocations(c.Request.Context(), query.Q)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if candidates == nil {
		candidates = []ports.LocationCandidate{}
	}

	c.JSON(http.StatusOK, candidates)
}

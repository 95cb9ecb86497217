package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"homeweather.app/internal/core/analytics"
)

const defaultWindowDays = 7

type windowQuery struct {
	Location string `form:"location" binding:"required"`
	Days     int    `form:"days" binding:"omitempty,min=1,max=365"`
}

func (s *HTTPServerAdapter) bindWindow(c *gin.Context) (analytics.WindowRequest, bool) {
	query := windowQuery{Days: defaultWindowDays}
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return analytics.WindowRequest{}, false
	}
	return analytics.WindowRequest{Location: query.Location, Days: query.Days}, true
}

// getTemperatureAnalysis handles GET /api/analytics/temperature requests
func (s *HTTPServerAdapter) getTemperatureAnalysis(c *gin.Context) {
	request, ok := s.bindWindow(c)
	if !ok {
		return
	}

	result, err := s.analytics.TemperatureAnalysis(c.Request.Context(), request)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getCommonConditions handles GET /api/analytics/conditions requests
func (s *HTTPServerAdapter) getCommonConditions(c *gin.Context) {
	request, ok := s.bindWindow(c)
	if !ok {
		return
	}

	result, err := s.analytics.CommonConditions(c.Request.Context(), request)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getSummary handles GET /api/analytics/summary requests
func (s *HTTPServerAdapter) getSummary(c *gin.Context) {
	var query locationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, bindingError(err))
		return
	}

	record, err := s.analytics.Summary(c.Request.Context(), query.Location)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *HTTPServerAdapter) getLocations(c *gin.Context) {
	locations, err := s.analytics.Locations(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, locations)
}

package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// History bounds of an AnalyticsRecord; the oldest entries go first.
	MaxTemperatureHistory = 100
	MaxConditionHistory   = 50
	MaxAirQualityHistory  = 50

	topConditions  = 5
	trendThreshold = 1.0
	maxWindowDays  = 365
)

// Trend classifies a temperature series
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// TemperatureAnalysis summarizes the temperatures of a time window
type TemperatureAnalysis struct {
	Location   string  `json:"location"`
	Days       int     `json:"days"`
	Average    float64 `json:"average"`
	Minimum    float64 `json:"minimum"`
	Maximum    float64 `json:"maximum"`
	DataPoints int     `json:"dataPoints"`
	Trend      Trend   `json:"trend"`
}

// ConditionFrequency is one row of the common-conditions table
type ConditionFrequency struct {
	Condition  string `json:"condition"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// WindowRequest names a location and a look-back window in days
type WindowRequest struct {
	Location string
	Days     int
}

// IsValid validates the window request
func (r *WindowRequest) IsValid() error {
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("location cannot be empty")
	}
	if r.Days < 1 || r.Days > maxWindowDays {
		return fmt.Errorf("days must be between 1 and %d", maxWindowDays)
	}
	return nil
}

// ClassifyTrend splits the ordered series at its midpoint and compares the
// mean of each half. Fewer than two points is always stable.
func ClassifyTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	mid := len(values) / 2
	diff := mean(values[mid:]) - mean(values[:mid])
	switch {
	case diff > trendThreshold:
		return TrendRising
	case diff < -trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// RankConditions returns the most frequent conditions, ties kept in
// first-seen order. Percentages are relative to len(conditions).
func RankConditions(conditions []string, limit int) []ConditionFrequency {
	counts := make(map[string]int)
	var order []string
	for _, c := range conditions {
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}

	ranked := make([]ConditionFrequency, 0, len(order))
	for _, c := range order {
		ranked = append(ranked, ConditionFrequency{
			Condition:  c,
			Count:      counts[c],
			Percentage: int(math.Round(float64(counts[c]) * 100 / float64(len(conditions)))),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

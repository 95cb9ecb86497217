package external

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var coordinatePattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// parseCoordinates recognizes a "lat,lon" location string
func parseCoordinates(location string) (lat, lon float64, ok bool) {
	m := coordinatePattern.FindStringSubmatch(location)
	if m == nil {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lon, errLon := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// compassDirection converts a meteorological bearing to a 16-point compass label
func compassDirection(deg float64) string {
	points := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	idx := int((deg+11.25)/22.5) % len(points)
	if idx < 0 {
		idx += len(points)
	}
	return points[idx]
}

// titleCase turns "light rain" into "Light Rain"
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// Command mock-provider serves WeatherAPI-shaped responses for a few fixed
// cities so the service can run without real provider keys.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type city struct {
	Name      string
	Region    string
	Country   string
	Lat       float64
	Lon       float64
	TempC     float64
	Humidity  float64
	Condition string
	PM25      float64
	PM10      float64
}

var cities = map[string]city{
	"london": {Name: "London", Region: "City of London", Country: "United Kingdom", Lat: 51.52, Lon: -0.11,
		TempC: 15, Humidity: 76, Condition: "Partly cloudy", PM25: 8.4, PM10: 12.1},
	"paris": {Name: "Paris", Region: "Ile-de-France", Country: "France", Lat: 48.87, Lon: 2.33,
		TempC: 18, Humidity: 68, Condition: "Clear", PM25: 11.2, PM10: 17.5},
	"berlin": {Name: "Berlin", Region: "Berlin", Country: "Germany", Lat: 52.52, Lon: 13.4,
		TempC: 12, Humidity: 82, Condition: "Overcast", PM25: 6.1, PM10: 9.8},
	"kyiv": {Name: "Kyiv", Region: "Kyyivs'ka Oblast'", Country: "Ukraine", Lat: 50.43, Lon: 30.52,
		TempC: 21, Humidity: 45, Condition: "Sunny", PM25: 14.3, PM10: 22.0},
}

func main() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/current.json", withCity(func(c *gin.Context, ct city) {
		c.JSON(http.StatusOK, gin.H{"location": location(ct), "current": current(ct)})
	}))
	r.GET("/forecast.json", withCity(func(c *gin.Context, ct city) {
		c.JSON(http.StatusOK, gin.H{
			"location": location(ct),
			"current":  current(ct),
			"forecast": gin.H{"forecastday": forecastDays(ct, 3)},
			"alerts":   gin.H{"alert": []gin.H{}},
		})
	}))
	r.GET("/search.json", func(c *gin.Context) {
		q := strings.ToLower(strings.TrimSpace(c.Query("q")))
		results := make([]gin.H, 0)
		for key, ct := range cities {
			if q != "" && strings.HasPrefix(key, q) {
				results = append(results, gin.H{
					"name": ct.Name, "region": ct.Region, "country": ct.Country, "lat": ct.Lat, "lon": ct.Lon,
				})
			}
		}
		c.JSON(http.StatusOK, results)
	})

	addr := ":8081"
	if port := os.Getenv("MOCK_PROVIDER_PORT"); port != "" {
		addr = ":" + port
	}
	slog.Info("Mock weather provider starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

// withCity resolves the q parameter and emulates the provider's error cases
func withCity(h func(c *gin.Context, ct city)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("key") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": 1002, "message": "API key is invalid or not provided."}})
			return
		}

		q := strings.ToLower(strings.TrimSpace(c.Query("q")))
		switch q {
		case "":
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": 1003, "message": "Parameter q is missing."}})
			return
		case "servererror":
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": 9999, "message": "Internal application error."}})
			return
		case "ratelimit":
			c.JSON(http.StatusTooManyRequests, gin.H{"error": gin.H{"code": 2007, "message": "API key has exceeded calls per month quota."}})
			return
		}

		ct, ok := cities[q]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": 1006, "message": "No matching location found."}})
			return
		}
		h(c, ct)
	}
}

func location(ct city) gin.H {
	return gin.H{
		"name": ct.Name, "region": ct.Region, "country": ct.Country,
		"lat": ct.Lat, "lon": ct.Lon, "localtime": time.Now().Format("2006-01-02 15:04"),
	}
}

func current(ct city) gin.H {
	return gin.H{
		"last_updated_epoch": time.Now().Unix(),
		"temp_c":             ct.TempC,
		"feelslike_c":        ct.TempC - 1,
		"condition":          gin.H{"text": ct.Condition},
		"humidity":           ct.Humidity,
		"wind_kph":           12.6,
		"wind_dir":           "WSW",
		"pressure_mb":        1016,
		"vis_km":             10,
		"uv":                 4,
		"cloud":              25,
		"air_quality":        gin.H{"pm2_5": ct.PM25, "pm10": ct.PM10, "us-epa-index": 1},
	}
}

func forecastDays(ct city, days int) []gin.H {
	out := make([]gin.H, 0, days)
	start := time.Now().UTC()
	for i := 0; i < days; i++ {
		out = append(out, gin.H{
			"date": start.AddDate(0, 0, i).Format("2006-01-02"),
			"day": gin.H{
				"maxtemp_c":            ct.TempC + 4 + float64(i),
				"mintemp_c":            ct.TempC - 5 + float64(i),
				"avghumidity":          ct.Humidity,
				"maxwind_kph":          18.4,
				"daily_chance_of_rain": 20 * i,
				"daily_chance_of_snow": 0,
				"condition":            gin.H{"text": ct.Condition},
			},
			"astro": gin.H{"sunrise": "05:12 AM", "sunset": "09:18 PM", "moon_phase": "Waxing Gibbous"},
			"hour":  []gin.H{},
		})
	}
	return out
}

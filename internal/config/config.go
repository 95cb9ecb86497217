package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"homeweather.app/pkg/errors"
)

const (
	maxRedisDB          = 15
	maxCacheTTLMinutes  = 1440
	maxPortNumber       = 65535
	maxRetentionDays    = 365
	maxHTTPTimeoutSecs  = 120
	maxProviderRetries  = 5
	defaultOwnerID      = "anonymous"
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenWeather = "openweathermap"
)

// Config represents the application configuration structure
type Config struct {
	Server  ServerConfig  `split_words:"true"`
	Weather WeatherConfig `split_words:"true"`
	Cache   CacheConfig   `split_words:"true"`
	Storage StorageConfig `split_words:"true"`
}

type ServerConfig struct {
	Port     int    `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type WeatherConfig struct {
	APIKey                string `envconfig:"WEATHER_API_KEY"`
	BaseURL               string `envconfig:"WEATHER_API_BASE_URL" default:"https://api.weatherapi.com/v1"`
	OpenWeatherMapKey     string `envconfig:"OPENWEATHERMAP_API_KEY"`
	OpenWeatherMapBaseURL string `envconfig:"OPENWEATHERMAP_API_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
	PrimaryProvider       string `envconfig:"WEATHER_PRIMARY_PROVIDER" default:"weatherapi"`
	SecondaryProvider     string `envconfig:"WEATHER_SECONDARY_PROVIDER" default:"openweathermap"`
	CacheTTLMinutes       int    `envconfig:"WEATHER_CACHE_TTL_MINUTES" default:"10"`
	FreshnessMinutes      int    `envconfig:"WEATHER_FRESHNESS_MINUTES" default:"10"`
	HTTPTimeoutSeconds    int    `envconfig:"WEATHER_HTTP_TIMEOUT_SECONDS" default:"10"`
	MaxRetries            int    `envconfig:"WEATHER_MAX_RETRIES" default:"2"`
	EnableLogging         bool   `envconfig:"WEATHER_ENABLE_LOGGING" default:"true"`
	LogFilePath           string `envconfig:"WEATHER_LOG_FILE_PATH" default:"logs/weather_providers.log"`
}

// CacheType represents the type of cache to use
type CacheType int

const (
	CacheTypeUnknown CacheType = iota
	CacheTypeMemory
	CacheTypeRedis
)

// String returns the string representation of cache type
func (c CacheType) String() string {
	switch c {
	case CacheTypeMemory:
		return "memory"
	case CacheTypeRedis:
		return "redis"
	default:
		return "unknown"
	}
}

// IsValid checks if the cache type is valid
func (c CacheType) IsValid() bool {
	return c == CacheTypeMemory || c == CacheTypeRedis
}

// CacheTypeFromString converts string to CacheType enum
func CacheTypeFromString(s string) CacheType {
	switch s {
	case "memory":
		return CacheTypeMemory
	case "redis":
		return CacheTypeRedis
	default:
		return CacheTypeUnknown
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig
func (c *CacheType) UnmarshalText(text []byte) error {
	*c = CacheTypeFromString(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler for envconfig
func (c CacheType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type CacheConfig struct {
	Type  CacheType   `envconfig:"CACHE_TYPE" default:"memory"`
	Redis RedisConfig `split_words:"true"`
}

type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

type StorageConfig struct {
	Backend        string         `envconfig:"STORAGE_BACKEND" default:"local"`
	LocalPath      string         `envconfig:"STORAGE_LOCAL_PATH" default:"data/weather_records.json"`
	PreferencePath string         `envconfig:"STORAGE_PREFERENCE_PATH" default:"data/storage_preference.json"`
	RetentionDays  int            `envconfig:"STORAGE_RETENTION_DAYS" default:"30"`
	PruneInterval  int            `envconfig:"STORAGE_PRUNE_INTERVAL_MINUTES" default:"0"`
	OwnerID        string         `envconfig:"STORAGE_OWNER_ID"`
	Remote         DatabaseConfig `split_words:"true"`
}

// Owner returns the configured owner identifier or the anonymous owner
func (s StorageConfig) Owner() string {
	if strings.TrimSpace(s.OwnerID) == "" {
		return defaultOwnerID
	}
	return strings.TrimSpace(s.OwnerID)
}

// DatabaseConfig describes the remote backend connection. An empty Driver
// leaves the remote backend unavailable.
type DatabaseConfig struct {
	Driver   string `envconfig:"REMOTE_DRIVER"`
	DSN      string `envconfig:"REMOTE_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"homeweather"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// Enabled reports whether a remote backend is configured
func (c DatabaseConfig) Enabled() bool {
	return c.Driver != ""
}

func (c DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > maxPortNumber {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks the weather section. Missing API keys are not an error
// here: each provider client reports its own ConfigurationError per call.
func (w *WeatherConfig) Validate() error {
	for name, url := range map[string]string{
		"WEATHER_API_BASE_URL":        w.BaseURL,
		"OPENWEATHERMAP_API_BASE_URL": w.OpenWeatherMapBaseURL,
	} {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return errors.NewConfigurationError(name+" must start with http:// or https://", nil)
		}
	}

	validProviders := map[string]bool{
		ProviderWeatherAPI:  true,
		ProviderOpenWeather: true,
	}
	if !validProviders[w.PrimaryProvider] {
		return errors.NewConfigurationError(fmt.Sprintf("invalid primary weather provider: %s", w.PrimaryProvider), nil)
	}
	if w.SecondaryProvider != "" && !validProviders[w.SecondaryProvider] {
		return errors.NewConfigurationError(fmt.Sprintf("invalid secondary weather provider: %s", w.SecondaryProvider), nil)
	}
	if w.SecondaryProvider == w.PrimaryProvider {
		return errors.NewConfigurationError("primary and secondary weather providers must differ", nil)
	}

	if w.CacheTTLMinutes < 1 || w.CacheTTLMinutes > maxCacheTTLMinutes {
		return errors.NewConfigurationError("WEATHER_CACHE_TTL_MINUTES must be between 1 and 1440 minutes", nil)
	}
	if w.FreshnessMinutes < 0 || w.FreshnessMinutes > maxCacheTTLMinutes {
		return errors.NewConfigurationError("WEATHER_FRESHNESS_MINUTES must be between 0 and 1440 minutes", nil)
	}
	if w.HTTPTimeoutSeconds < 1 || w.HTTPTimeoutSeconds > maxHTTPTimeoutSecs {
		return errors.NewConfigurationError("WEATHER_HTTP_TIMEOUT_SECONDS must be between 1 and 120", nil)
	}
	if w.MaxRetries < 0 || w.MaxRetries > maxProviderRetries {
		return errors.NewConfigurationError("WEATHER_MAX_RETRIES must be between 0 and 5", nil)
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if !c.Type.IsValid() {
		return errors.NewConfigurationError("CACHE_TYPE must be one of: memory, redis", nil)
	}

	if c.Type == CacheTypeRedis {
		return c.Redis.Validate()
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty when using Redis cache", nil)
	}
	if r.DB < 0 || r.DB > maxRedisDB {
		return errors.NewConfigurationError("REDIS_DB must be between 0 and 15", nil)
	}
	if r.DialTimeout < 1 {
		return errors.NewConfigurationError("REDIS_DIAL_TIMEOUT must be at least 1 second", nil)
	}
	if r.ReadTimeout < 1 {
		return errors.NewConfigurationError("REDIS_READ_TIMEOUT must be at least 1 second", nil)
	}
	if r.WriteTimeout < 1 {
		return errors.NewConfigurationError("REDIS_WRITE_TIMEOUT must be at least 1 second", nil)
	}
	return nil
}

func (s *StorageConfig) Validate() error {
	if s.Backend != "local" && s.Backend != "remote" {
		return errors.NewConfigurationError("STORAGE_BACKEND must be one of: local, remote", nil)
	}
	if s.RetentionDays < 1 || s.RetentionDays > maxRetentionDays {
		return errors.NewConfigurationError("STORAGE_RETENTION_DAYS must be between 1 and 365", nil)
	}
	if s.PruneInterval < 0 {
		return errors.NewConfigurationError("STORAGE_PRUNE_INTERVAL_MINUTES cannot be negative", nil)
	}
	if s.PreferencePath == "" {
		return errors.NewConfigurationError("STORAGE_PREFERENCE_PATH cannot be empty", nil)
	}
	if s.Backend == "remote" && !s.Remote.Enabled() {
		return errors.NewConfigurationError("STORAGE_BACKEND=remote requires REMOTE_DRIVER", nil)
	}
	return s.Remote.Validate()
}

func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "":
		return nil
	case "sqlite":
		if d.DSN == "" {
			return errors.NewConfigurationError("REMOTE_DSN is required for the sqlite driver", nil)
		}
		return nil
	case "postgres":
		if d.DSN != "" {
			return nil
		}
	default:
		return errors.NewConfigurationError("REMOTE_DRIVER must be one of: postgres, sqlite", nil)
	}

	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > maxPortNumber {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	return d.ValidateSSLMode()
}

func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

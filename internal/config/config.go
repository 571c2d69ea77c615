package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverValkey   = "valkey"
)

type AppConfig struct {
	Port     string `yaml:"port" validate:"required"`
	LogLevel string `yaml:"logLevel"`

	// HTTPTimeout bounds every outbound call; a timeout surfaces as a network error.
	HTTPTimeout time.Duration `yaml:"httpTimeout" validate:"gt=0"`
	// UserAgent is sent to Nominatim, whose usage policy requires it.
	UserAgent string `yaml:"userAgent" validate:"required"`

	GeocodeBaseURL  string `yaml:"geocodeBaseUrl" validate:"required,url"`
	ForecastBaseURL string `yaml:"forecastBaseUrl" validate:"required,url"`
	ForecastDays    int    `yaml:"forecastDays" validate:"gte=2,lte=16"`
	ForecastHours   int    `yaml:"forecastHours" validate:"gte=1,lte=48"`

	Store StoreConfig `yaml:"store"`
}

// StoreConfig selects and configures the favorites repository.
type StoreConfig struct {
	Driver      string        `yaml:"driver" validate:"oneof=file memory postgres valkey"`
	Path        string        `yaml:"path" validate:"required_if=Driver file"`
	PostgresDSN string        `yaml:"postgresDsn" validate:"required_if=Driver postgres"`
	ValkeyAddr  string        `yaml:"valkeyAddr" validate:"required_if=Driver valkey"`
	ValkeyKey   string        `yaml:"valkeyKey"`
	// FlushInterval controls how often a diverged favorites list is re-committed.
	FlushInterval time.Duration `yaml:"flushInterval" validate:"gt=0"`
}

var validate = validator.New()

func defaultConfig() *AppConfig {
	return &AppConfig{
		Port:            "8080",
		LogLevel:        "info",
		HTTPTimeout:     10 * time.Second,
		UserAgent:       "weather-lookup/1.0 (+https://github.com/i474232898/weather-lookup)",
		GeocodeBaseURL:  "https://nominatim.openstreetmap.org/search",
		ForecastBaseURL: "https://api.open-meteo.com/v1/forecast",
		ForecastDays:    2,
		ForecastHours:   12,
		Store: StoreConfig{
			Driver:        DriverFile,
			Path:          "data/favorites.yaml",
			ValkeyKey:     "weather:favorites",
			FlushInterval: time.Minute,
		},
	}
}

// Load reads configuration from an optional YAML file and the environment,
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) error {
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.UserAgent = getenvDefault("USER_AGENT", cfg.UserAgent)
	cfg.GeocodeBaseURL = getenvDefault("GEOCODE_BASE_URL", cfg.GeocodeBaseURL)
	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", cfg.ForecastBaseURL)
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", cfg.ForecastDays)
	cfg.ForecastHours = getenvInt("FORECAST_HOURS", cfg.ForecastHours)

	cfg.Store.Driver = strings.ToLower(getenvDefault("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.Path = getenvDefault("STORE_PATH", cfg.Store.Path)
	cfg.Store.PostgresDSN = getenvDefault("POSTGRES_DSN", cfg.Store.PostgresDSN)
	cfg.Store.ValkeyAddr = getenvDefault("VALKEY_ADDR", cfg.Store.ValkeyAddr)
	cfg.Store.ValkeyKey = getenvDefault("VALKEY_KEY", cfg.Store.ValkeyKey)

	timeout, err := getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	if err != nil {
		return err
	}
	cfg.HTTPTimeout = timeout

	flush, err := getenvDuration("FLUSH_INTERVAL", cfg.Store.FlushInterval)
	if err != nil {
		return err
	}
	cfg.Store.FlushInterval = flush
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

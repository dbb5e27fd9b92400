package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all service settings. Values come from defaults, an optional
// dashboard.yaml, and environment variables, in increasing precedence.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ViewCacheSize int

	// Dataset paths.
	RoadTransportCSV string
	LandfillCSV      string

	// Radius scaling.
	LinearScaleFactor float64
	LogMinRadius      float64
	LogMaxRadius      float64
}

var defaults = map[string]any{
	"HTTP_ADDR":           ":8080",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
	"SHUTDOWN_TIMEOUT":    "10s",
	"VIEW_CACHE_SIZE":     64,
	"ROAD_TRANSPORT_CSV":  "data/sample/road-transportation_emissions_sources.csv",
	"LANDFILL_CSV":        "data/sample/solid-waste-disposal_emissions_sources.csv",
	"LINEAR_SCALE_FACTOR": 1000.0,
	"LOG_MIN_RADIUS":      2000.0,
	"LOG_MAX_RADIUS":      10000.0,
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Config file (optional). Keys are the environment variable names.
	v.SetConfigName("dashboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", v.GetString("SHUTDOWN_TIMEOUT"))
	}

	cacheSize, err := cast.ToIntE(v.Get("VIEW_CACHE_SIZE"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_CACHE_SIZE: %w", err)
	}

	var floats [3]float64
	for i, key := range []string{"LINEAR_SCALE_FACTOR", "LOG_MIN_RADIUS", "LOG_MAX_RADIUS"} {
		f, err := cast.ToFloat64E(v.Get(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		floats[i] = f
	}

	cfg := &Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		ShutdownTimeout:   shutdownTimeout,
		ViewCacheSize:     cacheSize,
		RoadTransportCSV:  v.GetString("ROAD_TRANSPORT_CSV"),
		LandfillCSV:       v.GetString("LANDFILL_CSV"),
		LinearScaleFactor: floats[0],
		LogMinRadius:      floats[1],
		LogMaxRadius:      floats[2],
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if c.ViewCacheSize <= 0 {
		return errors.New("VIEW_CACHE_SIZE must be a positive integer")
	}
	if c.RoadTransportCSV == "" {
		return errors.New("ROAD_TRANSPORT_CSV is required")
	}
	if c.LandfillCSV == "" {
		return errors.New("LANDFILL_CSV is required")
	}
	if !nonNegative(c.LinearScaleFactor) {
		return errors.New("LINEAR_SCALE_FACTOR must be a finite, non-negative number")
	}
	if !nonNegative(c.LogMinRadius) {
		return errors.New("LOG_MIN_RADIUS must be a finite, non-negative number")
	}
	if !nonNegative(c.LogMaxRadius) {
		return errors.New("LOG_MAX_RADIUS must be a finite, non-negative number")
	}
	if c.LogMaxRadius < c.LogMinRadius {
		return errors.New("LOG_MAX_RADIUS must not be smaller than LOG_MIN_RADIUS")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	return nil
}

func nonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Package config provides configuration parsing and validation for the sensor-simulator.
// It handles parsing of kind distribution strings and validates run parameters.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/shared"
)

// Config holds all configuration parameters for the sensor-simulator.
type Config struct {
	EnvironmentURL string
	RPS            float64
	Duration       time.Duration
	BurstSize      int
	Seed           int64
	KindDist       string
	OutOfBandRatio float64
	RequestTimeout time.Duration
	MaxRetries     int
	LogLevel       string
}

// RegisterFlags binds every field to a command-line flag, defaulting from the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.EnvironmentURL, "environment-url", shared.GetEnvOrDefault("ENVIRONMENT_SERVICE_URL", "http://localhost:8081"), "Base URL of the environment-service")
	fs.Float64Var(&c.RPS, "rps", 2.0, "Measurements per second")
	fs.DurationVar(&c.Duration, "duration", 60*time.Second, "Duration to run (e.g., 60s, 5m)")
	fs.IntVar(&c.BurstSize, "burst", 0, "Burst mode: send N measurements immediately, then stop (0 = continuous)")
	fs.Int64Var(&c.Seed, "seed", 0, "Random seed for deterministic generation (0 = random)")
	fs.StringVar(&c.KindDist, "kind-dist", "temperature:40,humidity:30,luminosity:20,co2:10", "Parameter kind distribution (format: kind:percent,...)")
	fs.Float64Var(&c.OutOfBandRatio, "out-of-band-ratio", 0.1, "Fraction of readings generated outside the threshold band (0-1)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", 5*time.Second, "Timeout for each environment-service request")
	fs.IntVar(&c.MaxRetries, "max-retries", 3, "Retries for a failed measurement submission")
	fs.StringVar(&c.LogLevel, "log-level", shared.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
}

// Validate checks that all required configuration fields are set and have valid values.
func (c *Config) Validate() error {
	if c.EnvironmentURL == "" {
		return fmt.Errorf("environment-url cannot be empty")
	}
	if c.RPS <= 0 && c.BurstSize <= 0 {
		return fmt.Errorf("rps must be > 0 or burst must be > 0")
	}
	if c.BurstSize == 0 && c.Duration <= 0 {
		return fmt.Errorf("duration must be > 0 when not in burst mode")
	}
	if c.OutOfBandRatio < 0 || c.OutOfBandRatio > 1 {
		return fmt.Errorf("out-of-band-ratio must be between 0 and 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries cannot be negative")
	}
	if _, err := ParseDistribution(c.KindDist); err != nil {
		return fmt.Errorf("invalid kind-dist: %w", err)
	}
	return nil
}

// ParseDistribution parses a weighted distribution string into a map of values to percentages.
//
// Format: "KEY1:PERCENT1,KEY2:PERCENT2,..." where percentages must sum to 100.
//
// Example: "temperature:40,humidity:30,luminosity:20,co2:10"
func ParseDistribution(distStr string) (map[string]int, error) {
	result := make(map[string]int)

	if distStr == "" {
		return result, fmt.Errorf("distribution string cannot be empty")
	}

	totalPercent := 0
	for _, part := range strings.Split(distStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.Split(part, ":")
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid distribution format: %s (expected KEY:PERCENT)", part)
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if key == "" {
			return nil, fmt.Errorf("empty key in %s", part)
		}
		var percent int
		if _, err := fmt.Sscanf(strings.TrimSpace(kv[1]), "%d", &percent); err != nil {
			return nil, fmt.Errorf("invalid percentage in %s: %w", part, err)
		}
		if percent < 0 || percent > 100 {
			return nil, fmt.Errorf("percentage must be 0-100, got %d in %s", percent, part)
		}

		result[key] += percent
		totalPercent += percent
	}

	if totalPercent != 100 {
		return nil, fmt.Errorf("distribution percentages must sum to 100, got %d", totalPercent)
	}

	return result, nil
}

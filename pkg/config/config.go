// Package config loads the co2trip CLI configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/synth"
)

const defaultConfigRelPath = ".co2trip/config.yaml"

type NominatimConfig struct {
	URL               string        `yaml:"url"`
	UserAgent         string        `yaml:"user_agent"`
	Language          string        `yaml:"language"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	Timeout           time.Duration `yaml:"timeout"`
}

type TripConfig struct {
	Travelers int      `yaml:"travelers"`
	Modes     []string `yaml:"modes"`
}

type ModelConfig struct {
	Seed         uint64  `yaml:"seed"`
	Samples      int     `yaml:"samples"`
	Trees        int     `yaml:"trees"`
	TestFraction float64 `yaml:"test_fraction"`
	Workers      int     `yaml:"workers"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Nominatim NominatimConfig `yaml:"nominatim"`
	Trip      TripConfig      `yaml:"trip"`
	Model     ModelConfig     `yaml:"model"`
	Log       LogConfig       `yaml:"log"`
}

// DefaultPath returns ~/.co2trip/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// Load reads YAML config, fills defaults, then applies env overrides. A
// missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Nominatim.URL == "" {
		c.Nominatim.URL = osm.NominatimBaseURL
	}
	if c.Nominatim.UserAgent == "" {
		c.Nominatim.UserAgent = osm.DefaultUserAgent
	}
	if c.Nominatim.RequestsPerSecond == 0 {
		c.Nominatim.RequestsPerSecond = 1
	}
	if c.Nominatim.Burst == 0 {
		c.Nominatim.Burst = 1
	}
	if c.Nominatim.CacheSize == 0 {
		c.Nominatim.CacheSize = 1024
	}
	if c.Nominatim.CacheTTL == 0 {
		c.Nominatim.CacheTTL = 24 * time.Hour
	}
	if c.Nominatim.Timeout == 0 {
		c.Nominatim.Timeout = osm.DefaultTimeout
	}
	if c.Trip.Travelers == 0 {
		c.Trip.Travelers = 1
	}
	def := estimator.DefaultConfig()
	if c.Model.Seed == 0 {
		c.Model.Seed = def.Seed
	}
	if c.Model.Samples == 0 {
		c.Model.Samples = synth.DefaultConfig().Samples
	}
	if c.Model.Trees == 0 {
		c.Model.Trees = def.Trees
	}
	if c.Model.TestFraction == 0 {
		c.Model.TestFraction = def.TestFraction
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Trip.Travelers < 1 {
		errs = append(errs, fmt.Errorf("trip.travelers must be at least 1, got %d", c.Trip.Travelers))
	}
	if _, err := emissions.ParseModes(c.Trip.Modes); err != nil {
		errs = append(errs, fmt.Errorf("trip.modes: %w", err))
	}
	if c.Nominatim.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("nominatim.requests_per_second must be positive"))
	}
	if strings.TrimSpace(c.Nominatim.UserAgent) == "" {
		errs = append(errs, errors.New("nominatim.user_agent cannot be empty"))
	}
	if c.Model.Samples < 2 {
		errs = append(errs, fmt.Errorf("model.samples must be at least 2, got %d", c.Model.Samples))
	}
	if c.Model.Trees < 1 {
		errs = append(errs, fmt.Errorf("model.trees must be at least 1, got %d", c.Model.Trees))
	}
	if c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("model.test_fraction must be in (0, 1), got %v", c.Model.TestFraction))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses log.level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// GeocoderOptions converts the nominatim section.
func (c *Config) GeocoderOptions() osm.Options {
	return osm.Options{
		BaseURL:           c.Nominatim.URL,
		UserAgent:         c.Nominatim.UserAgent,
		Language:          c.Nominatim.Language,
		RequestsPerSecond: c.Nominatim.RequestsPerSecond,
		Burst:             c.Nominatim.Burst,
		CacheSize:         c.Nominatim.CacheSize,
		CacheTTL:          c.Nominatim.CacheTTL,
		Timeout:           c.Nominatim.Timeout,
	}
}

// SynthConfig returns the training set parameters.
func (c *Config) SynthConfig() synth.Config {
	return synth.Config{Seed: c.Model.Seed, Samples: c.Model.Samples}
}

// EstimatorConfig returns the forest parameters.
func (c *Config) EstimatorConfig() estimator.Config {
	return estimator.Config{
		Trees:        c.Model.Trees,
		Seed:         c.Model.Seed,
		TestFraction: c.Model.TestFraction,
		Workers:      c.Model.Workers,
	}
}

// Write saves the config as YAML, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Nominatim.URL, "CO2TRIP_NOMINATIM_URL")
	setString(&c.Nominatim.UserAgent, "CO2TRIP_USER_AGENT")
	setString(&c.Nominatim.Language, "CO2TRIP_LANGUAGE")
	setFloat(&c.Nominatim.RequestsPerSecond, "CO2TRIP_NOMINATIM_RPS")
	setInt(&c.Trip.Travelers, "CO2TRIP_TRAVELERS")
	setList(&c.Trip.Modes, "CO2TRIP_MODES")
	setUint(&c.Model.Seed, "CO2TRIP_MODEL_SEED")
	setInt(&c.Model.Samples, "CO2TRIP_MODEL_SAMPLES")
	setInt(&c.Model.Trees, "CO2TRIP_MODEL_TREES")
	setString(&c.Log.Level, "CO2TRIP_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func setList(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NERVsystems/co2mcp/pkg/osm"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Nominatim.URL != osm.NominatimBaseURL {
		t.Fatalf("unexpected url %s", c.Nominatim.URL)
	}
	if c.Trip.Travelers != 1 {
		t.Fatalf("expected 1 traveler, got %d", c.Trip.Travelers)
	}
	if c.Model.Seed != 42 || c.Model.Samples != 1000 || c.Model.Trees != 100 {
		t.Fatalf("unexpected model defaults %+v", c.Model)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yml := "nominatim:\n  url: http://localhost:8080\n  cache_ttl: 1h\ntrip:\n  travelers: 3\n  modes: [train, Bus]\nmodel:\n  trees: 20\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Nominatim.URL != "http://localhost:8080" {
		t.Fatalf("unexpected url %s", cfg.Nominatim.URL)
	}
	if cfg.Nominatim.CacheTTL != time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.Nominatim.CacheTTL)
	}
	if cfg.Trip.Travelers != 3 || len(cfg.Trip.Modes) != 2 {
		t.Fatalf("unexpected trip config %+v", cfg.Trip)
	}
	if cfg.Model.Trees != 20 || cfg.Model.Seed != 42 {
		t.Fatalf("unexpected model config %+v", cfg.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Trip.Travelers != 1 {
		t.Fatalf("expected defaults")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("trip: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CO2TRIP_NOMINATIM_URL", "http://nominatim.internal")
	t.Setenv("CO2TRIP_USER_AGENT", "co2trip-test")
	t.Setenv("CO2TRIP_TRAVELERS", "4")
	t.Setenv("CO2TRIP_MODES", "car, zug")
	t.Setenv("CO2TRIP_MODEL_SEED", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Nominatim.URL != "http://nominatim.internal" || cfg.Nominatim.UserAgent != "co2trip-test" {
		t.Fatalf("nominatim overrides not applied: %+v", cfg.Nominatim)
	}
	if cfg.Trip.Travelers != 4 {
		t.Fatalf("expected 4 travelers, got %d", cfg.Trip.Travelers)
	}
	if strings.Join(cfg.Trip.Modes, "|") != "car|zug" {
		t.Fatalf("unexpected modes %v", cfg.Trip.Modes)
	}
	if cfg.Model.Seed != 7 {
		t.Fatalf("unexpected seed %d", cfg.Model.Seed)
	}
	opts := cfg.GeocoderOptions()
	if opts.BaseURL != "http://nominatim.internal" || opts.UserAgent != "co2trip-test" {
		t.Fatalf("geocoder options not derived from config: %+v", opts)
	}
	if cfg.SynthConfig().Seed != 7 || cfg.EstimatorConfig().Seed != 7 {
		t.Fatal("seed not propagated")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero travelers", func(c *Config) { c.Trip.Travelers = 0 }, "trip.travelers"},
		{"unknown mode", func(c *Config) { c.Trip.Modes = []string{"rocket"} }, "trip.modes"},
		{"bad fraction", func(c *Config) { c.Model.TestFraction = 1 }, "model.test_fraction"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.SetDefaults()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	c.Trip.Travelers = 5
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := c.Write(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Trip.Travelers != 5 {
		t.Fatalf("expected 5 travelers, got %d", loaded.Trip.Travelers)
	}
}

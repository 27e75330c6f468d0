package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/monitoring"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/server"
	"github.com/NERVsystems/co2mcp/pkg/synth"
	"github.com/NERVsystems/co2mcp/pkg/tracing"
	ver "github.com/NERVsystems/co2mcp/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	userAgent       string

	// Nominatim
	nominatimURL   string
	nominatimRPS   float64
	nominatimBurst int
	noGeocoder     bool

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string

	// Model training
	modelSeed    uint64
	modelSamples int
	modelTrees   int
	noModel      bool
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&userAgent, "user-agent", osm.DefaultUserAgent, "User-Agent string for Nominatim requests")

	flag.StringVar(&nominatimURL, "nominatim-url", osm.NominatimBaseURL, "Nominatim base URL")
	flag.Float64Var(&nominatimRPS, "nominatim-rps", 1.0, "Nominatim rate limit in requests per second")
	flag.IntVar(&nominatimBurst, "nominatim-burst", 1, "Nominatim rate limit burst size")
	flag.BoolVar(&noGeocoder, "no-geocoder", false, "Disable place name lookup; only coordinates are accepted")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")

	flag.Uint64Var(&modelSeed, "seed", 42, "Seed for the synthetic training set and forest")
	flag.IntVar(&modelSamples, "samples", 1000, "Number of synthetic training samples")
	flag.IntVar(&modelTrees, "trees", 100, "Number of trees in the forest")
	flag.BoolVar(&noModel, "no-model", false, "Skip model training; model tools report unavailable")
}

func main() {
	flag.Parse()

	if showVersionFlag {
		fmt.Println(ver.String())
		return
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	// stdout carries the MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(logger, logLevel); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(logger *slog.Logger, level slog.Level) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	logger.Info("starting CO2 MCP server",
		"version", ver.BuildVersion,
		"log_level", level.String(),
		"user_agent", userAgent,
		"nominatim_url", nominatimURL,
		"nominatim_rps", nominatimRPS,
		"nominatim_burst", nominatimBurst,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", monitoringAddr)

	var healthChecker *monitoring.HealthChecker
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer healthChecker.Shutdown()
		installMonitoringHooks()
	}

	var model *estimator.Model
	if !noModel {
		model, err = trainModel(ctx)
		if err != nil {
			return fmt.Errorf("train model: %w", err)
		}
		if healthChecker != nil {
			healthChecker.SetDetail("model", model.Info())
		}
	}

	cfg := server.Config{Model: model}
	if !noGeocoder {
		geocoder, err := osm.NewGeocoder(osm.Options{
			BaseURL:           nominatimURL,
			UserAgent:         userAgent,
			RequestsPerSecond: nominatimRPS,
			Burst:             nominatimBurst,
		})
		if err != nil {
			return fmt.Errorf("create geocoder: %w", err)
		}
		cfg.Searcher = geocoder

		if healthChecker != nil {
			monitor := monitoring.NewConnectionMonitor(tracing.ServiceNominatim, healthChecker, geocoder.CheckHealth, 30*time.Second)
			monitor.Start(ctx)
			defer monitor.Stop()
		}
	}

	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	if enableMonitoring {
		startMonitoringServer(ctx, healthChecker, logger)
	}

	logger.Info("transport_enabled", "type", "stdio", "tools", len(s.ToolNames()))
	return s.RunWithContext(ctx)
}

func trainModel(ctx context.Context) (*estimator.Model, error) {
	table, err := synth.Generate(synth.Config{Seed: modelSeed, Samples: modelSamples})
	if err != nil {
		return nil, err
	}
	cfg := estimator.DefaultConfig()
	cfg.Seed = modelSeed
	cfg.Trees = modelTrees
	return estimator.Train(ctx, table, cfg)
}

func installMonitoringHooks() {
	osm.SetMonitoringHooks(&osm.MonitoringHooks{
		OnResponse: func(service, operation string, duration time.Duration, success bool) {
			monitoring.RecordExternalServiceRequest(service, operation, duration, success)
		},
		OnRateLimit: func(service string, waitTime time.Duration) {
			monitoring.RecordRateLimitWait(service, waitTime)
			monitoring.RecordRateLimitExceeded(service)
		},
		OnCache: func(hit bool, size int) {
			if hit {
				monitoring.RecordCacheHit(tracing.CacheTypeGeocode)
			} else {
				monitoring.RecordCacheMiss(tracing.CacheTypeGeocode)
			}
			monitoring.UpdateCacheSize(tracing.CacheTypeGeocode, size)
		},
		OnError: func(service, errorType string) {
			monitoring.RecordError(service, errorType)
		},
	})
}

func startMonitoringServer(ctx context.Context, hc *monitoring.HealthChecker, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", hc.HealthHandler())
	mux.Handle("/health/live", hc.LivenessHandler())

	srv := &http.Server{
		Addr:              monitoringAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting monitoring server", "addr", monitoringAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("monitoring server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}()
}

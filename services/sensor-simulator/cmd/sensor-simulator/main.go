// Package main provides the CLI entry point for the sensor-simulator. It discovers the
// configured parameters from the environment-service and submits synthetic readings.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/retry"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/shared"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/client"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/config"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/generator"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/processor"
)

const serviceName = "sensor-simulator"

func main() {
	var cfg config.Config
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel)

	slog.Info("Starting sensor-simulator",
		"environment_url", cfg.EnvironmentURL,
		"rps", cfg.RPS,
		"duration", cfg.Duration,
		"burst_size", cfg.BurstSize,
		"seed", cfg.Seed,
		"kind_dist", cfg.KindDist,
		"out_of_band_ratio", cfg.OutOfBandRatio,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envClient := client.New(cfg.EnvironmentURL, cfg.RequestTimeout)

	var params []client.Parameter
	err := retry.WithRetry(ctx, retry.DefaultConfig(), "list_parameters", func() error {
		var err error
		params, err = envClient.ListParameters(ctx)
		return err
	})
	if err != nil {
		slog.Error("Failed to discover parameters", "error", err)
		slog.Info("Tip: configure parameters with POST /api/v1/parameters before running the simulator")
		os.Exit(1)
	}

	bands := make([]generator.Band, 0, len(params))
	for _, p := range params {
		bands = append(bands, p.Band())
	}

	gen, err := generator.New(cfg, bands)
	if err != nil {
		slog.Error("Failed to initialize generator", "error", err)
		os.Exit(1)
	}
	slog.Info("Generator initialized", "kinds", gen.Kinds(), "parameters", len(params))

	collector := metrics.NewCollector(serviceName, nil)
	proc := processor.NewProcessor(gen, envClient, &cfg, collector)

	runErr := proc.Process(ctx)

	snap := collector.Snapshot()
	slog.Info("Run summary",
		"sent", snap.Published,
		"errors", snap.Errors,
		"avg_latency_ms", snap.AvgProcessingLatencyMs,
		"out_of_band_sent", snap.Custom[processor.CounterOutOfBand],
		"alerts_raised", snap.Custom[processor.CounterAlertsRaised],
		"threshold_drift", snap.Custom[processor.CounterThresholdDrift],
	)

	if runErr != nil {
		if ctx.Err() != nil {
			slog.Info("Sensor simulator stopped by signal")
			return
		}
		slog.Error("Processing failed", "error", runErr)
		os.Exit(1)
	}

	slog.Info("Sensor simulator completed successfully")
}

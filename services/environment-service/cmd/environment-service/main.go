// Package main provides the CLI entry point for the environment-service.
// It parses flags, provisions topics, and serves the parameter and measurement API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkautil "github.com/mohamedlandolsi/greenhouse-management-system/pkg/kafka"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/shared"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/config"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/evaluator"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/handlers"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/producer"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/router"
)

const serviceName = "environment-service"

func main() {
	cfg := &config.Config{}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel)

	slog.Info("Starting environment-service",
		"http_port", cfg.HTTPPort,
		"kafka_brokers", cfg.KafkaBrokers,
		"alerts_topic", cfg.AlertsTopic,
		"measurements_topic", cfg.MeasurementsTopic,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	slog.Info("Connecting to PostgreSQL database")
	db, err := database.NewDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		slog.Info("Tip: Start Postgres with 'docker compose up -d postgres' or ensure Postgres is running")
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Successfully connected to PostgreSQL database")

	specs := kafkautil.EventTopicWithDLQ(cfg.AlertsTopic, cfg.TopicPartitions, cfg.TopicReplicationFactor)
	specs = append(specs, kafkautil.TopicSpec{
		Name:              cfg.MeasurementsTopic,
		Partitions:        cfg.TopicPartitions,
		ReplicationFactor: cfg.TopicReplicationFactor,
		Retention:         kafkautil.RetentionMeasurements,
	})
	if err := kafkautil.EnsureTopics(ctx, kafkautil.ParseBrokers(cfg.KafkaBrokers), specs); err != nil {
		slog.Error("Failed to provision Kafka topics", "error", err)
		slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
		os.Exit(1)
	}

	pub, err := publisher.New(cfg.KafkaBrokers, serviceName)
	if err != nil {
		slog.Error("Failed to create Kafka publisher", "error", err)
		os.Exit(1)
	}

	collector := newCollector(ctx, cfg.RedisAddr)
	collector.Start(ctx)
	defer collector.Stop()

	eventProducer, err := producer.NewProducer(pub, cfg.MeasurementsTopic, cfg.AlertsTopic, collector)
	if err != nil {
		slog.Error("Failed to create event producer", "error", err)
		os.Exit(1)
	}
	defer eventProducer.Close()

	svc := evaluator.NewService(db, eventProducer, collector)
	h := handlers.NewHandlers(db, svc)
	server := router.NewServer(cfg.HTTPPort, h, collector)

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
		slog.Info("HTTP server stopped")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Environment-service stopped")
}

// newCollector returns a Redis-backed collector, or a local-only one when Redis is
// disabled or unreachable.
func newCollector(ctx context.Context, redisAddr string) *metrics.Collector {
	if redisAddr == "" {
		return metrics.NewCollector(serviceName, nil)
	}
	client, err := shared.ConnectRedis(ctx, redisAddr)
	if err != nil {
		slog.Warn("Redis unavailable, service metrics will not be published", "error", err)
		return metrics.NewCollector(serviceName, nil)
	}
	slog.Info("Connected to Redis for service metrics", "addr", redisAddr)
	return metrics.NewCollector(serviceName, client)
}

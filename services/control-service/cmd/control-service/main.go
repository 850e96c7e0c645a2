// Package main provides the CLI entry point for the control-service.
// It consumes greenhouse alerts, executes corrective equipment actions and serves
// the action and equipment API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	kafkautil "github.com/mohamedlandolsi/greenhouse-management-system/pkg/kafka"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/shared"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/breaker"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/config"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/consumer"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/decision"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/dedup"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/envclient"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/executor"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/handlers"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/observability"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/processor"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/producer"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/router"
)

const (
	serviceName        = "control-service"
	envClientTimeout   = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
	environmentBreaker = "environment-service"
)

func main() {
	cfg := &config.Config{}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel)

	slog.Info("Starting control-service",
		"http_port", cfg.HTTPPort,
		"kafka_brokers", cfg.KafkaBrokers,
		"alerts_topic", cfg.AlertsTopic,
		"actions_topic", cfg.ActionsTopic,
		"consumer_group_id", cfg.ConsumerGroupID,
		"consumer_workers", cfg.ConsumerWorkers,
		"dedup_backend", cfg.DedupBackend,
		"environment_service_url", cfg.EnvironmentServiceURL,
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

	specs := kafkautil.EventTopicWithDLQ(cfg.AlertsTopic, cfg.TopicPartitions, cfg.TopicReplicationFactor)
	specs = append(specs, kafkautil.EventTopicWithDLQ(cfg.ActionsTopic, cfg.TopicPartitions, cfg.TopicReplicationFactor)...)
	if err := kafkautil.EnsureTopics(ctx, kafkautil.ParseBrokers(cfg.KafkaBrokers), specs); err != nil {
		slog.Error("Failed to provision Kafka topics", "error", err)
		slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
		os.Exit(1)
	}

	redisClient := connectRedis(ctx, cfg.RedisAddr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	collector := metrics.NewCollector(serviceName, nil)
	var metricsReader handlers.ServiceMetricsReader
	if redisClient != nil {
		collector = metrics.NewCollector(serviceName, redisClient)
		metricsReader = metrics.NewReader(redisClient)
	}
	collector.Start(ctx)
	defer collector.Stop()

	obs := observability.New(collector)

	pub, err := publisher.New(cfg.KafkaBrokers, serviceName)
	if err != nil {
		slog.Error("Failed to create Kafka publisher", "error", err)
		os.Exit(1)
	}
	eventProducer, err := producer.NewProducer(pub, cfg.ActionsTopic, obs)
	if err != nil {
		slog.Error("Failed to create event producer", "error", err)
		os.Exit(1)
	}
	defer eventProducer.Close()

	envBreaker := breaker.New(environmentBreaker, breaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		OnStateChange:    obs.BreakerStateHook(),
	})
	obs.SetBreakerState(envBreaker.Name(), envBreaker.State())
	envClient := envclient.New(cfg.EnvironmentServiceURL, envClientTimeout, envBreaker)

	exec := executor.New(db, eventProducer, executor.LogActuator{}, obs)
	engine := decision.NewEngine(db, exec)
	seen := newDedupStore(cfg, redisClient)
	obs.WatchDedupSize(seen)
	proc := processor.NewProcessor(engine, eventProducer, seen, processor.Config{
		MaxRetries:   cfg.ConsumerMaxRetries,
		RetryBackoff: cfg.ConsumerRetryBackoff,
	}, obs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := proc.RunWorkers(ctx, cfg.ConsumerWorkers, func() (processor.MessageReader, error) {
			return consumer.NewConsumer(cfg.KafkaBrokers, cfg.AlertsTopic, cfg.ConsumerGroupID)
		})
		if err != nil {
			slog.Error("Alert consumer failed to start", "error", err)
			cancel()
		}
	}()

	h := handlers.NewHandlers(db, exec, envClient, metricsReader)
	server := router.NewServer(cfg.HTTPPort, h, obs, collector)

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		cancel()
	}

	slog.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down server", "error", err)
	}

	slog.Info("Waiting for alert consumer workers to stop")
	wg.Wait()

	slog.Info("Control-service stopped")
}

// connectRedis returns nil when Redis is disabled or unreachable.
func connectRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	client, err := shared.ConnectRedis(ctx, addr)
	if err != nil {
		slog.Warn("Redis unavailable, service metrics and shared dedup disabled", "error", err)
		return nil
	}
	slog.Info("Connected to Redis", "addr", addr)
	return client
}

// newDedupStore selects the processed-event store. The Redis store falls back to memory
// when Redis is not available.
func newDedupStore(cfg *config.Config, client *redis.Client) dedup.Store {
	if cfg.DedupBackend == config.DedupBackendRedis {
		if client != nil {
			slog.Info("Using Redis dedup store", "ttl", cfg.DedupTTL)
			return dedup.NewRedisStore(client, cfg.DedupTTL)
		}
		slog.Warn("Redis dedup requested but Redis is unavailable, using memory store")
	}
	slog.Info("Using memory dedup store", "capacity", cfg.DedupCapacity, "ttl", cfg.DedupTTL)
	return dedup.NewMemoryStore(cfg.DedupCapacity, cfg.DedupTTL)
}

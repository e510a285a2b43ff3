package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/api"
	"pullfunds/apps/pullfunds/internal/config"
	"pullfunds/apps/pullfunds/internal/contract"
	"pullfunds/apps/pullfunds/internal/event_publisher"
	"pullfunds/apps/pullfunds/internal/metrics"
	"pullfunds/apps/pullfunds/internal/repository"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting application with configuration",
		zap.String("rpc_url", cfg.RpcURL),
		zap.String("contract_address", cfg.ContractAddress),
		zap.Int("port", cfg.Port),
		zap.Bool("events_enabled", cfg.EventsEnabled()),
		zap.String("kafka_topic", cfg.KafkaTopic),
	)
	for _, key := range cfg.Missing() {
		logger.Warn("Required environment variable not set", zap.String("key", key))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Startup failures below leave the resource down and the process running;
	// the affected endpoint then fails per request.
	db := connectDatabase(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}

	var puller api.FundsPuller
	fundsPuller := connectContract(ctx, cfg, logger)
	if fundsPuller != nil {
		puller = fundsPuller
	}

	var recorder api.EventRecorder
	if cfg.EventsEnabled() && db != nil {
		outboxRepository := repository.NewOutboxRepository(db, logger)
		publisher, err := event_publisher.NewEventPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger, outboxRepository)
		if err != nil {
			logger.Error("Failed to create event publisher, events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			go publisher.StartPublishing(ctx)
			recorder = outboxRepository
		}
	}

	addressRepository := repository.NewAddressRepository(db, logger, recorder != nil)

	apiServer := api.NewServer(cfg.Port, api.Dependencies{
		Addresses: addressRepository,
		Puller:    puller,
		Events:    recorder,
		DB:        addressRepository,
		Metrics:   collector,
		Gatherer:  registry,
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	logger.Info("Application shutdown complete")
}

func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) *sql.DB {
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Error("Database connection failed", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("Database connection failed", zap.Error(err))
		return db
	}

	if err := repository.InitMigration(ctx, db); err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		return db
	}

	logger.Info("Database connected")
	return db
}

func connectContract(ctx context.Context, cfg *config.Config, logger *zap.Logger) *contract.FundsPuller {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	puller, err := contract.Dial(ctx, cfg.RpcURL, cfg.PrivateKey, cfg.ContractAddress, logger)
	if err != nil {
		logger.Error("Contract setup failed", zap.Error(err))
		return nil
	}

	logger.Info("Contract connected",
		zap.String("contract_address", puller.ContractAddress().Hex()),
		zap.String("sender", puller.Sender().Hex()),
		zap.String("chain_id", puller.ChainID().String()))
	return puller
}

// Worker consumes GPS events from Kafka (published by the server in INGEST_MODE=async) and
// saves them to the event store in batches.
// Set KAFKA_BROKERS, EVENTS_KAFKA_TOPIC, KAFKA_GROUP_ID and the store settings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"geointel/internal/config"
	"geointel/internal/db"
	"geointel/internal/db/migrate"
	"geointel/internal/event/repository"
	"geointel/internal/ingest"
	"geointel/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Env, cfg.LogLevel).Named("worker")
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	dsn := cfg.DSN()
	if err := migrate.Run(dsn, "up"); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	conn, err := db.Open(dsn)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()
	repo := repository.NewSQLRepository(conn, db.DialectOf(dsn))

	reader := ingest.NewKafkaReader(brokers, cfg.EventsKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := ingest.NewWorker(reader, repo, ingest.WorkerConfig{
		BatchSize:     cfg.WorkerBatchSize,
		FlushInterval: cfg.FlushInterval(),
	}, logger)

	logger.Info("consuming",
		zap.String("topic", cfg.EventsKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Strings("brokers", brokers),
	)
	if err := worker.Run(ctx); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}

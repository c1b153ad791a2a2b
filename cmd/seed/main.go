// seed fills the event store with a synthetic dataset for local development.
// SCENARIO_PATH selects a YAML scenario; without it the default two-year dataset is used.
// Idempotent: the dataset is deterministic, so re-running it inserts nothing new.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"geointel/internal/config"
	"geointel/internal/db"
	"geointel/internal/db/migrate"
	"geointel/internal/event/generator"
	"geointel/internal/event/repository"
	"geointel/internal/logging"
)

const seedBatchSize = 1000

func main() {
	replace := flag.Bool("replace", false, "Delete every stored event first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Env, cfg.LogLevel).Named("seed")
	defer func() { _ = logger.Sync() }()

	scenario := generator.DefaultScenario()
	if cfg.ScenarioPath != "" {
		if scenario, err = generator.LoadScenario(cfg.ScenarioPath); err != nil {
			logger.Fatal("scenario", zap.Error(err))
		}
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

	// anchor to midnight so repeated seeds on the same day produce identical rows
	now := time.Now().UTC().Truncate(24 * time.Hour)
	events, err := generator.Generate(scenario, now)
	if err != nil {
		logger.Fatal("generate", zap.Error(err))
	}

	ctx := context.Background()
	if *replace {
		n, err := repo.DeleteAll(ctx)
		if err != nil {
			logger.Fatal("delete events", zap.Error(err))
		}
		logger.Info("deleted existing events", zap.Int64("deleted", n))
	}

	stored := 0
	for start := 0; start < len(events); start += seedBatchSize {
		end := min(start+seedBatchSize, len(events))
		n, err := repo.SaveBatch(ctx, events[start:end])
		if err != nil {
			logger.Fatal("save events", zap.Error(err))
		}
		stored += n
	}
	logger.Info("seed completed", zap.Int("generated", len(events)), zap.Int("stored", stored))
}

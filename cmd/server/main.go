package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"geointel/internal/alerting"
	"geointel/internal/config"
	"geointel/internal/db"
	"geointel/internal/db/migrate"
	"geointel/internal/event/repository"
	"geointel/internal/ingest"
	"geointel/internal/logging"
	"geointel/internal/security"
	"geointel/internal/server"
	"geointel/internal/server/interceptors"
	"geointel/internal/telemetry"
	"geointel/internal/telemetry/loki"
	oteltelemetry "geointel/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	providers, err := oteltelemetry.NewProviders(ctx, oteltelemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatal("otel providers", zap.Error(err))
	}
	providers.SetGlobal()

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

	var sink ingest.Sink = ingest.NewRepositorySink(repo)
	if cfg.IngestMode == config.IngestAsync {
		sink, err = ingest.NewKafkaSink(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
		if err != nil {
			logger.Fatal("kafka sink", zap.Error(err))
		}
	}
	ingester := ingest.NewService(sink, cfg.IngestMode, logger.Named("ingest"))
	defer func() {
		if err := ingester.Close(); err != nil {
			logger.Warn("ingest sink close", zap.Error(err))
		}
	}()

	evaluator, err := alerting.LoadOPAEvaluator(cfg.AlertPolicyPath)
	if err != nil {
		logger.Fatal("alert policy", zap.Error(err))
	}
	if err := evaluator.HealthCheck(ctx); err != nil {
		logger.Fatal("alert policy", zap.Error(err))
	}

	var tokens interceptors.TokenValidator
	if cfg.AuthEnabled() {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			logger.Fatal("jwt public key", zap.Error(err))
		}
		tokens = security.NewVerifier(pub, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set; API authentication is disabled")
	}

	alertEmitter := oteltelemetry.NewAlertEmitter(providers.LoggerProvider)
	if cfg.LokiURL != "" {
		lokiEmitter, err := loki.NewEmitter(cfg.LokiURL)
		if err != nil {
			logger.Fatal("loki emitter", zap.Error(err))
		}
		alertEmitter = telemetry.Fanout(alertEmitter, lokiEmitter)
	}

	chain, err := server.UnaryInterceptors(tokens, logger.Named("access"), otel.Meter("geointel/grpc"))
	if err != nil {
		logger.Fatal("interceptors", zap.Error(err))
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)
	server.RegisterServices(s, server.Deps{
		Events:              repo,
		Ingester:            ingester,
		Alerts:              evaluator,
		AlertEmitter:        alertEmitter,
		HealthPinger:        conn,
		HealthPolicyChecker: evaluator,
		Logger:              logger,
	})

	go func() {
		logger.Info("gRPC server listening",
			zap.String("addr", cfg.GRPCAddr),
			zap.String("store", db.DialectOf(dsn).String()),
			zap.String("ingest_mode", cfg.IngestMode),
			zap.Bool("auth", tokens != nil),
		)
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server...")
	s.GracefulStop()
	// let in-flight async alert emits finish before the log exporter goes away
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("gRPC server stopped")
}

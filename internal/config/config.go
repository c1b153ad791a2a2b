// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Ingest modes accepted by INGEST_MODE.
const (
	IngestSync  = "sync"
	IngestAsync = "async"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// StoreDriver selects the event store: "postgres" (default) or "sqlite".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the database file used when StoreDriver is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// JWTPublicKey is the PEM-encoded public key or path to file. Empty disables auth.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is only needed by the CLI that issues analyst tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the lifetime of issued tokens (e.g. "12h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// IngestMode is "sync" (write to the store) or "async" (publish to Kafka for the worker).
	IngestMode string `mapstructure:"INGEST_MODE"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic carries raw GPS events between server/devices and the worker.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the ingest worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// WorkerBatchSize is the max number of events the worker buffers before a flush.
	WorkerBatchSize int `mapstructure:"WORKER_BATCH_SIZE"`
	// WorkerFlushInterval is how long the worker holds a partial batch (e.g. "2s").
	WorkerFlushInterval string `mapstructure:"WORKER_FLUSH_INTERVAL"`

	// OTLPEndpoint is the collector endpoint; empty yields no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
	// LokiURL, when set, also pushes alerts to Loki (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// AlertPolicyPath is an optional Rego file replacing the built-in alert policy.
	AlertPolicyPath string `mapstructure:"ALERT_POLICY_PATH"`
	// ScenarioPath is an optional YAML scenario used by the seeder and GenerateSynthetic.
	ScenarioPath string `mapstructure:"SCENARIO_PATH"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "geointel.db")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_ISSUER", "geointel")
	v.SetDefault("JWT_AUDIENCE", "geointel-api")
	v.SetDefault("JWT_ACCESS_TTL", "12h")
	v.SetDefault("INGEST_MODE", IngestSync)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "geointel-events")
	v.SetDefault("KAFKA_GROUP_ID", "geointel-ingest-worker")
	v.SetDefault("WORKER_BATCH_SIZE", 500)
	v.SetDefault("WORKER_FLUSH_INTERVAL", "2s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "geointel")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("ALERT_POLICY_PATH", "")
	v.SetDefault("SCENARIO_PATH", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, errors.New("config: STORE_DRIVER must be postgres or sqlite")
	}
	if cfg.StoreDriver == DriverSQLite && cfg.SQLitePath == "" {
		return nil, errors.New("config: SQLITE_PATH must be set when STORE_DRIVER=sqlite")
	}

	cfg.IngestMode = strings.ToLower(strings.TrimSpace(cfg.IngestMode))
	switch cfg.IngestMode {
	case IngestSync:
	case IngestAsync:
		if len(cfg.KafkaBrokersList()) == 0 {
			return nil, errors.New("config: INGEST_MODE=async requires KAFKA_BROKERS")
		}
	default:
		return nil, errors.New("config: INGEST_MODE must be sync or async")
	}

	if cfg.WorkerBatchSize <= 0 {
		return nil, errors.New("config: WORKER_BATCH_SIZE must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// FlushInterval parses WorkerFlushInterval. Returns 2s if unset or invalid.
func (c *Config) FlushInterval() time.Duration {
	d, err := time.ParseDuration(c.WorkerFlushInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// AuthEnabled reports whether bearer tokens are validated by the API.
func (c *Config) AuthEnabled() bool {
	return c != nil && strings.TrimSpace(c.JWTPublicKey) != ""
}

// DSN returns the connection string for the configured store driver. For sqlite it is
// the migrate-style URL (sqlite://path) so the same value feeds the migration runner.
func (c *Config) DSN() string {
	if c.StoreDriver == DriverSQLite {
		return "sqlite://" + c.SQLitePath
	}
	return c.DatabaseURL
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

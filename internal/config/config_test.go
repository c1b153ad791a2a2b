package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.IngestMode != IngestSync {
		t.Errorf("IngestMode = %q, want %q", cfg.IngestMode, IngestSync)
	}
	if cfg.EventsKafkaTopic != "geointel-events" {
		t.Errorf("EventsKafkaTopic = %q, want geointel-events", cfg.EventsKafkaTopic)
	}
	if cfg.KafkaGroupID != "geointel-ingest-worker" {
		t.Errorf("KafkaGroupID = %q, want geointel-ingest-worker", cfg.KafkaGroupID)
	}
	if cfg.WorkerBatchSize != 500 {
		t.Errorf("WorkerBatchSize = %d, want 500", cfg.WorkerBatchSize)
	}
	if cfg.JWTIssuer != "geointel" || cfg.JWTAudience != "geointel-api" {
		t.Errorf("JWT issuer/audience = %q/%q", cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.ServiceName != "geointel" {
		t.Errorf("ServiceName = %q, want geointel", cfg.ServiceName)
	}
	if cfg.AuthEnabled() {
		t.Error("auth should be disabled without JWT_PUBLIC_KEY")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("STORE_DRIVER", "SQLite")
	os.Setenv("SQLITE_PATH", "/tmp/intel.db")
	os.Setenv("WORKER_BATCH_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
	if got := cfg.DSN(); got != "sqlite:///tmp/intel.db" {
		t.Errorf("DSN = %q, want sqlite:///tmp/intel.db", got)
	}
	if cfg.WorkerBatchSize != 50 {
		t.Errorf("WorkerBatchSize = %d, want 50", cfg.WorkerBatchSize)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mysql"}, "config: STORE_DRIVER must be postgres or sqlite"},
		{"empty sqlite path", map[string]string{"STORE_DRIVER": "sqlite", "SQLITE_PATH": ""}, "config: SQLITE_PATH must be set when STORE_DRIVER=sqlite"},
		{"unknown ingest mode", map[string]string{"INGEST_MODE": "batch"}, "config: INGEST_MODE must be sync or async"},
		{"async without brokers", map[string]string{"INGEST_MODE": "async"}, "config: INGEST_MODE=async requires KAFKA_BROKERS"},
		{"zero batch", map[string]string{"WORKER_BATCH_SIZE": "0"}, "config: WORKER_BATCH_SIZE must be positive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should return error")
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
			if err.Error() != tc.want {
				t.Errorf("error = %q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoad_AsyncWithBrokers(t *testing.T) {
	os.Clearenv()
	os.Setenv("INGEST_MODE", "async")
	os.Setenv("KAFKA_BROKERS", "k1:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IngestMode != IngestAsync {
		t.Errorf("IngestMode = %q, want async", cfg.IngestMode)
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"invalid", 12 * time.Hour},
		{"0", 12 * time.Hour},
		{"-5m", 12 * time.Hour},
	}
	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			cfg := &Config{JWTAccessTTL: tc.value}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFlushInterval(t *testing.T) {
	if got := (&Config{WorkerFlushInterval: "500ms"}).FlushInterval(); got != 500*time.Millisecond {
		t.Errorf("FlushInterval = %v, want 500ms", got)
	}
	if got := (&Config{WorkerFlushInterval: "soon"}).FlushInterval(); got != 2*time.Second {
		t.Errorf("FlushInterval = %v, want 2s (default)", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"spaces and blanks", " a:1 , ,b:2,", []string{"a:1", "b:2"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{KafkaBrokers: tc.in}
			got := cfg.KafkaBrokersList()
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("KafkaBrokersList = %v, want %v", got, tc.want)
			}
		})
	}

	var nilCfg *Config
	if got := nilCfg.KafkaBrokersList(); got != nil {
		t.Errorf("nil config KafkaBrokersList = %v, want nil", got)
	}
}

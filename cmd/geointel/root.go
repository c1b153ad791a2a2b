package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"geointel/internal/logging"
)

// Output formats accepted by --format.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// app holds global flag values shared by every subcommand.
type app struct {
	addr     string
	token    string
	format   string
	logLevel string
	insecure bool
	timeout  time.Duration

	logger *zap.Logger
	out    io.Writer
}

func newApp() *app {
	return &app{out: os.Stdout}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "geointel",
		Short: "GPS intelligence and hotspot analysis",
		Long: `geointel analyzes GPS event datasets: density hotspots (DBSCAN), predicted
centers (KMeans), timelines, breakdowns, auto insights and alerts.

Local commands (analyze --csv, generate, token) work offline. Remote commands talk to a
geointel server over gRPC.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.AddGroup(
		&cobra.Group{ID: "local", Title: "Local Commands:"},
		&cobra.Group{ID: "remote", Title: "Server Commands:"},
	)

	flags := root.PersistentFlags()
	flags.StringVar(&a.addr, "addr", envOr("GEOINTEL_ADDR", "localhost:8080"), "server address (env GEOINTEL_ADDR)")
	flags.StringVar(&a.token, "token", os.Getenv("GEOINTEL_TOKEN"), "bearer token for the server (env GEOINTEL_TOKEN)")
	flags.BoolVar(&a.insecure, "insecure", true, "use plaintext gRPC")
	flags.DurationVar(&a.timeout, "timeout", 30*time.Second, "per-call timeout for server commands")
	flags.StringVarP(&a.format, "format", "o", formatJSON, "output format: json, yaml")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCommand(a),
		newGenerateCommand(a),
		newTokenCommand(a),
		newImportCommand(a),
		newIngestCommand(a),
		newEventsCommand(a),
		newOptionsCommand(a),
		newExportCommand(a),
		newHealthCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch a.format {
	case formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", a.format)
	}
	if a.timeout <= 0 {
		return fmt.Errorf("--timeout must be positive, got %s", a.timeout)
	}
	logger, err := logging.New("development", a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// print writes v in the selected output format.
func (a *app) print(v any) error {
	if a.format == formatYAML {
		// round-trip through JSON so yaml keys follow the json tags
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

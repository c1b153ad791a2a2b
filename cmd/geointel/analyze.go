package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	intelv1 "geointel/api/intel/v1"
	"geointel/internal/alerting"
	"geointel/internal/analytics"
	"geointel/internal/event/csvio"
	"geointel/internal/event/domain"
	"geointel/internal/ingest"
)

// addAnalysisFlags binds the dashboard controls to opts.
func addAnalysisFlags(fs *pflag.FlagSet, opts *intelv1.AnalysisOptions) {
	fs.StringSliceVar(&opts.Filter.Groups, "group", nil, "keep only these actor groups (repeatable)")
	fs.StringSliceVar(&opts.Filter.Regions, "region", nil, "keep only these regions (repeatable)")
	fs.StringVar(&opts.Filter.Start, "start", "", "first calendar day, YYYY-MM-DD")
	fs.StringVar(&opts.Filter.End, "end", "", "last calendar day (inclusive), YYYY-MM-DD")
	fs.IntVar(&opts.ReplayDays, "replay-days", 0, "show the last N days on the map (default 90)")
	fs.BoolVar(&opts.Animate, "animate", false, "render one progressive animation frame")
	fs.IntVar(&opts.AnimationSteps, "steps", 0, "animation steps (5-50, default 12)")
	fs.IntVar(&opts.AnimationFrame, "frame", 0, "animation frame (1..steps, default last)")
	fs.Float64Var(&opts.Eps, "eps", 0, "DBSCAN radius: degrees (euclidean) or km (haversine)")
	fs.IntVar(&opts.MinSamples, "min-samples", 0, "DBSCAN core point threshold (3-30, default 6)")
	fs.StringVar(&opts.Metric, "metric", "", "DBSCAN metric: euclidean or haversine")
	fs.IntVar(&opts.K, "k", 0, "KMeans predicted centers (2-12, default 4)")
	fs.Uint64Var(&opts.Seed, "seed", 0, "KMeans seed (default 42)")
}

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		opts     intelv1.AnalysisOptions
		csvPath  string
		policy   string
		withMaps bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute hotspots, centers, insights and alerts",
		Long: `Analyze runs the full analysis. With --csv the file is analyzed locally and
nothing is sent to a server; otherwise the server analyzes its stored events.`,
		Example: `  geointel analyze --csv events.csv --eps 0.05 --k 5
  geointel analyze --group "Group A" --start 2025-01-01 --metric haversine --eps 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvPath == "" {
				return a.remoteAnalyze(cmd, opts, withMaps)
			}
			resp, err := analyzeFile(cmd, csvPath, policy, opts, a.logger)
			if err != nil {
				return err
			}
			if !withMaps {
				resp.Report.MapEvents = nil
			}
			return a.print(resp)
		},
	}
	cmd.GroupID = "local"
	addAnalysisFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&csvPath, "csv", "", "analyze this CSV file locally")
	cmd.Flags().StringVar(&policy, "policy", "", "Rego alert policy file for local analysis (default built-in)")
	cmd.Flags().BoolVar(&withMaps, "map-events", false, "include the plotted events in the output")
	return cmd
}

// analyzeFile reads, validates and analyzes a CSV file in-process.
func analyzeFile(cmd *cobra.Command, path, policy string, opts intelv1.AnalysisOptions, logger *zap.Logger) (*intelv1.AnalyzeResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, err := csvio.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	events := make([]domain.Event, 0, len(parsed.Events))
	rejected := 0
	for i := range parsed.Events {
		e := parsed.Events[i]
		if err := ingest.Prepare(&e); err != nil {
			rejected++
			continue
		}
		events = append(events, e)
	}
	logger.Info("csv loaded",
		zap.String("path", path),
		zap.Int("events", len(events)),
		zap.Int("malformed", parsed.Malformed),
		zap.Int("dropped", parsed.Dropped),
		zap.Int("rejected", rejected),
	)

	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	report, err := analytics.Analyze(cmd.Context(), events, params)
	if err != nil {
		return nil, err
	}

	evaluator, err := alerting.LoadOPAEvaluator(policy)
	if err != nil {
		return nil, err
	}
	alerts, err := evaluator.Evaluate(cmd.Context(), report)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []alerting.Alert{}
	}
	return &intelv1.AnalyzeResponse{Report: report, Alerts: alerts}, nil
}

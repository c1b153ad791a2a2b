package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	healthv1 "geointel/api/health/v1"
	intelv1 "geointel/api/intel/v1"
)

// dial opens a client connection and returns a context carrying the bearer token and the
// call timeout. The caller must call the returned cleanup.
func (a *app) dial(ctx context.Context) (*grpc.ClientConn, context.Context, func(), error) {
	creds := insecure.NewCredentials()
	if !a.insecure {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}
	conn, err := grpc.NewClient(a.addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial %s: %w", a.addr, err)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	if a.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+a.token)
	}
	return conn, ctx, func() {
		cancel()
		_ = conn.Close()
	}, nil
}

func (a *app) intel(cmd *cobra.Command) (intelv1.IntelServiceClient, context.Context, func(), error) {
	conn, ctx, done, err := a.dial(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	return intelv1.NewIntelServiceClient(conn), ctx, done, nil
}

func (a *app) remoteAnalyze(cmd *cobra.Command, opts intelv1.AnalysisOptions, withMaps bool) error {
	client, ctx, done, err := a.intel(cmd)
	if err != nil {
		return err
	}
	defer done()
	resp, err := client.Analyze(ctx, &intelv1.AnalyzeRequest{Options: opts, OmitMapEvents: !withMaps})
	if err != nil {
		return err
	}
	return a.print(resp)
}

func newImportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import <file.csv>",
		Short:   "Upload a CSV file of events to the server",
		Args:    cobra.ExactArgs(1),
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client, ctx, done, err := a.intel(cmd)
			if err != nil {
				return err
			}
			defer done()
			resp, err := client.ImportCSV(ctx, &intelv1.ImportCSVRequest{Data: data})
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	return cmd
}

func newIngestCommand(a *app) *cobra.Command {
	var (
		synthetic bool
		req       intelv1.GenerateSyntheticRequest
	)
	cmd := &cobra.Command{
		Use:   "ingest [events.json|-]",
		Short: "Send events to the server, or have it generate a synthetic dataset",
		Long: `Ingest reads a JSON array of events from a file (or stdin with "-") and sends them
to the server. With --synthetic the server generates and stores a dataset instead.`,
		Example: `  geointel ingest events.json
  geointel ingest --synthetic --size 20000 --replace`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if synthetic {
				if len(args) > 0 {
					return errors.New("--synthetic takes no file argument")
				}
				if req.Scenario != "" {
					doc, err := os.ReadFile(req.Scenario)
					if err != nil {
						return err
					}
					req.Scenario = string(doc)
				}
				client, ctx, done, err := a.intel(cmd)
				if err != nil {
					return err
				}
				defer done()
				resp, err := client.GenerateSynthetic(ctx, &req)
				if err != nil {
					return err
				}
				return a.print(resp)
			}

			if len(args) == 0 {
				return errors.New("an events file (or - for stdin) is required")
			}
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var events []intelv1.Event
			if err := json.NewDecoder(r).Decode(&events); err != nil {
				return fmt.Errorf("decode events: %w", err)
			}
			client, ctx, done, err := a.intel(cmd)
			if err != nil {
				return err
			}
			defer done()
			resp, err := client.IngestEvents(ctx, &intelv1.IngestEventsRequest{Events: events})
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "generate a synthetic dataset on the server")
	cmd.Flags().StringVar(&req.Scenario, "scenario", "", "YAML scenario file for --synthetic")
	cmd.Flags().IntVar(&req.Size, "size", 0, "synthetic dataset size")
	cmd.Flags().Uint64Var(&req.Seed, "seed", 0, "synthetic dataset seed")
	cmd.Flags().IntVar(&req.DaysBack, "days-back", 0, "synthetic dataset span in days")
	cmd.Flags().BoolVar(&req.Replace, "replace", false, "delete stored events before generating")
	return cmd
}

func newEventsCommand(a *app) *cobra.Command {
	var req intelv1.ListEventsRequest
	cmd := &cobra.Command{
		Use:     "events",
		Short:   "List stored events",
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ctx, done, err := a.intel(cmd)
			if err != nil {
				return err
			}
			defer done()
			resp, err := client.ListEvents(ctx, &req)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&req.Filter.Groups, "group", nil, "keep only these actor groups")
	fs.StringSliceVar(&req.Filter.Regions, "region", nil, "keep only these regions")
	fs.StringVar(&req.Filter.Start, "start", "", "first calendar day, YYYY-MM-DD")
	fs.StringVar(&req.Filter.End, "end", "", "last calendar day (inclusive), YYYY-MM-DD")
	fs.IntVar(&req.Limit, "limit", 0, "page size (default 100, max 1000)")
	fs.IntVar(&req.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newOptionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "options",
		Short:   "Show the groups, regions and date range available for filtering",
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ctx, done, err := a.intel(cmd)
			if err != nil {
				return err
			}
			defer done()
			resp, err := client.GetFilterOptions(ctx, &intelv1.GetFilterOptionsRequest{})
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var (
		opts    intelv1.AnalysisOptions
		outPath string
	)
	cmd := &cobra.Command{
		Use:       "export <events|hotspots|centers>",
		Short:     "Download analysis results as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{intelv1.ExportEvents, intelv1.ExportHotspots, intelv1.ExportCenters},
		GroupID:   "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, done, err := a.intel(cmd)
			if err != nil {
				return err
			}
			defer done()
			resp, err := client.Export(ctx, &intelv1.ExportRequest{Kind: args[0], Options: opts})
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = resp.Filename
			}
			if outPath == "-" {
				_, err = a.out.Write(resp.Data)
				return err
			}
			if err := os.WriteFile(outPath, resp.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", resp.Rows, outPath)
			return nil
		},
	}
	addAnalysisFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&outPath, "out", "", `output file (default server filename, "-" for stdout)`)
	return cmd
}

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "health",
		Short:   "Check server readiness",
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, ctx, done, err := a.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			resp, err := healthv1.NewHealthServiceClient(conn).HealthCheck(ctx, &healthv1.HealthCheckRequest{})
			if err != nil {
				return err
			}
			if err := a.print(resp); err != nil {
				return err
			}
			if resp.GetStatus() != healthv1.ServingStatusServing {
				return fmt.Errorf("server is %s", resp.GetStatus())
			}
			return nil
		},
	}
}

package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	intelv1 "geointel/api/intel/v1"
	"geointel/internal/alerting"
	"geointel/internal/analytics"
	"geointel/internal/event/csvio"
	"geointel/internal/event/domain"
	"geointel/internal/event/generator"
	"geointel/internal/event/repository"
	"geointel/internal/ingest"
	"geointel/internal/telemetry"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	csvContentType   = "text/csv"
)

// Ingester validates and stores (or enqueues) events. Satisfied by *ingest.Service.
type Ingester interface {
	Ingest(ctx context.Context, events []domain.Event) (*ingest.Result, error)
}

// Server implements IntelService: ingest, browse, analyze and export GPS events.
type Server struct {
	intelv1.UnimplementedIntelServiceServer
	repo      repository.Repository
	ingester  Ingester
	evaluator alerting.Evaluator
	emitter   telemetry.AlertEmitter
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the clock used to anchor replay windows and synthetic datasets.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAlerts enables alert evaluation on Analyze. emitter may be nil.
func WithAlerts(evaluator alerting.Evaluator, emitter telemetry.AlertEmitter) Option {
	return func(s *Server) {
		s.evaluator = evaluator
		s.emitter = emitter
	}
}

// NewServer returns a new IntelService server. repo serves reads; ingester handles writes.
func NewServer(repo repository.Repository, ingester Ingester, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{repo: repo, ingester: ingester, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestEvents validates and stores a batch. Invalid events are counted, not fatal.
func (s *Server) IngestEvents(ctx context.Context, req *intelv1.IngestEventsRequest) (*intelv1.IngestEventsResponse, error) {
	if req == nil || len(req.Events) == 0 {
		return nil, status.Error(codes.InvalidArgument, "events are required")
	}
	res, err := s.ingester.Ingest(ctx, req.Events)
	if err != nil {
		return nil, s.internal("ingest events", err)
	}
	return &intelv1.IngestEventsResponse{
		Accepted:   res.Accepted,
		Stored:     res.Stored,
		Rejected:   res.Rejected,
		FirstError: res.FirstError,
	}, nil
}

// ImportCSV parses a CSV upload and ingests the usable rows.
func (s *Server) ImportCSV(ctx context.Context, req *intelv1.ImportCSVRequest) (*intelv1.ImportCSVResponse, error) {
	if req == nil || len(req.Data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "data is required")
	}
	parsed, err := csvio.Read(bytes.NewReader(req.Data))
	if err != nil {
		if errors.Is(err, csvio.ErrMissingColumns) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.InvalidArgument, "read csv: %v", err)
	}
	resp := &intelv1.ImportCSVResponse{Malformed: parsed.Malformed, Dropped: parsed.Dropped}
	if len(parsed.Events) == 0 {
		return resp, nil
	}
	res, err := s.ingester.Ingest(ctx, parsed.Events)
	if err != nil {
		return nil, s.internal("import csv", err)
	}
	resp.Accepted = res.Accepted
	resp.Stored = res.Stored
	resp.Rejected = res.Rejected
	resp.FirstError = res.FirstError
	s.logger.Info("intel: csv imported",
		zap.Int("accepted", res.Accepted),
		zap.Int("malformed", parsed.Malformed),
		zap.Int("dropped", parsed.Dropped),
	)
	return resp, nil
}

// GenerateSynthetic draws a synthetic dataset and ingests it, optionally replacing the store.
func (s *Server) GenerateSynthetic(ctx context.Context, req *intelv1.GenerateSyntheticRequest) (*intelv1.GenerateSyntheticResponse, error) {
	if req == nil {
		req = &intelv1.GenerateSyntheticRequest{}
	}
	if req.Size < 0 || req.DaysBack < 0 {
		return nil, status.Error(codes.InvalidArgument, "size and days_back must not be negative")
	}
	if req.Size > generator.MaxSize {
		return nil, status.Errorf(codes.InvalidArgument, "size must be at most %d", generator.MaxSize)
	}
	scenario, err := generator.ParseScenario([]byte(req.Scenario))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Size > 0 {
		scenario.Size = req.Size
	}
	if req.Seed != 0 {
		scenario.Seed = req.Seed
	}
	if req.DaysBack > 0 {
		scenario.DaysBack = req.DaysBack
	}
	events, err := generator.Generate(scenario, s.now())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp := &intelv1.GenerateSyntheticResponse{Generated: len(events)}
	if req.Replace {
		deleted, err := s.repo.DeleteAll(ctx)
		if err != nil {
			return nil, s.internal("delete events", err)
		}
		resp.Deleted = deleted
	}
	res, err := s.ingester.Ingest(ctx, events)
	if err != nil {
		return nil, s.internal("ingest synthetic events", err)
	}
	resp.Stored = res.Stored
	s.logger.Info("intel: synthetic dataset generated",
		zap.Int("generated", resp.Generated),
		zap.Int("stored", resp.Stored),
		zap.Int64("deleted", resp.Deleted),
		zap.Uint64("seed", scenario.Seed),
	)
	return resp, nil
}

// ListEvents returns one page of filtered events plus the total match count.
func (s *Server) ListEvents(ctx context.Context, req *intelv1.ListEventsRequest) (*intelv1.ListEventsResponse, error) {
	if req == nil {
		req = &intelv1.ListEventsRequest{}
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit and offset must not be negative")
	}
	f, err := req.Filter.Analytics()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	q := toQuery(f)
	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, s.internal("count events", err)
	}
	q.Limit, q.Offset = limit, req.Offset
	events, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, s.internal("list events", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return &intelv1.ListEventsResponse{Events: events, Total: total}, nil
}

// GetFilterOptions returns the groups, regions and date range available for filtering.
func (s *Server) GetFilterOptions(ctx context.Context, _ *intelv1.GetFilterOptionsRequest) (*intelv1.GetFilterOptionsResponse, error) {
	opts, err := s.repo.Options(ctx)
	if err != nil {
		return nil, s.internal("filter options", err)
	}
	resp := &intelv1.GetFilterOptionsResponse{Groups: opts.Groups, Regions: opts.Regions, Total: opts.Total}
	if !opts.First.IsZero() {
		resp.First = opts.First.UTC().Format(intelv1.DateLayout)
	}
	if !opts.Last.IsZero() {
		resp.Last = opts.Last.UTC().Format(intelv1.DateLayout)
	}
	return resp, nil
}

// Analyze runs the full analysis over the stored events and evaluates alert rules on the
// result. Alerts are emitted to telemetry in the background.
func (s *Server) Analyze(ctx context.Context, req *intelv1.AnalyzeRequest) (*intelv1.AnalyzeResponse, error) {
	if req == nil {
		req = &intelv1.AnalyzeRequest{}
	}
	report, err := s.analyze(ctx, req.Options)
	if err != nil {
		return nil, err
	}

	alerts := []alerting.Alert{}
	if s.evaluator != nil {
		got, err := s.evaluator.Evaluate(ctx, report)
		if err != nil {
			// A broken policy must not hide the report.
			s.logger.Warn("intel: alert evaluation failed", zap.Error(err))
		} else if len(got) > 0 {
			alerts = got
			telemetry.EmitAsync(s.emitter, alerts, s.logger)
		}
	}

	if req.OmitMapEvents {
		report.MapEvents = nil
	}
	return &intelv1.AnalyzeResponse{Report: report, Alerts: alerts}, nil
}

// Export renders filtered events (with cluster labels), hotspots or centers as CSV.
func (s *Server) Export(ctx context.Context, req *intelv1.ExportRequest) (*intelv1.ExportResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "kind is required")
	}
	switch req.Kind {
	case intelv1.ExportEvents, intelv1.ExportHotspots, intelv1.ExportCenters:
	case "":
		return nil, status.Error(codes.InvalidArgument, "kind is required")
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown export kind %q", req.Kind)
	}
	report, err := s.analyze(ctx, req.Options)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var rows int
	switch req.Kind {
	case intelv1.ExportEvents:
		rows = len(report.Filtered)
		err = csvio.WriteEvents(&buf, report.Filtered, report.Labels)
	case intelv1.ExportHotspots:
		rows = len(report.Hotspots)
		err = csvio.WriteHotspots(&buf, report.Hotspots)
	case intelv1.ExportCenters:
		rows = len(report.Centers)
		err = csvio.WriteCenters(&buf, report.Centers)
	}
	if err != nil {
		return nil, s.internal("write csv", err)
	}
	return &intelv1.ExportResponse{
		Filename:    fmt.Sprintf("%s_%s.csv", req.Kind, report.GeneratedAt.Format("20060102")),
		ContentType: csvContentType,
		Data:        buf.Bytes(),
		Rows:        rows,
	}, nil
}

// analyze loads every stored event and runs the analytics pipeline. The replay limit is
// measured over the whole dataset, so the filter is applied in memory rather than in SQL.
func (s *Server) analyze(ctx context.Context, opts intelv1.AnalysisOptions) (*analytics.Report, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	params.Now = s.now()

	events, err := s.repo.List(ctx, repository.Query{})
	if err != nil {
		return nil, s.internal("load events", err)
	}
	report, err := analytics.Analyze(ctx, events, params)
	switch {
	case err == nil:
		return report, nil
	case errors.Is(err, analytics.ErrNoData):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, analytics.ErrInvalidParams):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	}
	return nil, s.internal("analyze", err)
}

// internal logs err and returns a generic Internal status so store details do not leak.
func (s *Server) internal(op string, err error) error {
	s.logger.Error("intel: "+op+" failed", zap.Error(err))
	return status.Error(codes.Internal, op+" failed")
}

func toQuery(f analytics.Filter) repository.Query {
	from, to := f.Window()
	return repository.Query{Groups: f.Groups, Regions: f.Regions, From: from, To: to}
}

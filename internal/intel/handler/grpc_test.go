package handler

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	intelv1 "geointel/api/intel/v1"
	"geointel/internal/alerting"
	"geointel/internal/analytics"
	"geointel/internal/db"
	"geointel/internal/db/migrate"
	"geointel/internal/event/domain"
	"geointel/internal/event/generator"
	"geointel/internal/event/repository"
	"geointel/internal/ingest"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// recordingEmitter collects emitted alerts.
type recordingEmitter struct {
	mu     sync.Mutex
	alerts []alerting.Alert
}

func (e *recordingEmitter) Emit(_ context.Context, a alerting.Alert) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, a)
	return nil
}

func (e *recordingEmitter) kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.alerts))
	for i, a := range e.alerts {
		out[i] = a.Kind
	}
	return out
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, *analytics.Report) ([]alerting.Alert, error) {
	return nil, errors.New("policy exploded")
}

func (failingEvaluator) HealthCheck(context.Context) error { return nil }

type fixture struct {
	client  intelv1.IntelServiceClient
	repo    *repository.SQLRepository
	emitter *recordingEmitter
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "intel.db")
	require.NoError(t, migrate.Run(dsn, "up"))
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	repo := repository.NewSQLiteRepository(conn)

	emitter := &recordingEmitter{}
	if len(opts) == 0 {
		evaluator, err := alerting.LoadOPAEvaluator("")
		require.NoError(t, err)
		opts = []Option{WithAlerts(evaluator, emitter)}
	}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	srv := NewServer(repo, ingest.NewService(ingest.NewRepositorySink(repo), "sync", nil), nil, opts...)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	intelv1.RegisterIntelServiceServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return &fixture{client: intelv1.NewIntelServiceClient(cc), repo: repo, emitter: emitter}
}

// hotspotEvents is a tight cluster of n Group A events over the last few days.
func hotspotEvents(n int) []domain.Event {
	out := make([]domain.Event, n)
	for i := range out {
		out[i] = domain.Event{
			Date:      now.AddDate(0, 0, -(i % 5)),
			Latitude:  30 + 0.001*float64(i%7),
			Longitude: 75 + 0.001*float64(i/7),
			Group:     "Group A",
			Region:    "North",
		}
	}
	return out
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), "error: %v", err)
}

func TestIngestEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.IngestEvents(ctx, &intelv1.IngestEventsRequest{Events: []intelv1.Event{
		{Date: now, Latitude: 30, Longitude: 75, Group: "Group A"},
		{Date: now, Latitude: 120, Longitude: 75},
		{ID: "fixed", Date: now, Latitude: 31, Longitude: 76, Region: "South"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 2, resp.Stored)
	assert.Equal(t, 1, resp.Rejected)
	assert.True(t, strings.HasPrefix(resp.FirstError, "event 1:"), resp.FirstError)

	_, err = f.client.IngestEvents(ctx, &intelv1.IngestEventsRequest{})
	requireCode(t, err, codes.InvalidArgument)
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := "date,latitude,longitude,group,region\n" +
		"2025-06-10,30,75,Group A,North\n" +
		"2025-06-11,31,76,Group B,South\n" +
		"2025-06-12,,75,Group A,North\n" +
		"2025-06-13,95,75,Group A,North\n"
	resp, err := f.client.ImportCSV(ctx, &intelv1.ImportCSVRequest{Data: []byte(data)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 2, resp.Stored)
	assert.Equal(t, 1, resp.Dropped)
	assert.Equal(t, 1, resp.Rejected)
	assert.NotEmpty(t, resp.FirstError)

	_, err = f.client.ImportCSV(ctx, &intelv1.ImportCSVRequest{Data: []byte("when,where\n1,2\n")})
	requireCode(t, err, codes.InvalidArgument)
	_, err = f.client.ImportCSV(ctx, &intelv1.ImportCSVRequest{})
	requireCode(t, err, codes.InvalidArgument)
}

func TestGenerateSynthetic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &intelv1.GenerateSyntheticRequest{Size: 200, Seed: 7, DaysBack: 30}
	resp, err := f.client.GenerateSynthetic(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Generated)
	assert.Equal(t, 200, resp.Stored)
	assert.Zero(t, resp.Deleted)

	// same seed on the same day yields the same IDs, so a second run stores nothing new
	resp, err = f.client.GenerateSynthetic(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, resp.Stored)

	req.Replace = true
	resp, err = f.client.GenerateSynthetic(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(200), resp.Deleted)
	assert.Equal(t, 200, resp.Stored)

	opts, err := f.client.GetFilterOptions(ctx, &intelv1.GetFilterOptionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(200), opts.Total)
	assert.NotEmpty(t, opts.Last)
}

func TestGenerateSynthetic_LaterDayAddsEvents(t *testing.T) {
	var daysLater atomic.Int64
	f := newFixture(t, WithClock(func() time.Time { return now.AddDate(0, 0, int(daysLater.Load())) }))
	ctx := context.Background()

	req := &intelv1.GenerateSyntheticRequest{Size: 50, Seed: 3, DaysBack: 10}
	resp, err := f.client.GenerateSynthetic(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 50, resp.Stored)

	daysLater.Store(1)
	resp, err = f.client.GenerateSynthetic(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 50, resp.Stored)

	opts, err := f.client.GetFilterOptions(ctx, &intelv1.GetFilterOptionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), opts.Total)
}

func TestGenerateSynthetic_SizeCap(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.GenerateSynthetic(context.Background(), &intelv1.GenerateSyntheticRequest{Size: generator.MaxSize + 1})
	requireCode(t, err, codes.InvalidArgument)

	_, err = f.client.GenerateSynthetic(context.Background(), &intelv1.GenerateSyntheticRequest{Scenario: "size: 5000000\n"})
	requireCode(t, err, codes.InvalidArgument)
}

func TestGenerateSynthetic_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.GenerateSynthetic(ctx, &intelv1.GenerateSyntheticRequest{
		Scenario: "size: 25\ngroups: [\"Red\"]\nregions: [\"Delta\"]\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, resp.Stored)

	opts, err := f.client.GetFilterOptions(ctx, &intelv1.GetFilterOptionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red"}, opts.Groups)
	assert.Equal(t, []string{"Delta"}, opts.Regions)

	_, err = f.client.GenerateSynthetic(ctx, &intelv1.GenerateSyntheticRequest{Scenario: "notes: []\n"})
	requireCode(t, err, codes.InvalidArgument)
	_, err = f.client.GenerateSynthetic(ctx, &intelv1.GenerateSyntheticRequest{Size: -1})
	requireCode(t, err, codes.InvalidArgument)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.repo.SaveBatch(ctx, []domain.Event{
		{ID: "a", Date: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), Latitude: 1, Longitude: 1, Group: "Group A", Region: "North"},
		{ID: "b", Date: time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC), Latitude: 2, Longitude: 2, Group: "Group A", Region: "South"},
		{ID: "c", Date: time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC), Latitude: 3, Longitude: 3, Group: "Group B", Region: "North"},
		{ID: "d", Date: time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC), Latitude: 4, Longitude: 4, Group: "Group A", Region: "North"},
	})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		req     *intelv1.ListEventsRequest
		wantIDs []string
		total   int64
	}{
		{"default page", &intelv1.ListEventsRequest{}, []string{"a", "b", "c", "d"}, 4},
		{"group", &intelv1.ListEventsRequest{Filter: intelv1.Filter{Groups: []string{"Group A"}}}, []string{"a", "b", "d"}, 3},
		{"end date inclusive", &intelv1.ListEventsRequest{Filter: intelv1.Filter{Start: "2025-06-02", End: "2025-06-02"}}, []string{"b"}, 1},
		{"start date alone is ignored", &intelv1.ListEventsRequest{Filter: intelv1.Filter{Start: "2025-06-03"}}, []string{"a", "b", "c", "d"}, 4},
		{"page", &intelv1.ListEventsRequest{Limit: 2, Offset: 1}, []string{"b", "c"}, 4},
		{"past the end", &intelv1.ListEventsRequest{Offset: 10}, []string{}, 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := f.client.ListEvents(ctx, tc.req)
			require.NoError(t, err)
			ids := make([]string, len(resp.Events))
			for i, e := range resp.Events {
				ids[i] = e.ID
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, tc.total, resp.Total)
		})
	}

	_, err = f.client.ListEvents(ctx, &intelv1.ListEventsRequest{Filter: intelv1.Filter{Start: "06/01/2025"}})
	requireCode(t, err, codes.InvalidArgument)
	_, err = f.client.ListEvents(ctx, &intelv1.ListEventsRequest{Filter: intelv1.Filter{Start: "2025-06-03", End: "2025-06-01"}})
	requireCode(t, err, codes.InvalidArgument)
	_, err = f.client.ListEvents(ctx, &intelv1.ListEventsRequest{Limit: -1})
	requireCode(t, err, codes.InvalidArgument)
}

func TestGetFilterOptions_EmptyStore(t *testing.T) {
	f := newFixture(t)
	resp, err := f.client.GetFilterOptions(context.Background(), &intelv1.GetFilterOptionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Groups)
	assert.Empty(t, resp.Regions)
	assert.Empty(t, resp.First)
	assert.Zero(t, resp.Total)
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Analyze(ctx, &intelv1.AnalyzeRequest{})
	requireCode(t, err, codes.FailedPrecondition)

	_, err = f.repo.SaveBatch(ctx, withIDs(hotspotEvents(60)))
	require.NoError(t, err)

	resp, err := f.client.Analyze(ctx, &intelv1.AnalyzeRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 60, resp.Report.KPIs.Total)
	assert.Len(t, resp.Report.MapEvents, 60)
	require.Len(t, resp.Report.Hotspots, 1)
	assert.Equal(t, 60, resp.Report.Hotspots[0].Count)
	assert.Equal(t, now, resp.Report.GeneratedAt)

	kinds := make([]string, len(resp.Alerts))
	for i, a := range resp.Alerts {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []string{"dense_hotspot", "group_dominance"}, kinds)
	assert.Eventually(t, func() bool { return len(f.emitter.kinds()) == 2 }, 2*time.Second, 10*time.Millisecond)

	resp, err = f.client.Analyze(ctx, &intelv1.AnalyzeRequest{OmitMapEvents: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Report.MapEvents)

	resp, err = f.client.Analyze(ctx, &intelv1.AnalyzeRequest{Options: intelv1.AnalysisOptions{
		Filter: intelv1.Filter{Groups: []string{"Group Z"}},
	}})
	requireCode(t, err, codes.FailedPrecondition)
	assert.Nil(t, resp)
}

func TestAnalyze_InvalidOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.repo.SaveBatch(ctx, withIDs(hotspotEvents(10)))
	require.NoError(t, err)

	testCases := []struct {
		name string
		opts intelv1.AnalysisOptions
	}{
		{"eps", intelv1.AnalysisOptions{Eps: 5}},
		{"metric", intelv1.AnalysisOptions{Metric: "manhattan"}},
		{"k", intelv1.AnalysisOptions{K: 40}},
		{"date", intelv1.AnalysisOptions{Filter: intelv1.Filter{End: "yesterday"}}},
		{"frame", intelv1.AnalysisOptions{Animate: true, AnimationSteps: 5, AnimationFrame: 9}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.client.Analyze(ctx, &intelv1.AnalyzeRequest{Options: tc.opts})
			requireCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestAnalyze_EvaluatorFailureKeepsReport(t *testing.T) {
	f := newFixture(t, WithAlerts(failingEvaluator{}, nil))
	ctx := context.Background()
	_, err := f.repo.SaveBatch(ctx, withIDs(hotspotEvents(60)))
	require.NoError(t, err)

	resp, err := f.client.Analyze(ctx, &intelv1.AnalyzeRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Report)
	assert.Empty(t, resp.Alerts)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.repo.SaveBatch(ctx, withIDs(hotspotEvents(60)))
	require.NoError(t, err)

	resp, err := f.client.Export(ctx, &intelv1.ExportRequest{Kind: intelv1.ExportEvents})
	require.NoError(t, err)
	assert.Equal(t, "events_20250615.csv", resp.Filename)
	assert.Equal(t, "text/csv", resp.ContentType)
	assert.Equal(t, 60, resp.Rows)
	lines := strings.Split(strings.TrimSpace(string(resp.Data)), "\n")
	assert.Len(t, lines, 61)
	assert.Equal(t, "date,latitude,longitude,group,region,note,cluster", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",0"), lines[1])

	resp, err = f.client.Export(ctx, &intelv1.ExportRequest{Kind: intelv1.ExportHotspots})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Rows)
	assert.True(t, strings.HasPrefix(string(resp.Data), "cluster,count,latitude,longitude,top_group\n0,60,"))

	resp, err = f.client.Export(ctx, &intelv1.ExportRequest{Kind: intelv1.ExportCenters, Options: intelv1.AnalysisOptions{K: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Rows)

	_, err = f.client.Export(ctx, &intelv1.ExportRequest{Kind: "pdf"})
	requireCode(t, err, codes.InvalidArgument)
	_, err = f.client.Export(ctx, &intelv1.ExportRequest{})
	requireCode(t, err, codes.InvalidArgument)
}

func TestToFilterAndQuery(t *testing.T) {
	f, err := intelv1.Filter{Groups: []string{"A"}, Start: "2025-01-02", End: "2025-01-03"}.Analytics()
	require.NoError(t, err)
	q := toQuery(f)
	assert.Equal(t, []string{"A"}, q.Groups)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), q.From)
	assert.Equal(t, time.Date(2025, 1, 3, 23, 59, 59, 0, time.UTC), q.To)
	assert.Zero(t, q.Limit)

	f, err = intelv1.Filter{}.Analytics()
	require.NoError(t, err)
	assert.Equal(t, repository.Query{}, toQuery(f))
}

func withIDs(events []domain.Event) []domain.Event {
	for i := range events {
		events[i].ID = "evt-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
	}
	return events
}

package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"geointel/internal/event/domain"
)

// Report is everything a dashboard needs to render one view of the data.
type Report struct {
	Params      Params    `json:"params"`
	GeneratedAt time.Time `json:"generated_at"`
	KPIs        KPIs      `json:"kpis"`

	// Center and Zoom describe the initial map view.
	Center Point `json:"center"`
	Zoom   int   `json:"zoom"`
	// MapEvents are the events plotted on the map: the replay window, or the current
	// animation frame when Params.Animate is set.
	MapEvents     []domain.Event `json:"map_events"`
	ReplayDays    int            `json:"replay_days"`
	MaxReplayDays int            `json:"max_replay_days"`
	// DaysShown is the trailing window of the animation frame (0 when not animating).
	DaysShown int `json:"days_shown,omitempty"`

	Hotspots   []Hotspot `json:"hotspots"`
	NoiseCount int       `json:"noise_count"`
	Centers    []Center  `json:"centers"`

	TimeSeries []DailyCount    `json:"time_series"`
	Groups     []CategoryCount `json:"groups"`
	TopGroups  []CategoryCount `json:"top_groups"`
	Regions    []CategoryCount `json:"regions"`
	Insights   Insights        `json:"insights"`

	// Filtered and Labels are the filtered events and their DBSCAN labels, kept for
	// exports rather than sent to clients.
	Filtered []domain.Event `json:"-"`
	Labels   []int          `json:"-"`
}

// Analyze filters events with p and computes the full report. Independent stages run
// concurrently and stop early if ctx is cancelled. It returns ErrNoData when the filter
// leaves nothing and an ErrInvalidParams wrap for out-of-range parameters.
func Analyze(ctx context.Context, events []domain.Event, p Params) (*Report, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	filtered := p.Filter.Apply(events)
	if len(filtered) == 0 {
		return nil, ErrNoData
	}

	r := &Report{
		Params:        p,
		GeneratedAt:   p.Now,
		Zoom:          DefaultZoom,
		Filtered:      filtered,
		MaxReplayDays: MaxReplayDays(events, p.Now),
	}
	r.ReplayDays = ClampReplayDays(p.ReplayDays, r.MaxReplayDays)

	pts := make([]Point, len(filtered))
	for i := range filtered {
		pts[i] = Point{Latitude: filtered[i].Latitude, Longitude: filtered[i].Longitude}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.KPIs = ComputeKPIs(filtered)
		r.Center = MeanCenter(filtered)
		return nil
	})

	g.Go(func() error {
		if p.Animate {
			r.DaysShown = AnimationDays(r.ReplayDays, p.AnimationSteps, p.AnimationFrame)
			r.MapEvents = AnimationFrame(filtered, p.Now, r.ReplayDays, p.AnimationSteps, p.AnimationFrame)
		} else {
			r.MapEvents = ReplayWindow(filtered, p.Now, r.ReplayDays)
		}
		return nil
	})

	g.Go(func() error {
		labels, err := DBSCAN(gctx, pts, p.DBSCAN)
		if err != nil {
			return err
		}
		r.Labels = labels
		r.Hotspots = SummarizeClusters(filtered, labels)
		r.NoiseCount = CountNoise(labels)
		return nil
	})

	g.Go(func() error {
		centers, err := KMeans(gctx, pts, p.KMeans)
		if err != nil {
			return err
		}
		r.Centers = centers
		return nil
	})

	g.Go(func() error {
		r.TimeSeries = DailySeries(filtered)
		r.Groups = GroupBreakdown(filtered)
		r.TopGroups = Top(r.Groups, TopGroupsLimit)
		r.Regions = RegionBreakdown(filtered)
		r.Insights = ComputeInsights(filtered, r.TimeSeries)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

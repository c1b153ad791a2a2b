package intelv1

import (
	"errors"
	"fmt"
	"time"

	"geointel/internal/alerting"
	"geointel/internal/analytics"
	"geointel/internal/event/domain"
)

// Wire types shared with the analysis core.
type (
	Event         = domain.Event
	Report        = analytics.Report
	Alert         = alerting.Alert
	Hotspot       = analytics.Hotspot
	Center        = analytics.Center
	CategoryCount = analytics.CategoryCount
)

// Export kinds.
const (
	ExportEvents   = "events"
	ExportHotspots = "hotspots"
	ExportCenters  = "centers"
)

// Filter narrows events. Start and End are calendar dates (YYYY-MM-DD); End is inclusive.
type Filter struct {
	Groups  []string `json:"groups,omitempty"`
	Regions []string `json:"regions,omitempty"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
}

type IngestEventsRequest struct {
	Events []Event `json:"events"`
}

type IngestEventsResponse struct {
	Accepted   int    `json:"accepted"`
	Stored     int    `json:"stored"`
	Rejected   int    `json:"rejected"`
	FirstError string `json:"first_error,omitempty"`
}

// ImportCSVRequest carries a CSV file with at least date, latitude and longitude columns.
type ImportCSVRequest struct {
	Data []byte `json:"data"`
}

type ImportCSVResponse struct {
	Accepted int `json:"accepted"`
	Stored   int `json:"stored"`
	// Malformed counts lines the CSV parser could not read; Dropped counts rows with an
	// unparseable date or coordinate; Rejected counts rows failing event validation.
	Malformed  int    `json:"malformed"`
	Dropped    int    `json:"dropped"`
	Rejected   int    `json:"rejected"`
	FirstError string `json:"first_error,omitempty"`
}

// GenerateSyntheticRequest generates a synthetic dataset and ingests it. Scenario, when
// set, is a YAML scenario document; Size, Seed and DaysBack override it when non-zero.
// Size is capped at 1,000,000. Event IDs derive from the seed and the server's calendar
// day, so repeating a request on the same day stores nothing new unless Replace is set.
type GenerateSyntheticRequest struct {
	Scenario string `json:"scenario,omitempty"`
	Size     int    `json:"size,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`
	DaysBack int    `json:"days_back,omitempty"`
	// Replace deletes every stored event first.
	Replace bool `json:"replace,omitempty"`
}

type GenerateSyntheticResponse struct {
	Generated int   `json:"generated"`
	Stored    int   `json:"stored"`
	Deleted   int64 `json:"deleted"`
}

type ListEventsRequest struct {
	Filter Filter `json:"filter"`
	// Limit defaults to 100 and is capped at 1000.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListEventsResponse struct {
	Events []Event `json:"events"`
	Total  int64   `json:"total"`
}

type GetFilterOptionsRequest struct{}

type GetFilterOptionsResponse struct {
	Groups  []string `json:"groups"`
	Regions []string `json:"regions"`
	// First and Last are the stored date bounds (YYYY-MM-DD); empty when the store is empty.
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Total int64  `json:"total"`
}

// AnalysisOptions mirrors the dashboard controls. Zero values take the server defaults.
type AnalysisOptions struct {
	Filter         Filter  `json:"filter"`
	ReplayDays     int     `json:"replay_days,omitempty"`
	Animate        bool    `json:"animate,omitempty"`
	AnimationSteps int     `json:"animation_steps,omitempty"`
	AnimationFrame int     `json:"animation_frame,omitempty"`
	Eps            float64 `json:"eps,omitempty"`
	MinSamples     int     `json:"min_samples,omitempty"`
	// Metric is "euclidean" (eps in degrees, default) or "haversine" (eps in km).
	Metric string `json:"metric,omitempty"`
	K      int    `json:"k,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
}

type AnalyzeRequest struct {
	Options AnalysisOptions `json:"options"`
	// OmitMapEvents drops Report.MapEvents from the response.
	OmitMapEvents bool `json:"omit_map_events,omitempty"`
}

type AnalyzeResponse struct {
	Report *Report `json:"report"`
	Alerts []Alert `json:"alerts"`
}

type ExportRequest struct {
	// Kind is one of ExportEvents, ExportHotspots or ExportCenters.
	Kind    string          `json:"kind"`
	Options AnalysisOptions `json:"options"`
}

type ExportResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Rows        int    `json:"rows"`
}

// DateLayout is the calendar date format used by Filter and GetFilterOptionsResponse.
const DateLayout = "2006-01-02"

// Analytics converts f to an analytics.Filter, rejecting malformed or inverted dates.
func (f Filter) Analytics() (analytics.Filter, error) {
	out := analytics.Filter{Groups: f.Groups, Regions: f.Regions}
	var err error
	if f.Start != "" {
		if out.Start, err = time.Parse(DateLayout, f.Start); err != nil {
			return analytics.Filter{}, fmt.Errorf("invalid start date %q: want YYYY-MM-DD", f.Start)
		}
	}
	if f.End != "" {
		if out.End, err = time.Parse(DateLayout, f.End); err != nil {
			return analytics.Filter{}, fmt.Errorf("invalid end date %q: want YYYY-MM-DD", f.End)
		}
	}
	if !out.Start.IsZero() && !out.End.IsZero() && out.End.Before(out.Start) {
		return analytics.Filter{}, errors.New("end date before start date")
	}
	return out, nil
}

// Params converts o to analytics parameters. Zero fields are left for Analyze to default;
// range checks happen there too.
func (o AnalysisOptions) Params() (analytics.Params, error) {
	f, err := o.Filter.Analytics()
	if err != nil {
		return analytics.Params{}, err
	}
	return analytics.Params{
		Filter:         f,
		ReplayDays:     o.ReplayDays,
		Animate:        o.Animate,
		AnimationSteps: o.AnimationSteps,
		AnimationFrame: o.AnimationFrame,
		DBSCAN: analytics.DBSCANParams{
			Eps:        o.Eps,
			MinSamples: o.MinSamples,
			Metric:     analytics.Metric(o.Metric),
		},
		KMeans: analytics.KMeansParams{K: o.K, Seed: o.Seed},
	}, nil
}

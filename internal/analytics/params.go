// Package analytics turns a set of GPS events into the metrics, hotspots and insights a
// dashboard renders: filtering, timeline replay, DBSCAN density hotspots, KMeans predicted
// centers, daily series, breakdowns and auto insights.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData is returned by Analyze when no event survives the filter.
	ErrNoData = errors.New("no data after applying filters")
	// ErrInvalidParams wraps every parameter validation failure.
	ErrInvalidParams = errors.New("invalid analysis parameters")
)

// Metric selects the DBSCAN distance function.
type Metric string

const (
	// MetricEuclidean measures distance in raw degrees of (latitude, longitude).
	MetricEuclidean Metric = "euclidean"
	// MetricHaversine measures great-circle distance; eps is then in kilometres.
	MetricHaversine Metric = "haversine"
)

// Parameter bounds exposed to clients (sliders in the dashboard).
const (
	MinEpsDegrees     = 0.01
	MaxEpsDegrees     = 1.0
	MaxEpsKilometres  = 500.0
	MinSamplesLow     = 3
	MinSamplesHigh    = 30
	MinClusters       = 2
	MaxClusters       = 12
	MinAnimationSteps = 5
	MaxAnimationSteps = 50
	// TopGroupsLimit is the number of rows in Report.TopGroups.
	TopGroupsLimit = 6
	// DefaultZoom is the initial map zoom suggested to renderers.
	DefaultZoom = 5
)

// DBSCANParams configures hotspot detection.
type DBSCANParams struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
	Metric     Metric  `json:"metric"`
}

// KMeansParams configures predicted centers. Seed, NInit and MaxIter default when zero.
type KMeansParams struct {
	K       int    `json:"k"`
	Seed    uint64 `json:"seed"`
	NInit   int    `json:"n_init"`
	MaxIter int    `json:"max_iter"`
}

// Params is the full set of inputs to Analyze.
type Params struct {
	Filter Filter `json:"filter"`
	// ReplayDays is the "last N days" window shown on the map; clamped to [1, MaxReplayDays].
	ReplayDays int  `json:"replay_days"`
	Animate    bool `json:"animate"`
	// AnimationSteps and AnimationFrame select a progressive frame when Animate is set.
	AnimationSteps int          `json:"animation_steps"`
	AnimationFrame int          `json:"animation_frame"`
	DBSCAN         DBSCANParams `json:"dbscan"`
	KMeans         KMeansParams `json:"kmeans"`
	// Now anchors replay windows; zero means the current time.
	Now time.Time `json:"now"`
}

// DefaultParams mirrors the dashboard's initial slider positions.
func DefaultParams() Params {
	return Params{
		ReplayDays:     90,
		AnimationSteps: 12,
		AnimationFrame: 12,
		DBSCAN:         DBSCANParams{Eps: 0.08, MinSamples: 6, Metric: MetricEuclidean},
		KMeans:         KMeansParams{K: 4, Seed: 42, NInit: 1, MaxIter: 300},
	}
}

// withDefaults fills zero-valued optional fields.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ReplayDays == 0 {
		p.ReplayDays = d.ReplayDays
	}
	if p.AnimationSteps == 0 {
		p.AnimationSteps = d.AnimationSteps
	}
	if p.AnimationFrame == 0 {
		p.AnimationFrame = p.AnimationSteps
	}
	if p.DBSCAN.Metric == "" {
		p.DBSCAN.Metric = MetricEuclidean
	}
	if p.DBSCAN.Eps == 0 {
		p.DBSCAN.Eps = d.DBSCAN.Eps
	}
	if p.DBSCAN.MinSamples == 0 {
		p.DBSCAN.MinSamples = d.DBSCAN.MinSamples
	}
	if p.KMeans.K == 0 {
		p.KMeans.K = d.KMeans.K
	}
	if p.KMeans.Seed == 0 {
		p.KMeans.Seed = d.KMeans.Seed
	}
	if p.KMeans.NInit == 0 {
		p.KMeans.NInit = d.KMeans.NInit
	}
	if p.KMeans.MaxIter == 0 {
		p.KMeans.MaxIter = d.KMeans.MaxIter
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	p.Now = p.Now.UTC()
	return p
}

// Validate checks slider ranges. It is called after defaults are applied.
func (p Params) Validate() error {
	switch p.DBSCAN.Metric {
	case MetricEuclidean:
		if p.DBSCAN.Eps < MinEpsDegrees || p.DBSCAN.Eps > MaxEpsDegrees {
			return fmt.Errorf("%w: eps %v outside [%v, %v] degrees", ErrInvalidParams, p.DBSCAN.Eps, MinEpsDegrees, MaxEpsDegrees)
		}
	case MetricHaversine:
		if p.DBSCAN.Eps <= 0 || p.DBSCAN.Eps > MaxEpsKilometres {
			return fmt.Errorf("%w: eps %v outside (0, %v] km", ErrInvalidParams, p.DBSCAN.Eps, MaxEpsKilometres)
		}
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidParams, p.DBSCAN.Metric)
	}
	if p.DBSCAN.MinSamples < MinSamplesLow || p.DBSCAN.MinSamples > MinSamplesHigh {
		return fmt.Errorf("%w: min samples %d outside [%d, %d]", ErrInvalidParams, p.DBSCAN.MinSamples, MinSamplesLow, MinSamplesHigh)
	}
	if p.KMeans.K < MinClusters || p.KMeans.K > MaxClusters {
		return fmt.Errorf("%w: k %d outside [%d, %d]", ErrInvalidParams, p.KMeans.K, MinClusters, MaxClusters)
	}
	if p.KMeans.NInit < 1 || p.KMeans.MaxIter < 1 {
		return fmt.Errorf("%w: n_init and max_iter must be positive", ErrInvalidParams)
	}
	if p.Animate {
		if p.AnimationSteps < MinAnimationSteps || p.AnimationSteps > MaxAnimationSteps {
			return fmt.Errorf("%w: animation steps %d outside [%d, %d]", ErrInvalidParams, p.AnimationSteps, MinAnimationSteps, MaxAnimationSteps)
		}
		if p.AnimationFrame < 1 || p.AnimationFrame > p.AnimationSteps {
			return fmt.Errorf("%w: animation frame %d outside [1, %d]", ErrInvalidParams, p.AnimationFrame, p.AnimationSteps)
		}
	}
	if !p.Filter.Start.IsZero() && !p.Filter.End.IsZero() && p.Filter.End.Before(p.Filter.Start) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidParams)
	}
	return nil
}

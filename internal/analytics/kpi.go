package analytics

import "geointel/internal/event/domain"

// KPIs are the headline numbers of a filtered dataset.
type KPIs struct {
	Total        int `json:"total"`
	UniqueGroups int `json:"unique_groups"`
	Regions      int `json:"regions"`
	// TimeSpanDays is the whole number of days between the first and last event.
	TimeSpanDays int `json:"time_span_days"`
}

// ComputeKPIs summarises events. An empty slice yields zero KPIs.
func ComputeKPIs(events []domain.Event) KPIs {
	groups := make(map[string]struct{})
	regions := make(map[string]struct{})
	for i := range events {
		groups[events[i].Group] = struct{}{}
		regions[events[i].Region] = struct{}{}
	}
	k := KPIs{Total: len(events), UniqueGroups: len(groups), Regions: len(regions)}
	if first, last, ok := dateBounds(events); ok {
		k.TimeSpanDays = int(last.Sub(first) / day)
	}
	return k
}

// Point is a map position.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MeanCenter is the arithmetic mean position of events, used to centre the map view.
func MeanCenter(events []domain.Event) Point {
	if len(events) == 0 {
		return Point{}
	}
	var lat, lon float64
	for i := range events {
		lat += events[i].Latitude
		lon += events[i].Longitude
	}
	n := float64(len(events))
	return Point{Latitude: lat / n, Longitude: lon / n}
}

package analytics

import (
	"time"

	"geointel/internal/event/domain"
)

// Filter narrows a dataset by group, region and calendar date range.
// Empty Groups or Regions select everything. Start and End are calendar dates: End is
// inclusive through 23:59:59 of that day. The date range applies only when both are set;
// a half-open range selects the whole dataset.
type Filter struct {
	Groups  []string  `json:"groups,omitempty"`
	Regions []string  `json:"regions,omitempty"`
	Start   time.Time `json:"start,omitempty"`
	End     time.Time `json:"end,omitempty"`
}

// Window returns the effective [from, to] bounds, or two zero times when the range is
// not fully set.
func (f Filter) Window() (from, to time.Time) {
	if f.Start.IsZero() || f.End.IsZero() {
		return time.Time{}, time.Time{}
	}
	return truncateDay(f.Start), truncateDay(f.End).Add(24*time.Hour - time.Second)
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *domain.Event) bool {
	if len(f.Groups) > 0 && !contains(f.Groups, e.Group) {
		return false
	}
	if len(f.Regions) > 0 && !contains(f.Regions, e.Region) {
		return false
	}
	from, to := f.Window()
	if !from.IsZero() && e.Date.Before(from) {
		return false
	}
	if !to.IsZero() && e.Date.After(to) {
		return false
	}
	return true
}

// Apply returns the matching events in input order. The input slice is not modified.
func (f Filter) Apply(events []domain.Event) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for i := range events {
		if f.Match(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// dateBounds returns the earliest and latest event dates; ok is false for an empty slice.
func dateBounds(events []domain.Event) (first, last time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = events[0].Date, events[0].Date
	for i := 1; i < len(events); i++ {
		d := events[i].Date
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, true
}

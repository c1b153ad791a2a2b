package analytics

import (
	"sort"
	"time"

	"geointel/internal/event/domain"
)

// DailyCount is the number of incidents on one calendar day (UTC).
type DailyCount struct {
	Date      time.Time `json:"date"`
	Incidents int       `json:"incidents"`
}

// CategoryCount is a label with its incident count.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailySeries counts incidents per UTC calendar day, ascending by date. Days without
// incidents are omitted.
func DailySeries(events []domain.Event) []DailyCount {
	counts := make(map[time.Time]int)
	for i := range events {
		counts[truncateDay(events[i].Date)]++
	}
	out := make([]DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DailyCount{Date: d, Incidents: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GroupBreakdown counts incidents per group, by count descending then name.
func GroupBreakdown(events []domain.Event) []CategoryCount {
	return breakdown(events, func(e *domain.Event) string { return e.Group })
}

// RegionBreakdown counts incidents per region, by count descending then name.
func RegionBreakdown(events []domain.Event) []CategoryCount {
	return breakdown(events, func(e *domain.Event) string { return e.Region })
}

// Top returns at most n leading entries of an already sorted breakdown.
func Top(counts []CategoryCount, n int) []CategoryCount {
	if n < 0 {
		n = 0
	}
	if len(counts) <= n {
		return counts
	}
	return counts[:n]
}

func breakdown(events []domain.Event, key func(*domain.Event) string) []CategoryCount {
	counts := make(map[string]int)
	for i := range events {
		counts[key(&events[i])]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

package analytics

import (
	"time"

	"geointel/internal/event/domain"
)

// Insights are the automatic one-line takeaways of a dataset.
type Insights struct {
	DominantGroup string `json:"dominant_group"`
	// DominantGroupShare is the dominant group's fraction of all incidents, in [0, 1].
	DominantGroupShare float64 `json:"dominant_group_share"`
	DominantRegion     string  `json:"dominant_region"`
	// PeakMonth is the calendar month (1-12) with the most incidents across all years.
	PeakMonth int `json:"peak_month"`
	// BusiestDay and BusiestDayCount identify the single day with the most incidents.
	BusiestDay      time.Time `json:"busiest_day"`
	BusiestDayCount int       `json:"busiest_day_count"`
	// MeanDailyCount averages incidents over days that have at least one.
	MeanDailyCount float64 `json:"mean_daily_count"`
}

// ComputeInsights derives Insights from events and their daily series. Ties resolve
// to the alphabetically first label, the lowest month and the earliest day.
func ComputeInsights(events []domain.Event, series []DailyCount) Insights {
	var in Insights
	if len(events) == 0 {
		return in
	}

	groups := GroupBreakdown(events)
	in.DominantGroup = groups[0].Name
	in.DominantGroupShare = float64(groups[0].Count) / float64(len(events))
	in.DominantRegion = RegionBreakdown(events)[0].Name

	var months [13]int
	for i := range events {
		months[events[i].Date.Month()]++
	}
	for m := 1; m <= 12; m++ {
		if months[m] > months[in.PeakMonth] {
			in.PeakMonth = m
		}
	}

	total := 0
	for _, d := range series {
		total += d.Incidents
		if d.Incidents > in.BusiestDayCount {
			in.BusiestDay, in.BusiestDayCount = d.Date, d.Incidents
		}
	}
	if len(series) > 0 {
		in.MeanDailyCount = float64(total) / float64(len(series))
	}
	return in
}

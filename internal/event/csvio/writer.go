package csvio

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"geointel/internal/analytics"
	"geointel/internal/event/domain"
)

// WriteEvents writes events with a header row. When labels is non-nil it must be aligned
// with events and a trailing cluster column carries each DBSCAN label.
func WriteEvents(w io.Writer, events []domain.Event, labels []int) error {
	cw := csv.NewWriter(w)
	header := []string{"date", "latitude", "longitude", "group", "region", "note"}
	if labels != nil {
		header = append(header, "cluster")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i := range events {
		e := &events[i]
		rec[0] = e.Date.UTC().Format(time.RFC3339)
		rec[1] = formatFloat(e.Latitude)
		rec[2] = formatFloat(e.Longitude)
		rec[3] = e.Group
		rec[4] = e.Region
		rec[5] = e.Note
		if labels != nil {
			rec[6] = strconv.Itoa(labels[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHotspots writes DBSCAN cluster summaries.
func WriteHotspots(w io.Writer, hotspots []analytics.Hotspot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cluster", "count", "latitude", "longitude", "top_group"}); err != nil {
		return err
	}
	for _, h := range hotspots {
		if err := cw.Write([]string{
			strconv.Itoa(h.Cluster),
			strconv.Itoa(h.Count),
			formatFloat(h.Latitude),
			formatFloat(h.Longitude),
			h.TopGroup,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCenters writes KMeans centroids.
func WriteCenters(w io.Writer, centers []analytics.Center) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cluster", "latitude", "longitude"}); err != nil {
		return err
	}
	for _, c := range centers {
		if err := cw.Write([]string{
			strconv.Itoa(c.Cluster),
			formatFloat(c.Latitude),
			formatFloat(c.Longitude),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

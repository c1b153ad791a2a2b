// Package csvio reads GPS events from CSV uploads and writes analysis outputs back as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"geointel/internal/event/domain"
)

// ErrMissingColumns is returned when the header lacks date, latitude or longitude.
var ErrMissingColumns = errors.New("csv: header must contain date, latitude and longitude")

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ImportResult is the outcome of Read.
type ImportResult struct {
	Events []domain.Event
	// Malformed counts lines whose field count did not match the header.
	Malformed int
	// Dropped counts rows missing a parseable date, latitude or longitude.
	Dropped int
}

// Read parses events from r. The first record is the header; column names are matched
// case-insensitively and may appear in any order. Malformed lines are skipped and rows
// without a usable date or position are dropped, both counted in the result.
func Read(r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingColumns
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cols := indexColumns(header)
	for _, required := range []string{"date", "latitude", "longitude"} {
		if _, ok := cols[required]; !ok {
			return nil, ErrMissingColumns
		}
	}

	res := &ImportResult{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Malformed++
				continue
			}
			return nil, fmt.Errorf("csv: %w", err)
		}
		e, ok := parseRecord(rec, cols)
		if !ok {
			res.Dropped++
			continue
		}
		res.Events = append(res.Events, e)
	}
	return res, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func parseRecord(rec []string, cols map[string]int) (domain.Event, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, ok := parseDate(field("date"))
	if !ok {
		return domain.Event{}, false
	}
	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return domain.Event{}, false
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return domain.Event{}, false
	}
	return domain.Event{
		ID:        field("id"),
		Date:      date,
		Latitude:  lat,
		Longitude: lon,
		Group:     field("group"),
		Region:    field("region"),
		Note:      field("note"),
	}, true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	e := Event{
		Date:   time.Date(2025, 3, 1, 5, 30, 0, 0, loc),
		Group:  "  ",
		Region: " North ",
		Note:   " meeting ",
	}
	e.Normalize()
	if e.Group != UnknownLabel {
		t.Errorf("Group = %q, want %q", e.Group, UnknownLabel)
	}
	if e.Region != "North" {
		t.Errorf("Region = %q, want North", e.Region)
	}
	if e.Note != "meeting" {
		t.Errorf("Note = %q, want meeting", e.Note)
	}
	if e.Date.Location() != time.UTC || e.Date.Hour() != 0 {
		t.Errorf("Date = %v, want 2025-03-01 00:00 UTC", e.Date)
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"valid", Event{Date: now, Latitude: 23.5, Longitude: 70}, false},
		{"bounds inclusive", Event{Date: now, Latitude: -90, Longitude: 180}, false},
		{"missing date", Event{Latitude: 1, Longitude: 1}, true},
		{"latitude too high", Event{Date: now, Latitude: 90.5, Longitude: 1}, true},
		{"longitude too low", Event{Date: now, Latitude: 1, Longitude: -181}, true},
		{"nan latitude", Event{Date: now, Latitude: math.NaN(), Longitude: 1}, true},
		{"inf longitude", Event{Date: now, Latitude: 1, Longitude: math.Inf(1)}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("Validate = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

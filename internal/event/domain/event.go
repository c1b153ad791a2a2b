package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// UnknownLabel replaces empty group and region labels.
const UnknownLabel = "unknown"

// ErrInvalidEvent is returned by Validate; the wrapped message names the offending field.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a single GPS observation attributed to an actor group within a region.
type Event struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Group     string    `json:"group"`
	Region    string    `json:"region"`
	Note      string    `json:"note,omitempty"`
}

// Normalize trims labels, fills empty group/region with UnknownLabel and converts Date to UTC.
func (e *Event) Normalize() {
	e.Group = strings.TrimSpace(e.Group)
	if e.Group == "" {
		e.Group = UnknownLabel
	}
	e.Region = strings.TrimSpace(e.Region)
	if e.Region == "" {
		e.Region = UnknownLabel
	}
	e.Note = strings.TrimSpace(e.Note)
	if !e.Date.IsZero() {
		e.Date = e.Date.UTC()
	}
}

// Validate checks that the event carries a date and a finite coordinate on the globe.
func (e *Event) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if math.IsNaN(e.Latitude) || math.IsInf(e.Latitude, 0) || e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidEvent, e.Latitude)
	}
	if math.IsNaN(e.Longitude) || math.IsInf(e.Longitude, 0) || e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidEvent, e.Longitude)
	}
	return nil
}

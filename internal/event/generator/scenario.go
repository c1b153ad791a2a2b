// Package generator produces synthetic GPS event datasets for demos, seeding and tests.
package generator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bounds is a half-open coordinate interval [Min, Max).
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Scenario describes the theatre a synthetic dataset is drawn from.
type Scenario struct {
	Size      int      `yaml:"size"`
	Seed      uint64   `yaml:"seed"`
	DaysBack  int      `yaml:"days_back"`
	Groups    []string `yaml:"groups"`
	Regions   []string `yaml:"regions"`
	Notes     []string `yaml:"notes"`
	Latitude  Bounds   `yaml:"latitude"`
	Longitude Bounds   `yaml:"longitude"`
}

// MaxSize bounds one generated dataset; Generate allocates it in full.
const MaxSize = 1_000_000

// DefaultScenario is a two-year, 15000-event dataset over the Indian subcontinent.
func DefaultScenario() Scenario {
	return Scenario{
		Size:      15000,
		Seed:      42,
		DaysBack:  730,
		Groups:    []string{"Group A", "Group B", "Group C", "Group D", "Group E"},
		Regions:   []string{"North", "South", "East", "West", "Central"},
		Notes:     []string{"checkpoint", "movement", "meeting", "incident", "unknown"},
		Latitude:  Bounds{Min: 23.0, Max: 37.0},
		Longitude: Bounds{Min: 68.0, Max: 89.0},
	}
}

// LoadScenario reads a YAML scenario file. Fields left out of the file keep their
// DefaultScenario values.
func LoadScenario(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: %w", err)
	}
	return ParseScenario(b)
}

// ParseScenario decodes a YAML scenario document over DefaultScenario and validates it.
func ParseScenario(doc []byte) (Scenario, error) {
	s := DefaultScenario()
	if err := yaml.Unmarshal(doc, &s); err != nil {
		return Scenario{}, fmt.Errorf("scenario: parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate rejects scenarios that cannot produce a dataset.
func (s Scenario) Validate() error {
	switch {
	case s.Size < 1:
		return errors.New("scenario: size must be at least 1")
	case s.Size > MaxSize:
		return fmt.Errorf("scenario: size must be at most %d", MaxSize)
	case s.DaysBack < 1:
		return errors.New("scenario: days_back must be at least 1")
	case len(s.Groups) == 0:
		return errors.New("scenario: groups must not be empty")
	case len(s.Regions) == 0:
		return errors.New("scenario: regions must not be empty")
	case len(s.Notes) == 0:
		return errors.New("scenario: notes must not be empty")
	case s.Latitude.Min >= s.Latitude.Max || s.Latitude.Min < -90 || s.Latitude.Max > 90:
		return fmt.Errorf("scenario: invalid latitude bounds [%v, %v)", s.Latitude.Min, s.Latitude.Max)
	case s.Longitude.Min >= s.Longitude.Max || s.Longitude.Min < -180 || s.Longitude.Max > 180:
		return fmt.Errorf("scenario: invalid longitude bounds [%v, %v)", s.Longitude.Min, s.Longitude.Max)
	}
	return nil
}

// Package alerting evaluates Rego alert rules against analysis reports.
package alerting

import (
	"context"

	"geointel/internal/analytics"
)

// Severity levels, ordered high to low.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Alert is one rule hit.
type Alert struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Evaluator turns a report into alerts.
type Evaluator interface {
	Evaluate(ctx context.Context, report *analytics.Report) ([]Alert, error)
	// HealthCheck evaluates the active policy against a minimal input.
	HealthCheck(ctx context.Context) error
}

func severityRank(s string) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

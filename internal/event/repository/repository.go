// Package repository persists GPS events in Postgres or SQLite.
package repository

import (
	"context"
	"time"

	"geointel/internal/event/domain"
)

// Query selects stored events. Empty Groups/Regions match every value; a zero From or To
// leaves that side of the time range open. Limit <= 0 returns every matching row.
type Query struct {
	Groups  []string
	Regions []string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// Options describes the values available for filtering the stored events.
type Options struct {
	Groups  []string
	Regions []string
	First   time.Time
	Last    time.Time
	Total   int64
}

// Repository defines persistence for GPS events.
type Repository interface {
	// SaveBatch inserts events in a single transaction. Events whose ID already exists are
	// skipped; the return value counts rows actually inserted.
	SaveBatch(ctx context.Context, events []domain.Event) (int, error)
	// List returns matching events ordered by date, then ID.
	List(ctx context.Context, q Query) ([]domain.Event, error)
	// Count returns the number of events matching q, ignoring Limit and Offset.
	Count(ctx context.Context, q Query) (int64, error)
	// Options returns distinct groups and regions (sorted) plus the stored date range.
	Options(ctx context.Context) (*Options, error)
	// DeleteAll removes every stored event and returns how many were deleted.
	DeleteAll(ctx context.Context) (int64, error)
}

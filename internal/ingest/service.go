// Package ingest validates incoming GPS events and hands them to a sink: the store
// directly (sync mode) or a Kafka topic drained by the worker (async mode).
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"geointel/internal/event/domain"
)

// Sink receives validated events.
type Sink interface {
	// Write persists or enqueues events and returns how many were taken. A repository sink
	// reports rows inserted (duplicates excluded); a queue sink reports messages published.
	Write(ctx context.Context, events []domain.Event) (int, error)
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

// Result summarises one ingest call.
type Result struct {
	Accepted   int
	Stored     int
	Rejected   int
	FirstError string
}

// Service normalises and validates events before writing them to its sink.
type Service struct {
	sink     Sink
	mode     string
	logger   *zap.Logger
	accepted metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService returns a Service writing to sink. mode labels metrics ("sync" or "async").
func NewService(sink Sink, mode string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter("geointel/ingest")
	accepted, _ := meter.Int64Counter("geointel.ingest.accepted", metric.WithDescription("GPS events accepted for ingest"))
	rejected, _ := meter.Int64Counter("geointel.ingest.rejected", metric.WithDescription("GPS events rejected by validation"))
	return &Service{sink: sink, mode: mode, logger: logger, accepted: accepted, rejected: rejected}
}

// Ingest normalises every event, assigns a UUID where ID is empty, drops invalid events and
// writes the rest in one sink call. Invalid events never fail the batch; a sink error does.
func (s *Service) Ingest(ctx context.Context, events []domain.Event) (*Result, error) {
	res := &Result{}
	valid := make([]domain.Event, 0, len(events))
	for i := range events {
		e := events[i]
		if err := Prepare(&e); err != nil {
			res.Rejected++
			if res.FirstError == "" {
				res.FirstError = fmt.Sprintf("event %d: %v", i, err)
			}
			continue
		}
		valid = append(valid, e)
	}
	res.Accepted = len(valid)

	attrs := metric.WithAttributes(attribute.String("mode", s.mode))
	if res.Rejected > 0 {
		s.rejected.Add(ctx, int64(res.Rejected), attrs)
		s.logger.Debug("ingest: rejected events", zap.Int("rejected", res.Rejected), zap.String("first_error", res.FirstError))
	}
	if len(valid) == 0 {
		return res, nil
	}
	stored, err := s.sink.Write(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("ingest: write %d events: %w", len(valid), err)
	}
	res.Stored = stored
	s.accepted.Add(ctx, int64(res.Accepted), attrs)
	return res, nil
}

// Close closes the underlying sink.
func (s *Service) Close() error {
	return s.sink.Close()
}

// Prepare normalises e, validates it and assigns a random UUID when ID is empty.
func Prepare(e *domain.Event) error {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

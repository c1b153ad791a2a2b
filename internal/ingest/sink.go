package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"geointel/internal/event/domain"
	"geointel/internal/event/repository"
)

// publishTimeout bounds a single Kafka publish so a slow broker does not block callers indefinitely.
const publishTimeout = 5 * time.Second

// RepositorySink writes events straight to the store.
type RepositorySink struct {
	repo repository.Repository
}

// NewRepositorySink returns a sink that saves each batch through repo.
func NewRepositorySink(repo repository.Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, events []domain.Event) (int, error) {
	return s.repo.SaveBatch(ctx, events)
}

func (s *RepositorySink) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON messages keyed by event ID.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates a Kafka sink writing to topic. brokers and topic must be non-empty.
// Call Close when shutting down.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("ingest: kafka sink needs brokers and a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer, topic: topic}, nil
}

func (s *KafkaSink) Write(ctx context.Context, events []domain.Event) (int, error) {
	if s == nil || s.writer == nil {
		return 0, errors.New("ingest: kafka sink is closed")
	}
	msgs := make([]kafka.Message, 0, len(events))
	for i := range events {
		payload, err := json.Marshal(&events[i])
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(events[i].ID), Value: payload})
	}
	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.writer.WriteMessages(writeCtx, msgs...); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	w := s.writer
	s.writer = nil
	return w.Close()
}

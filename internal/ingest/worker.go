package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"geointel/internal/event/domain"
)

const (
	// DefaultBatchSize and DefaultFlushInterval apply when WorkerConfig leaves them zero.
	DefaultBatchSize     = 500
	DefaultFlushInterval = 2 * time.Second

	saveAttempts = 3
	drainTimeout = 10 * time.Second
)

// MessageReader is the subset of *kafka.Reader used by Worker.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// BatchSaver persists a batch of events; repository.Repository satisfies it.
type BatchSaver interface {
	SaveBatch(ctx context.Context, events []domain.Event) (int, error)
}

// WorkerConfig tunes batching.
type WorkerConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Worker drains GPS events from Kafka and saves them in batches. Offsets are committed only
// after the batch containing them is saved, so a crash replays at most one batch; the
// store skips duplicate IDs.
type Worker struct {
	reader MessageReader
	saver  BatchSaver
	cfg    WorkerConfig
	logger *zap.Logger
}

// NewWorker returns a worker reading from reader and saving through saver.
func NewWorker(reader MessageReader, saver BatchSaver, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{reader: reader, saver: saver, cfg: cfg, logger: logger}
}

// NewKafkaReader returns a consumer-group reader for the events topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
}

// batch accumulates decoded events and the messages they came from.
type batch struct {
	events []domain.Event
	msgs   []kafka.Message
}

func (b *batch) reset() {
	b.events = nil
	b.msgs = nil
}

// Run consumes until ctx is cancelled or the reader is exhausted, flushing whenever the
// batch fills or the flush interval elapses. Pending events are flushed before returning.
// It returns nil on cancellation or end of input, and an error when a batch cannot be saved.
func (w *Worker) Run(ctx context.Context) error {
	fetchCtx, stopFetch := context.WithCancel(ctx)
	defer stopFetch()

	msgs := make(chan kafka.Message)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(msgs)
		w.fetch(fetchCtx, msgs)
	}()
	// wait for the fetcher so no goroutine outlives Run
	defer func() {
		stopFetch()
		<-done
	}()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	b := &batch{}
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return w.drain(b)
			}
			w.add(b, m)
			if len(b.msgs) >= w.cfg.BatchSize {
				if err := w.flush(ctx, b); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := w.flush(ctx, b); err != nil {
				return err
			}
		case <-ctx.Done():
			return w.drain(b)
		}
	}
}

func (w *Worker) fetch(ctx context.Context, out chan<- kafka.Message) {
	for {
		m, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			w.logger.Warn("worker: kafka read error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

// add decodes m into the batch. Undecodable or invalid messages are logged and skipped,
// but their offsets still ride along so they are committed with the batch.
func (w *Worker) add(b *batch, m kafka.Message) {
	b.msgs = append(b.msgs, m)
	e, err := DecodeEvent(m.Value)
	if err != nil {
		w.logger.Warn("worker: skipping message",
			zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	b.events = append(b.events, e)
}

// drain flushes what is left with a fresh context, since ctx is usually already done.
func (w *Worker) drain(b *batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return w.flush(ctx, b)
}

func (w *Worker) flush(ctx context.Context, b *batch) error {
	if len(b.msgs) == 0 {
		return nil
	}
	if len(b.events) > 0 {
		var (
			stored int
			err    error
		)
		for attempt := 1; attempt <= saveAttempts; attempt++ {
			stored, err = w.saver.SaveBatch(ctx, b.events)
			if err == nil {
				break
			}
			w.logger.Warn("worker: save failed", zap.Int("attempt", attempt), zap.Int("events", len(b.events)), zap.Error(err))
			if attempt < saveAttempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("worker: save batch: %w", ctx.Err())
				case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
				}
			}
		}
		if err != nil {
			return fmt.Errorf("worker: save batch of %d: %w", len(b.events), err)
		}
		w.logger.Info("worker: batch saved", zap.Int("events", len(b.events)), zap.Int("stored", stored))
	}
	if err := w.reader.CommitMessages(ctx, b.msgs...); err != nil {
		return fmt.Errorf("worker: commit offsets: %w", err)
	}
	b.reset()
	return nil
}

// DecodeEvent parses a JSON event message and prepares it for storage.
func DecodeEvent(payload []byte) (domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := Prepare(&e); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

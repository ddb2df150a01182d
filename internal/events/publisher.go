// Package events publishes entry lifecycle events to Kafka so downstream
// consumers (analytics, notifications) see every change.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/babysteps/internal/domain"
)

// Topic carries entry lifecycle events, keyed by baby ID so one baby's
// history stays ordered within a partition.
const Topic = "entry_events"

// Event kinds.
const (
	KindEntryCreated = "entry.created"
	KindEntryUpdated = "entry.updated"
	KindEntryDeleted = "entry.deleted"
)

// EntryEvent is the wire payload for one lifecycle event.
type EntryEvent struct {
	Kind       string    `json:"kind"`
	EntryID    string    `json:"entry_id"`
	BabyID     string    `json:"baby_id"`
	EntryType  string    `json:"entry_type,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher lazily manages writers per topic.
type Publisher struct {
	brokers []string
	logger  zerolog.Logger
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewPublisher creates a Publisher.
func NewPublisher(brokers []string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		brokers: brokers,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}
}

// PublishEntryEvent emits one lifecycle event. Publishing is best-effort:
// failures are logged and never block the caller's write path.
func (p *Publisher) PublishEntryEvent(ctx context.Context, kind string, entry domain.ActivityEntry) {
	event := EntryEvent{
		Kind:       kind,
		EntryID:    entry.ID,
		BabyID:     entry.BabyID,
		EntryType:  string(entry.Type),
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("kind", kind).Msg("failed to encode entry event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(entry.BabyID),
		Value: payload,
	}
	if err := p.writerForTopic(Topic).WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).
			Str("kind", kind).
			Str("entry_id", entry.ID).
			Msg("failed to publish entry event")
	}
}

func (p *Publisher) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

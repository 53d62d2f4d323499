// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "carebridge/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store produces each event synchronously, keyed by therapist so one
// therapist's events stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	value, err := audit.Encode(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	var key []byte
	if !event.TherapistID.IsNil() {
		key = []byte(event.TherapistID.String())
	}
	return s.Publish(ctx, key, event.Action, value)
}

// Publish produces a pre-encoded payload. The outbox relay uses it to forward rows.
func (s *Store) Publish(ctx context.Context, key []byte, eventType string, value []byte) error {
	record := &kgo.Record{
		Topic:   s.topic,
		Key:     key,
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: "event_type", Value: []byte(eventType)}},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

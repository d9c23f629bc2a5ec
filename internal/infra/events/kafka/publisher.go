// Package kafka publishes qualifying wallet transactions to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/segmentio/kafka-go"
)

// writer is the subset of *kafka.Writer used by the publisher.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type publisher struct {
	writer writer
}

var _ scanloop.EventPublisher = (*publisher)(nil)

// NewPublisher returns a publisher writing to topic on brokers. Messages are
// keyed by transaction hash, so duplicates of the same transaction land on
// the same partition.
func NewPublisher(brokers []string, topic string) *publisher {
	return &publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish implements scanloop.EventPublisher.
func (p *publisher) Publish(ctx context.Context, event scanloop.TransactionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Hash),
		Value: value,
		Headers: []kafka.Header{
			{Key: "chain", Value: []byte(event.Chain)},
			{Key: "direction", Value: []byte(event.Direction)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.Hash, err)
	}

	return nil
}

// Close flushes pending messages and releases the writer.
func (p *publisher) Close() error {
	return p.writer.Close()
}

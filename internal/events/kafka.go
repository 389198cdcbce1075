package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes changes to a single topic keyed by routine (or document id
// when the change is not routine scoped), keeping a routine's changes on one partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// Publish encodes the change as JSON and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, change Change) error {
	body, err := json.Marshal(change)
	if err != nil {
		return err
	}
	key := change.RoutineID
	if key == "" {
		key = change.ID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "collection", Value: []byte(change.Collection)},
			{Key: "action", Value: []byte(change.Action)},
		},
	})
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

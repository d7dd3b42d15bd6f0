package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes transaction events. Messages sharing a key land on
// the same partition, so one transaction's events stay ordered.
type KafkaProducer interface {
	Send(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Async:                  true,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				for _, m := range messages {
					slog.Error("async Kafka delivery failed", "topic", m.Topic, "key", string(m.Key), "error", err)
				}
			}
		},
	}
	return &Producer{writer: writer}
}

func (p *Producer) Send(ctx context.Context, topic, key string, value []byte) error {
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return err
	}
	slog.Info("Kafka message queued", "topic", topic, "key", key)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close Kafka writer", "error", err)
		return err
	}
	return nil
}

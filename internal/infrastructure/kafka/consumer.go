package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
	"github.com/segmentio/kafka-go"
)

// WebhookHandler processes one gateway notification.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, event models.WebhookEvent) bool
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer feeds gateway notifications relayed through a Kafka topic into
// the same handler the HTTP webhook uses.
type Consumer struct {
	reader  messageReader
	topic   string
	handler WebhookHandler
}

func NewConsumer(brokers []string, topic, groupID string, handler WebhookHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		topic:   topic,
		handler: handler,
	}
}

// Consume blocks until ctx is cancelled. Messages that cannot be decoded or
// processed are logged and skipped; redelivery is the gateway's concern.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)

		var event models.WebhookEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal webhook event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}

		if !c.handler.HandleWebhook(ctx, event) {
			slog.Error("webhook event dropped", "topic", msg.Topic, "offset", msg.Offset, "event", event.Event)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"bloodlink/internal/config"
	"bloodlink/internal/queue"
)

// Consumer implements queue.Consumer using a Kafka consumer group.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(cfg *config.KafkaConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.ConsumerGroup,
	})

	return &Consumer{
		reader: reader,
	}
}

// Start begins consuming messages and calls the handler for each one.
// Blocks until the context is canceled or the reader is closed.
func (c *Consumer) Start(ctx context.Context, handler queue.MessageHandler) error {
	for {
		kafkaMsg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return err
			}
			return fmt.Errorf("failed to read message from kafka: %w", err)
		}

		msg := &queue.Message{
			Key:   kafkaMsg.Key,
			Value: kafkaMsg.Value,
		}
		if len(kafkaMsg.Headers) > 0 {
			msg.Headers = make(map[string]string, len(kafkaMsg.Headers))
			for _, h := range kafkaMsg.Headers {
				msg.Headers[h.Key] = string(h.Value)
			}
		}

		// Feed handlers are best effort; failures do not stop the
		// consumer and the message is not redelivered.
		_ = handler(ctx, msg)
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

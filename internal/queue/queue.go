// Package queue defines interfaces for the lifecycle event feed.
// This abstraction allows swapping implementations (Kafka, in-memory)
// without changing business logic.
package queue

import (
	"context"
)

// Message represents a message on the feed.
type Message struct {
	// Key is the partition key for ordering guarantees. Lifecycle events
	// are keyed by alert id so one alert's events stay ordered.
	Key []byte

	// Value is the message payload.
	Value []byte

	// Headers contains optional metadata.
	Headers map[string]string
}

// Producer defines the interface for publishing messages to the feed.
// Implementations must be safe for concurrent use.
type Producer interface {
	// Publish sends a message to the feed.
	Publish(ctx context.Context, msg *Message) error

	// Close releases any resources held by the producer.
	Close() error
}

// MessageHandler is a callback function for processing consumed messages.
// Return an error to indicate processing failure.
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer defines the interface for consuming messages from the feed.
type Consumer interface {
	// Start begins consuming messages and calls the handler for each one.
	// This is a blocking call that runs until the context is canceled
	// or an unrecoverable error occurs.
	Start(ctx context.Context, handler MessageHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}

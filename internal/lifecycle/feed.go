package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"

	"bloodlink/internal/domain"
	"bloodlink/internal/metrics"
	"bloodlink/internal/queue"
)

// publish puts a lifecycle event on the feed, keyed by alert id so one
// alert's events stay ordered. Best effort: a feed outage is logged and
// counted, never surfaced to the caller.
func (s *Service) publish(ctx context.Context, t domain.AlertEventType, alert *domain.Alert, actorID string) {
	if s.producer == nil {
		return
	}

	event := domain.NewAlertEvent(t, alert, actorID)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal feed event", "type", t, "alertID", alert.ID, "error", err)
		return
	}

	msg := &queue.Message{
		Key:   []byte(alert.ID),
		Value: payload,
		Headers: map[string]string{
			"event_type": string(t),
		},
	}
	if err := s.producer.Publish(ctx, msg); err != nil {
		metrics.FeedPublishFailuresTotal.Inc()
		s.logger.Error("failed to publish feed event", "type", t, "alertID", alert.ID, "error", err)
		return
	}
	metrics.FeedEventsPublishedTotal.WithLabelValues(string(t)).Inc()
}

// FeedConsumer tails the lifecycle event feed and keeps the active-alert
// gauge current. It is deliberately dumb: decode, count, log.
type FeedConsumer struct {
	consumer queue.Consumer
	logger   *slog.Logger
}

// NewFeedConsumer creates a feed consumer.
func NewFeedConsumer(consumer queue.Consumer, logger *slog.Logger) *FeedConsumer {
	return &FeedConsumer{consumer: consumer, logger: logger}
}

// Start consumes feed events until the context is canceled.
func (c *FeedConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx, c.handle)
}

// Close stops the underlying consumer.
func (c *FeedConsumer) Close() error {
	return c.consumer.Close()
}

func (c *FeedConsumer) handle(ctx context.Context, msg *queue.Message) error {
	var event domain.AlertEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("failed to decode feed event", "error", err)
		return nil
	}

	switch event.Type {
	case domain.AlertEventCreated:
		metrics.ActiveAlerts.Inc()
	case domain.AlertEventFulfilled, domain.AlertEventCancelled, domain.AlertEventExpired:
		metrics.ActiveAlerts.Dec()
	}

	c.logger.Debug("feed event",
		"type", event.Type,
		"alertID", event.AlertID,
		"status", event.Status,
	)
	return nil
}

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/metrics"
	"bloodlink/internal/store"
)

// Dispatcher fans a notification out to a recipient set and records one
// NotificationRecord per delivery attempt. Attempts are independent: one
// recipient's failure never blocks or fails the others.
type Dispatcher struct {
	transport     Transport
	notifications store.NotificationRepository
	logger        *slog.Logger
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(transport Transport, notifications store.NotificationRepository, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport:     transport,
		notifications: notifications,
		logger:        logger,
	}
}

// Dispatch attempts delivery to every recipient in parallel and settles
// all attempts before summarizing. Recipients without a push token are
// skipped silently and count toward neither successful nor failed. The
// donorName is only used by templates that mention the responding donor.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []*domain.Actor, alert *domain.Alert, event domain.EventType, donorName string) domain.DispatchSummary {
	title, body, ok := render(event, alert, donorName)
	if !ok {
		d.logger.Warn("unknown notification event type", "type", event)
		return domain.DispatchSummary{}
	}

	start := time.Now()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		summary domain.DispatchSummary
	)

	for _, recipient := range recipients {
		if !recipient.Notifiable() {
			// Not attempted at all: no record, no count.
			continue
		}
		summary.Total++

		wg.Add(1)
		go func(recipient *domain.Actor) {
			defer wg.Done()

			sent := d.deliver(ctx, recipient, alert, event, title, body)

			mu.Lock()
			if sent {
				summary.Successful++
			} else {
				summary.Failed++
			}
			mu.Unlock()
		}(recipient)
	}

	wg.Wait()

	metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	if summary.Failed > 0 {
		d.logger.Warn("dispatch settled with failures",
			"alertID", alert.ID,
			"type", event,
			"successful", summary.Successful,
			"failed", summary.Failed,
		)
	}
	return summary
}

// deliver attempts one delivery and persists its record before returning,
// so the record is always written before the batch summary is available.
func (d *Dispatcher) deliver(ctx context.Context, recipient *domain.Actor, alert *domain.Alert, event domain.EventType, title, body string) bool {
	data := map[string]string{
		"alert_id":   alert.ID,
		"type":       string(event),
		"blood_type": string(alert.BloodType),
	}

	record := &domain.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		AlertID:     alert.ID,
		Type:        event,
		Title:       title,
		Body:        body,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}

	err := d.transport.Send(ctx, recipient.PushToken, title, body, data)
	if err != nil {
		record.Status = domain.NotificationFailed
		record.Error = err.Error()
		metrics.NotificationsTotal.WithLabelValues(string(event), "failed").Inc()
	} else {
		record.Status = domain.NotificationSent
		metrics.NotificationsTotal.WithLabelValues(string(event), "sent").Inc()
	}

	if createErr := d.notifications.Create(ctx, record); createErr != nil {
		d.logger.Error("failed to persist notification record",
			"recipientID", recipient.ID,
			"alertID", alert.ID,
			"error", createErr,
		)
	}

	return err == nil
}

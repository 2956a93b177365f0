package domain

import (
	"errors"
	"time"
)

// ErrNotificationNotFound is returned when a notification record cannot
// be found.
var ErrNotificationNotFound = errors.New("notification not found")

// EventType selects the notification template for a dispatch. The set is
// closed; dispatch refuses event types outside this enum.
type EventType string

const (
	// EventNewAlert notifies matched donors that an alert was raised.
	EventNewAlert EventType = "NEW_ALERT"
	// EventAlertCancelled notifies engaged donors that the alert was
	// cancelled.
	EventAlertCancelled EventType = "ALERT_CANCELLED"
	// EventDonorAccepted notifies the alert creator that a donor accepted.
	EventDonorAccepted EventType = "DONOR_ACCEPTED"
	// EventDonationConfirmed notifies accepted donors on fulfillment.
	EventDonationConfirmed EventType = "DONATION_CONFIRMED"
)

// IsValid returns true if the event type is a known valid value.
func (e EventType) IsValid() bool {
	switch e {
	case EventNewAlert, EventAlertCancelled, EventDonorAccepted, EventDonationConfirmed:
		return true
	default:
		return false
	}
}

// NotificationStatus is the delivery outcome of a single attempt.
// A record never transitions backward from a final outcome.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an append-only log entry for one delivery attempt.
// It serves as the audit trail, not as the dispatch queue. Only the read
// and superseded flags mutate after the outcome is final.
type Notification struct {
	ID          string             `json:"id"`
	RecipientID string             `json:"recipient_id"`
	AlertID     string             `json:"alert_id"`
	Type        EventType          `json:"type"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Data        map[string]string  `json:"data,omitempty"`
	Status      NotificationStatus `json:"status"`
	Error       string             `json:"error,omitempty"`
	Read        bool               `json:"read"`

	// Superseded marks unread records whose alert was cancelled before
	// the recipient saw them.
	Superseded bool `json:"superseded"`

	CreatedAt time.Time `json:"created_at"`
}

// DispatchSummary aggregates per-recipient outcomes of one dispatch batch.
// Recipients without a push token are skipped and count toward neither
// successful nor failed.
type DispatchSummary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

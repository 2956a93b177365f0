package domain

import "time"

// AlertEventType labels entries on the lifecycle event feed.
type AlertEventType string

const (
	AlertEventCreated    AlertEventType = "alert.created"
	AlertEventResponded  AlertEventType = "alert.responded"
	AlertEventPropagated AlertEventType = "alert.propagated"
	AlertEventFulfilled  AlertEventType = "alert.fulfilled"
	AlertEventCancelled  AlertEventType = "alert.cancelled"
	AlertEventExpired    AlertEventType = "alert.expired"
)

// AlertEvent is the payload published to the lifecycle event feed on every
// creation and state transition. Publishing is best effort: a feed outage
// never fails the triggering operation.
type AlertEvent struct {
	Type      AlertEventType `json:"type"`
	AlertID   string         `json:"alert_id"`
	BloodType BloodType      `json:"blood_type"`
	Urgency   Urgency        `json:"urgency"`
	Status    AlertStatus    `json:"status"`

	// ActorID is the donor or facility involved in the transition,
	// empty for system-driven transitions like expiry.
	ActorID string `json:"actor_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewAlertEvent builds a feed event snapshot from an alert.
func NewAlertEvent(t AlertEventType, alert *Alert, actorID string) *AlertEvent {
	return &AlertEvent{
		Type:       t,
		AlertID:    alert.ID,
		BloodType:  alert.BloodType,
		Urgency:    alert.Urgency,
		Status:     alert.Status,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

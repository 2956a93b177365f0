// Package notify implements notification rendering and dispatch.
// It decides who gets which message and records every delivery attempt;
// how bytes reach a device is the transport collaborator's problem.
package notify

import (
	"fmt"

	"bloodlink/internal/domain"
)

// template renders a title/body pair for one event type.
type template struct {
	title string
	body  func(alert *domain.Alert, donorName string) string
}

// templates is the closed per-event-type template table. Dispatch refuses
// event types outside it.
var templates = map[domain.EventType]template{
	domain.EventNewAlert: {
		title: "Urgent need for blood",
		body: func(alert *domain.Alert, _ string) string {
			return fmt.Sprintf("%s blood needed within %.0f km - %s",
				alert.BloodType, alert.RadiusKm, alert.Urgency.Label())
		},
	},
	domain.EventAlertCancelled: {
		title: "Alert cancelled",
		body: func(alert *domain.Alert, _ string) string {
			return fmt.Sprintf("The %s emergency has been resolved", alert.BloodType)
		},
	},
	domain.EventDonorAccepted: {
		title: "Donor available",
		body: func(alert *domain.Alert, donorName string) string {
			if donorName == "" {
				donorName = "A donor"
			}
			return fmt.Sprintf("%s accepted your %s alert", donorName, alert.BloodType)
		},
	},
	domain.EventDonationConfirmed: {
		title: "Donation confirmed",
		body: func(alert *domain.Alert, _ string) string {
			return fmt.Sprintf("%s blood was received, thank you", alert.BloodType)
		},
	},
}

// render produces the title/body pair for an event type, or ok=false for
// an event type outside the table.
func render(event domain.EventType, alert *domain.Alert, donorName string) (title, body string, ok bool) {
	t, ok := templates[event]
	if !ok {
		return "", "", false
	}
	return t.title, t.body(alert, donorName), true
}

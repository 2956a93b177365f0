package lifecycle

import (
	"context"

	"bloodlink/internal/domain"
	"bloodlink/internal/metrics"
)

// Cancel transitions an alert to cancelled. Only the requesting doctor
// may cancel. Donors who responded are told the emergency is resolved and
// their unread notifications for the alert are marked superseded.
func (s *Service) Cancel(ctx context.Context, alertID, actorID string) (*domain.Alert, error) {
	alert, err := s.closeAlert(ctx, alertID, actorID, (*domain.Alert).Cancel)
	if err != nil {
		return nil, err
	}

	if err := s.notifications.MarkSupersededByAlert(ctx, alertID); err != nil {
		s.logger.Error("failed to supersede notifications", "alertID", alertID, "error", err)
	}

	recipients := s.respondedDonors(ctx, alert, func(r domain.Response) bool {
		return r.Status != domain.ResponseDeclined
	})
	s.dispatcher.Dispatch(ctx, recipients, alert, domain.EventAlertCancelled, "")

	metrics.AlertsClosedTotal.WithLabelValues(string(domain.AlertStatusCancelled)).Inc()
	s.publish(ctx, domain.AlertEventCancelled, alert, actorID)
	return alert, nil
}

// Fulfill transitions an alert to fulfilled. Only the requesting doctor
// may fulfill. Donors who accepted are thanked.
func (s *Service) Fulfill(ctx context.Context, alertID, actorID string) (*domain.Alert, error) {
	alert, err := s.closeAlert(ctx, alertID, actorID, (*domain.Alert).Fulfill)
	if err != nil {
		return nil, err
	}

	recipients := s.respondedDonors(ctx, alert, func(r domain.Response) bool {
		return r.Status == domain.ResponseAccepted
	})
	s.dispatcher.Dispatch(ctx, recipients, alert, domain.EventDonationConfirmed, "")

	metrics.AlertsClosedTotal.WithLabelValues(string(domain.AlertStatusFulfilled)).Inc()
	s.publish(ctx, domain.AlertEventFulfilled, alert, actorID)
	return alert, nil
}

// closeAlert runs the shared close path for cancel and fulfill: lock,
// expiry race check, requester check, transition, persist. The lock is
// released before the caller dispatches any notifications.
func (s *Service) closeAlert(ctx context.Context, alertID, actorID string, transition func(*domain.Alert) error) (*domain.Alert, error) {
	unlock, err := s.locker.Lock(ctx, alertID)
	if err != nil {
		return nil, err
	}

	alert, justExpired, err := s.requireActive(ctx, alertID)
	if err != nil {
		unlock()
		if justExpired {
			s.publish(ctx, domain.AlertEventExpired, alert, "")
		}
		return nil, err
	}
	if alert.RequesterID != actorID {
		unlock()
		return nil, domain.ErrRoleNotAllowed
	}
	if err := transition(alert); err != nil {
		unlock()
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		unlock()
		s.logger.Error("failed to persist alert close", "alertID", alertID, "error", err)
		return nil, err
	}
	unlock()

	s.logger.Info("closed alert", "alertID", alertID, "status", alert.Status)
	return alert, nil
}

// respondedDonors loads actor snapshots for responses matching the
// predicate. Donors that cannot be loaded are skipped, not fatal.
func (s *Service) respondedDonors(ctx context.Context, alert *domain.Alert, keep func(domain.Response) bool) []*domain.Actor {
	var donors []*domain.Actor
	for _, r := range alert.Responses {
		if !keep(r) {
			continue
		}
		donor, err := s.actors.GetByID(ctx, r.DonorID)
		if err != nil {
			s.logger.Warn("skipping unknown responder", "alertID", alert.ID, "donorID", r.DonorID)
			continue
		}
		donors = append(donors, donor)
	}
	return donors
}

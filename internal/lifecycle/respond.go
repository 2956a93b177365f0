package lifecycle

import (
	"context"

	"bloodlink/internal/domain"
	"bloodlink/internal/metrics"
)

// RecordResponse records or overwrites a donor's decision against an
// active alert. The read-modify-write runs under the alert's lock so two
// simultaneous responses never lose an append. An accepted decision
// notifies the requesting doctor.
func (s *Service) RecordResponse(ctx context.Context, alertID, donorID string, status domain.ResponseStatus, message string) (*domain.Alert, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidResponseStatus
	}

	donor, err := s.actors.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.Role != domain.RoleDonor {
		return nil, domain.ErrRoleNotAllowed
	}

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
	if donor.BloodType != alert.BloodType {
		unlock()
		return nil, domain.ErrIncompatibleBloodType
	}

	previous := alert.ResponseFor(donorID)
	firstAccept := status == domain.ResponseAccepted &&
		(previous == nil || previous.Status != domain.ResponseAccepted)

	alert.UpsertResponse(donorID, status, message)
	if err := s.alerts.Update(ctx, alert); err != nil {
		unlock()
		s.logger.Error("failed to persist response", "alertID", alertID, "donorID", donorID, "error", err)
		return nil, err
	}
	unlock()

	metrics.ResponsesRecordedTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("recorded response",
		"alertID", alertID,
		"donorID", donorID,
		"status", status,
	)

	// Only the transition into accepted notifies the doctor, so a donor
	// re-confirming an accept does not spam the requester.
	if firstAccept {
		if requester, err := s.actors.GetByID(ctx, alert.RequesterID); err != nil {
			s.logger.Error("failed to load requester for accept notification",
				"alertID", alertID, "requesterID", alert.RequesterID, "error", err)
		} else {
			s.dispatcher.Dispatch(ctx, []*domain.Actor{requester}, alert, domain.EventDonorAccepted, donor.Name)
		}
	}

	s.publish(ctx, domain.AlertEventResponded, alert, donorID)
	return alert, nil
}

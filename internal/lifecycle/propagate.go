package lifecycle

import (
	"context"

	"bloodlink/internal/domain"
	"bloodlink/internal/geo"
	"bloodlink/internal/metrics"
)

// PropagateResult reports one propagation round: the updated alert, the
// facility ids reached this round, and the notification summary.
type PropagateResult struct {
	Alert    *domain.Alert          `json:"alert"`
	Reached  []string               `json:"reached"`
	Dispatch domain.DispatchSummary `json:"dispatch"`
}

// Propagate offers an active alert to the nearest eligible facilities
// within its radius, excluding the caller and any facility already in the
// propagation set. An empty eligible set is a successful no-op round, not
// an error. Only a facility already involved with the alert may propagate.
func (s *Service) Propagate(ctx context.Context, alertID, facilityID string) (*PropagateResult, error) {
	facility, err := s.involvedFacility(ctx, alertID, facilityID)
	if err != nil {
		return nil, err
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
	if alert.FacilityID != facility.ID && !alert.HasPropagatedTo(facility.ID) {
		unlock()
		return nil, domain.ErrRoleNotAllowed
	}

	candidates, err := s.actors.List(ctx, domain.ActorFilter{Role: domain.RoleFacility})
	if err != nil {
		unlock()
		s.logger.Error("failed to list facilities", "alertID", alertID, "error", err)
		return nil, err
	}

	inRange := geo.WithinRadius(alert.Origin, alert.RadiusKm, candidates)
	eligible := geo.EligibleFacilities(inRange, alert, facility.ID)
	targets := geo.NearestN(alert.Origin, eligible, s.opts.PropagationFanout)

	if len(targets) == 0 {
		unlock()
		s.logger.Info("no eligible facilities for propagation", "alertID", alertID)
		return &PropagateResult{Alert: alert}, nil
	}

	reached := make([]string, 0, len(targets))
	for _, t := range targets {
		alert.AddPropagation(t.ID)
		reached = append(reached, t.ID)
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		unlock()
		s.logger.Error("failed to persist propagation", "alertID", alertID, "error", err)
		return nil, err
	}
	unlock()

	summary := s.dispatcher.Dispatch(ctx, targets, alert, domain.EventNewAlert, "")

	metrics.PropagationsTotal.Inc()
	s.logger.Info("propagated alert",
		"alertID", alertID,
		"facilityID", facility.ID,
		"reached", len(reached),
	)
	s.publish(ctx, domain.AlertEventPropagated, alert, facility.ID)

	return &PropagateResult{Alert: alert, Reached: reached, Dispatch: summary}, nil
}

// NotifyDonors re-runs donor matching and dispatch for an active alert on
// behalf of a facility the alert was targeted at or propagated to. Used
// by a facility that wants to reach its own donor pool after receiving a
// propagated alert.
func (s *Service) NotifyDonors(ctx context.Context, alertID, facilityID string) (domain.DispatchSummary, error) {
	facility, err := s.involvedFacility(ctx, alertID, facilityID)
	if err != nil {
		return domain.DispatchSummary{}, err
	}

	alert, err := s.Get(ctx, alertID)
	if err != nil {
		return domain.DispatchSummary{}, err
	}
	if !alert.IsActive() {
		return domain.DispatchSummary{}, domain.ErrAlertNotActive
	}
	if alert.FacilityID != facility.ID && !alert.HasPropagatedTo(facility.ID) {
		return domain.DispatchSummary{}, domain.ErrRoleNotAllowed
	}

	recipients := s.matchDonors(ctx, alert)
	summary := s.dispatcher.Dispatch(ctx, recipients, alert, domain.EventNewAlert, "")
	return summary, nil
}

// involvedFacility loads the acting facility and verifies its role.
// Involvement with the specific alert is checked by the caller once the
// alert is loaded.
func (s *Service) involvedFacility(ctx context.Context, alertID, facilityID string) (*domain.Actor, error) {
	facility, err := s.actors.GetByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if facility.Role != domain.RoleFacility {
		return nil, domain.ErrRoleNotAllowed
	}
	return facility, nil
}

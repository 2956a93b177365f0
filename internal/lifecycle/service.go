// Package lifecycle implements the alert state machine and orchestrates
// matching, dispatch, response recording, propagation and expiry. It is
// the only writer of alert state; all mutations of one alert run under
// that alert's lock.
package lifecycle

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/geo"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/queue"
	"bloodlink/internal/store"
)

// Options tune the lifecycle service.
type Options struct {
	// TTL is how long a new alert stays active. Zero means the domain
	// default of 24 hours.
	TTL time.Duration

	// PropagationFanout is how many nearest facilities one propagation
	// round reaches. Zero means 5.
	PropagationFanout int
}

// Service owns alert creation, response recording, propagation,
// fulfillment, cancellation and expiration. It calls the geo matcher,
// compatibility filter and dispatcher in sequence and publishes a feed
// event for every transition.
type Service struct {
	alerts        store.AlertRepository
	actors        store.ActorRepository
	notifications store.NotificationRepository
	locker        store.AlertLocker
	dispatcher    *notify.Dispatcher
	producer      queue.Producer
	opts          Options
	logger        *slog.Logger
}

// NewService creates a new lifecycle service.
func NewService(
	alerts store.AlertRepository,
	actors store.ActorRepository,
	notifications store.NotificationRepository,
	locker store.AlertLocker,
	dispatcher *notify.Dispatcher,
	producer queue.Producer,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.TTL == 0 {
		opts.TTL = domain.DefaultTTL
	}
	if opts.PropagationFanout == 0 {
		opts.PropagationFanout = 5
	}
	return &Service{
		alerts:        alerts,
		actors:        actors,
		notifications: notifications,
		locker:        locker,
		dispatcher:    dispatcher,
		producer:      producer,
		opts:          opts,
		logger:        logger,
	}
}

// CreateResult is returned by Create: the persisted alert plus the
// notification summary of the initial dispatch. Dispatch failures never
// fail creation; they only show up in the summary.
type CreateResult struct {
	Alert    *domain.Alert          `json:"alert"`
	Dispatch domain.DispatchSummary `json:"dispatch"`
}

// Create validates the input, persists a new active alert and fans the
// initial NEW_ALERT notification out to compatible donors in range.
func (s *Service) Create(ctx context.Context, in domain.NewAlertInput) (*CreateResult, error) {
	requester, err := s.actors.GetByID(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester.Role != domain.RoleDoctor {
		return nil, domain.ErrRoleNotAllowed
	}

	alert, err := domain.NewAlert(in)
	if err != nil {
		return nil, err
	}
	alert.ID = uuid.New().String()
	alert.ExpiresAt = alert.CreatedAt.Add(s.opts.TTL)

	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to persist alert", "error", err)
		return nil, err
	}

	metrics.AlertsCreatedTotal.WithLabelValues(string(alert.BloodType), string(alert.Urgency)).Inc()
	s.logger.Info("created alert",
		"alertID", alert.ID,
		"bloodType", alert.BloodType,
		"urgency", alert.Urgency,
		"radiusKm", alert.RadiusKm,
	)

	recipients := s.matchDonors(ctx, alert)
	summary := s.dispatcher.Dispatch(ctx, recipients, alert, domain.EventNewAlert, "")

	s.publish(ctx, domain.AlertEventCreated, alert, in.RequesterID)

	return &CreateResult{Alert: alert, Dispatch: summary}, nil
}

// Get retrieves an alert, lazily expiring it first so no read ever
// reports an alert as active past its expiry.
func (s *Service) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	return s.lazyExpire(ctx, alert)
}

// List retrieves alerts matching the filter, lazily expiring any active
// alert past its expiry before reporting it.
func (s *Service) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	alerts, err := s.alerts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, alert := range alerts {
		expired, err := s.lazyExpire(ctx, alert)
		if err != nil {
			return nil, err
		}
		alerts[i] = expired
	}
	// A status filter for active alerts must not leak freshly expired ones.
	if filter.Status != "" {
		filtered := alerts[:0]
		for _, alert := range alerts {
			if alert.Status == filter.Status {
				filtered = append(filtered, alert)
			}
		}
		alerts = filtered
	}
	return alerts, nil
}

// Nearby returns active alerts whose origin lies within maxDistanceKm of
// the given location, most urgent first, newest first within an urgency.
func (s *Service) Nearby(ctx context.Context, loc domain.Location, maxDistanceKm float64) ([]*domain.Alert, error) {
	if !loc.Valid() {
		return nil, domain.ErrInvalidLocation
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = domain.MaxRadiusKm
	}

	alerts, err := s.List(ctx, domain.AlertFilter{Status: domain.AlertStatusActive})
	if err != nil {
		return nil, err
	}

	var nearby []*domain.Alert
	for _, alert := range alerts {
		if geo.InRadius(loc, alert.Origin, maxDistanceKm) {
			nearby = append(nearby, alert)
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].Urgency.Rank() != nearby[j].Urgency.Rank() {
			return nearby[i].Urgency.Rank() > nearby[j].Urgency.Rank()
		}
		return nearby[i].CreatedAt.After(nearby[j].CreatedAt)
	})
	return nearby, nil
}

// matchDonors computes the NEW_ALERT recipient set: donors within the
// alert radius of its origin with an exactly matching blood type, an
// active account and a notification channel.
func (s *Service) matchDonors(ctx context.Context, alert *domain.Alert) []*domain.Actor {
	start := time.Now()

	candidates, err := s.actors.List(ctx, domain.ActorFilter{Role: domain.RoleDonor})
	if err != nil {
		s.logger.Error("failed to list donor candidates", "alertID", alert.ID, "error", err)
		return nil
	}

	inRange := geo.WithinRadius(alert.Origin, alert.RadiusKm, candidates)
	recipients := geo.CompatibleDonors(inRange, alert.BloodType)

	metrics.MatchLatency.Observe(time.Since(start).Seconds())
	metrics.MatchedRecipients.Observe(float64(len(recipients)))
	s.logger.Debug("matched donors",
		"alertID", alert.ID,
		"candidates", len(candidates),
		"inRange", len(inRange),
		"compatible", len(recipients),
	)
	return recipients
}

// lazyExpire transitions an active alert past its expiry to expired
// before it is reported to any caller. Already-terminal alerts pass
// through untouched. The feed publish happens after the lock is released;
// no lock is ever held across a transport call.
func (s *Service) lazyExpire(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	if !alert.IsActive() || !alert.PastExpiry(time.Now().UTC()) {
		return alert, nil
	}

	current, transitioned, err := s.expireUnderLock(ctx, alert.ID)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.publish(ctx, domain.AlertEventExpired, current, "")
	}
	return current, nil
}

// expireUnderLock re-reads the alert under its lock and expires it if it
// is still active and overdue. Reports whether this call performed the
// transition.
func (s *Service) expireUnderLock(ctx context.Context, alertID string) (*domain.Alert, bool, error) {
	unlock, err := s.locker.Lock(ctx, alertID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	// Another request may have expired it while we waited.
	current, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, false, err
	}
	if !current.IsActive() {
		return current, false, nil
	}

	now := time.Now().UTC()
	if err := current.Expire(now); err != nil {
		return nil, false, err
	}
	if err := s.alerts.Update(ctx, current); err != nil {
		return nil, false, err
	}

	metrics.AlertsClosedTotal.WithLabelValues(string(domain.AlertStatusExpired)).Inc()
	s.logger.Info("expired alert", "alertID", current.ID)
	return current, true, nil
}

// requireActive loads an alert while its lock is already held by the
// caller and requires it to be active, expiring it first if overdue. The
// second return reports whether this call performed the expiry, so the
// caller can publish the feed event once the lock is released.
func (s *Service) requireActive(ctx context.Context, alertID string) (*domain.Alert, bool, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, false, err
	}
	if alert.IsActive() && alert.PastExpiry(time.Now().UTC()) {
		now := time.Now().UTC()
		if err := alert.Expire(now); err != nil {
			return nil, false, err
		}
		if err := s.alerts.Update(ctx, alert); err != nil {
			return nil, false, err
		}
		metrics.AlertsClosedTotal.WithLabelValues(string(domain.AlertStatusExpired)).Inc()
		s.logger.Info("expired alert", "alertID", alert.ID)
		return alert, true, domain.ErrAlertNotActive
	}
	if !alert.IsActive() {
		return alert, false, domain.ErrAlertNotActive
	}
	return alert, false, nil
}

// ExpireDue transitions every active alert whose expiry has passed.
// Expiry is a silent lapse: no notification fan-out. Returns the number
// of alerts transitioned. Re-evaluating an already-expired alert is a
// no-op, so the sweeper and lazy expiry can race safely.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.alerts.ListActiveExpiredBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, alert := range due {
		updated, err := s.lazyExpire(ctx, alert)
		if err != nil {
			s.logger.Error("failed to expire alert", "alertID", alert.ID, "error", err)
			continue
		}
		if updated.Status == domain.AlertStatusExpired {
			expired++
		}
	}
	return expired, nil
}

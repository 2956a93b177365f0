// Package memory provides in-memory implementations of the store
// interfaces. These are used for tests and for running the engine without
// external dependencies.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloodlink/internal/domain"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]*domain.Alert
}

// NewAlertRepository creates a new in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[string]*domain.Alert),
	}
}

// Create stores a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// Update modifies an existing alert.
func (r *AlertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; !exists {
		return domain.ErrAlertNotFound
	}
	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// GetByID retrieves an alert with its responses.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, domain.ErrAlertNotFound
	}
	return copyAlert(alert), nil
}

// List retrieves alerts matching the filter criteria, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Alert
	for _, alert := range r.alerts {
		if filter.RequesterID != "" && alert.RequesterID != filter.RequesterID {
			continue
		}
		if filter.FacilityID != "" && alert.FacilityID != filter.FacilityID && !alert.HasPropagatedTo(filter.FacilityID) {
			continue
		}
		if filter.BloodType != "" && alert.BloodType != filter.BloodType {
			continue
		}
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		results = append(results, copyAlert(alert))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	start := filter.Offset
	if start > len(results) {
		start = len(results)
	}
	end := len(results)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return results[start:end], nil
}

// ListActiveExpiredBefore retrieves active alerts past their expiry.
func (r *AlertRepository) ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Alert
	for _, alert := range r.alerts {
		if alert.IsActive() && alert.ExpiresAt.Before(cutoff) {
			results = append(results, copyAlert(alert))
		}
	}
	return results, nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *AlertRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = make(map[string]*domain.Alert)
}

// copyAlert deep-copies an alert so callers cannot mutate stored state.
func copyAlert(a *domain.Alert) *domain.Alert {
	c := *a
	if a.Responses != nil {
		c.Responses = make([]domain.Response, len(a.Responses))
		copy(c.Responses, a.Responses)
	}
	if a.PropagatedTo != nil {
		c.PropagatedTo = make([]string, len(a.PropagatedTo))
		copy(c.PropagatedTo, a.PropagatedTo)
	}
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

package memory

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/domain"
)

// NotificationRepository is an in-memory implementation of
// store.NotificationRepository. Appends from concurrent dispatch
// goroutines are serialized by the mutex.
type NotificationRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Notification

	// byRecipient and byAlert index record ids for the two read paths.
	byRecipient map[string][]string
	byAlert     map[string][]string
}

// NewNotificationRepository creates a new in-memory notification log.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		records:     make(map[string]*domain.Notification),
		byRecipient: make(map[string][]string),
		byAlert:     make(map[string][]string),
	}
}

// Create appends a notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[n.ID] = copyNotification(n)
	r.byRecipient[n.RecipientID] = append(r.byRecipient[n.RecipientID], n.ID)
	if n.AlertID != "" {
		r.byAlert[n.AlertID] = append(r.byAlert[n.AlertID], n.ID)
	}
	return nil
}

// GetByID retrieves a single record.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.records[id]
	if !exists {
		return nil, domain.ErrNotificationNotFound
	}
	return copyNotification(n), nil
}

// ListByRecipient retrieves the most recent records for a recipient,
// newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRecipient[recipientID]
	results := make([]*domain.Notification, 0, len(ids))
	for _, id := range ids {
		results = append(results, copyNotification(r.records[id]))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// ListByAlert retrieves all records tied to an alert.
func (r *NotificationRepository) ListByAlert(ctx context.Context, alertID string) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byAlert[alertID]
	results := make([]*domain.Notification, 0, len(ids))
	for _, id := range ids {
		results = append(results, copyNotification(r.records[id]))
	}
	return results, nil
}

// MarkRead flips the read flag on a record.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, exists := r.records[id]
	if !exists {
		return domain.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

// MarkSupersededByAlert marks all unread records for an alert superseded.
func (r *NotificationRepository) MarkSupersededByAlert(ctx context.Context, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.byAlert[alertID] {
		if n := r.records[id]; n != nil && !n.Read {
			n.Superseded = true
		}
	}
	return nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *NotificationRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*domain.Notification)
	r.byRecipient = make(map[string][]string)
	r.byAlert = make(map[string][]string)
}

func copyNotification(n *domain.Notification) *domain.Notification {
	c := *n
	if n.Data != nil {
		c.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	return &c
}

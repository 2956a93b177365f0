// Package store defines interfaces for data persistence and coordination.
// These abstractions allow swapping implementations (PostgreSQL, Redis,
// in-memory) without changing business logic.
package store

import (
	"context"
	"time"

	"bloodlink/internal/domain"
)

// AlertRepository defines the interface for persistent alert storage,
// including the embedded response collection and propagation record.
type AlertRepository interface {
	// Create stores a new alert.
	Create(ctx context.Context, alert *domain.Alert) error

	// Update modifies an existing alert, responses and stats included.
	Update(ctx context.Context, alert *domain.Alert) error

	// GetByID retrieves an alert with its responses.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)

	// List retrieves alerts matching the filter criteria, newest first.
	List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error)

	// ListActiveExpiredBefore retrieves active alerts whose expiry lies
	// before the given instant. Used by the expiry sweeper.
	ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*domain.Alert, error)
}

// ActorRepository defines read access to actor snapshots plus the one
// mutation the engine owns: the push-token update. Account management
// itself belongs to an external collaborator.
type ActorRepository interface {
	// GetByID retrieves an actor snapshot.
	GetByID(ctx context.Context, id string) (*domain.Actor, error)

	// List retrieves actors matching the filter criteria.
	List(ctx context.Context, filter domain.ActorFilter) ([]*domain.Actor, error)

	// UpdatePushToken stores a new notification channel token.
	UpdatePushToken(ctx context.Context, id, token string) error
}

// NotificationRepository defines the interface for the append-only
// notification log.
type NotificationRepository interface {
	// Create appends a notification record. Must be safe for concurrent
	// use: dispatch writes records from parallel goroutines.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a single record.
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// ListByRecipient retrieves the most recent records for a recipient,
	// newest first, bounded by limit.
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error)

	// ListByAlert retrieves all records tied to an alert.
	ListByAlert(ctx context.Context, alertID string) ([]*domain.Notification, error)

	// MarkRead flips the read flag on a record.
	MarkRead(ctx context.Context, id string) error

	// MarkSupersededByAlert marks all unread records for an alert as
	// superseded. Used when an alert is cancelled.
	MarkSupersededByAlert(ctx context.Context, alertID string) error
}

// AlertLocker serializes mutations to a single alert's response collection.
// Two simultaneous responses to the same alert from different donors must
// not overwrite each other's append, so every read-modify-write of an
// alert runs under its lock.
type AlertLocker interface {
	// Lock acquires the lock for an alert id, blocking until it is held
	// or the context is done. The returned function releases the lock.
	Lock(ctx context.Context, alertID string) (func(), error)
}

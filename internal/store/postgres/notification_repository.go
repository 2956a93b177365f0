package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bloodlink/internal/domain"
)

// NotificationRepository implements store.NotificationRepository using
// PostgreSQL. Records are append-only; only the read and superseded flags
// mutate after insert.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new PostgreSQL-backed notification
// repository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	id, recipient_id, alert_id, type, title, body, data, status,
	error, read, superseded, created_at
`

// Create appends a notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_id, alert_id, type, title, body, data, status,
			error, read, superseded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	data := n.Data
	if data == nil {
		data = map[string]string{}
	}

	_, err := r.db.pool.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		nullableString(n.AlertID),
		n.Type,
		n.Title,
		n.Body,
		data,
		n.Status,
		nullableString(n.Error),
		n.Read,
		n.Superseded,
		n.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID retrieves a single record.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE id = $1", notificationColumns)

	row := r.db.pool.QueryRow(ctx, query, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByRecipient retrieves the most recent records for a recipient.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, notificationColumns)

	rows, err := r.db.pool.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListByAlert retrieves all records tied to an alert.
func (r *NotificationRepository) ListByAlert(ctx context.Context, alertID string) ([]*domain.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE alert_id = $1", notificationColumns)

	rows, err := r.db.pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications by alert: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// MarkRead flips the read flag on a record.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkSupersededByAlert marks all unread records for an alert superseded.
func (r *NotificationRepository) MarkSupersededByAlert(ctx context.Context, alertID string) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE notifications SET superseded = TRUE WHERE alert_id = $1 AND read = FALSE`,
		alertID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications superseded: %w", err)
	}
	return nil
}

// scanNotification scans a single row into a Notification.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var alertID, errMsg *string

	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&alertID,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.Data,
		&n.Status,
		&errMsg,
		&n.Read,
		&n.Superseded,
		&n.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	if alertID != nil {
		n.AlertID = *alertID
	}
	if errMsg != nil {
		n.Error = *errMsg
	}

	return &n, nil
}

// scanNotifications scans multiple rows into a slice of Notifications.
func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var records []*domain.Notification

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		records = append(records, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return records, nil
}

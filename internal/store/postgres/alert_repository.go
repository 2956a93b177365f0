package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bloodlink/internal/domain"
)

// AlertRepository implements store.AlertRepository using PostgreSQL.
// Responses live in a child table and are joined in at read time; the
// caller-visible Alert always carries its full response collection.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `
	id, requester_id, facility_id, blood_type, urgency, quantity,
	description, origin_lat, origin_lon, radius_km, status,
	propagated_to, created_at, updated_at, expires_at, closed_at
`

// Create stores a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (
			id, requester_id, facility_id, blood_type, urgency, quantity,
			description, origin_lat, origin_lon, radius_km, status,
			propagated_to, created_at, updated_at, expires_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.pool.Exec(ctx, query,
		alert.ID,
		alert.RequesterID,
		nullableString(alert.FacilityID),
		alert.BloodType,
		alert.Urgency,
		alert.Quantity,
		nullableString(alert.Description),
		alert.Origin.Latitude,
		alert.Origin.Longitude,
		alert.RadiusKm,
		alert.Status,
		propagatedArray(alert.PropagatedTo),
		alert.CreatedAt,
		alert.UpdatedAt,
		alert.ExpiresAt,
		alert.ClosedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return r.saveResponses(ctx, alert)
}

// Update modifies an existing alert, responses included. Callers hold the
// per-alert lock across the read-modify-write, so the write itself does
// not need optimistic versioning.
func (r *AlertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	query := `
		UPDATE alerts SET
			urgency = $2,
			quantity = $3,
			description = $4,
			status = $5,
			propagated_to = $6,
			updated_at = $7,
			expires_at = $8,
			closed_at = $9
		WHERE id = $1
	`

	result, err := r.db.pool.Exec(ctx, query,
		alert.ID,
		alert.Urgency,
		alert.Quantity,
		nullableString(alert.Description),
		alert.Status,
		propagatedArray(alert.PropagatedTo),
		alert.UpdatedAt,
		alert.ExpiresAt,
		alert.ClosedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}

	return r.saveResponses(ctx, alert)
}

// saveResponses upserts the response collection one entry per donor.
func (r *AlertRepository) saveResponses(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alert_responses (alert_id, donor_id, status, message, responded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (alert_id, donor_id) DO UPDATE SET
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			responded_at = EXCLUDED.responded_at
	`

	for _, resp := range alert.Responses {
		_, err := r.db.pool.Exec(ctx, query,
			alert.ID,
			resp.DonorID,
			resp.Status,
			nullableString(resp.Message),
			resp.RespondedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an alert with its responses.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = $1", alertColumns)

	row := r.db.pool.QueryRow(ctx, query, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	if err := r.loadResponses(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// List retrieves alerts matching the filter criteria, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE 1=1", alertColumns)
	args := []interface{}{}
	argNum := 1

	if filter.RequesterID != "" {
		query += fmt.Sprintf(" AND requester_id = $%d", argNum)
		args = append(args, filter.RequesterID)
		argNum++
	}

	if filter.FacilityID != "" {
		query += fmt.Sprintf(" AND (facility_id = $%d OR $%d = ANY(propagated_to))", argNum, argNum)
		args = append(args, filter.FacilityID)
		argNum++
	}

	if filter.BloodType != "" {
		query += fmt.Sprintf(" AND blood_type = $%d", argNum)
		args = append(args, filter.BloodType)
		argNum++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}

	for _, alert := range alerts {
		if err := r.loadResponses(ctx, alert); err != nil {
			return nil, err
		}
	}
	return alerts, nil
}

// ListActiveExpiredBefore retrieves active alerts past their expiry.
func (r *AlertRepository) ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*domain.Alert, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM alerts WHERE status = 'active' AND expires_at < $1",
		alertColumns,
	)

	rows, err := r.db.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// loadResponses joins the response collection in arrival order and
// derives the stats from it.
func (r *AlertRepository) loadResponses(ctx context.Context, alert *domain.Alert) error {
	query := `
		SELECT donor_id, status, message, responded_at
		FROM alert_responses
		WHERE alert_id = $1
		ORDER BY position
	`

	rows, err := r.db.pool.Query(ctx, query, alert.ID)
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}
	defer rows.Close()

	var responses []domain.Response
	stats := domain.AlertStats{}
	for rows.Next() {
		var resp domain.Response
		var message *string
		if err := rows.Scan(&resp.DonorID, &resp.Status, &message, &resp.RespondedAt); err != nil {
			return fmt.Errorf("failed to scan response: %w", err)
		}
		if message != nil {
			resp.Message = *message
		}
		responses = append(responses, resp)
		switch resp.Status {
		case domain.ResponseAccepted:
			stats.TotalAccepted++
		case domain.ResponseDeclined:
			stats.TotalDeclined++
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating responses: %w", err)
	}

	stats.TotalNotified = len(responses)
	alert.Responses = responses
	alert.Stats = stats
	return nil
}

// scanAlert scans a single row into an Alert.
func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var alert domain.Alert
	var facilityID, description *string

	err := row.Scan(
		&alert.ID,
		&alert.RequesterID,
		&facilityID,
		&alert.BloodType,
		&alert.Urgency,
		&alert.Quantity,
		&description,
		&alert.Origin.Latitude,
		&alert.Origin.Longitude,
		&alert.RadiusKm,
		&alert.Status,
		&alert.PropagatedTo,
		&alert.CreatedAt,
		&alert.UpdatedAt,
		&alert.ExpiresAt,
		&alert.ClosedAt,
	)

	if err != nil {
		return nil, err
	}

	if facilityID != nil {
		alert.FacilityID = *facilityID
	}
	if description != nil {
		alert.Description = *description
	}

	return &alert, nil
}

// scanAlerts scans multiple rows into a slice of Alerts.
func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var alerts []*domain.Alert

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// nullableString returns nil if the string is empty, otherwise a pointer.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// propagatedArray never stores NULL for an empty propagation set.
func propagatedArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

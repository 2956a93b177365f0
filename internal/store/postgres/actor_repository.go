package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bloodlink/internal/domain"
)

// ActorRepository implements store.ActorRepository using PostgreSQL.
// Actor rows are written by the external account system; this repository
// reads snapshots and updates push tokens only.
type ActorRepository struct {
	db *DB
}

// NewActorRepository creates a new PostgreSQL-backed actor repository.
func NewActorRepository(db *DB) *ActorRepository {
	return &ActorRepository{db: db}
}

const actorColumns = `
	id, role, name, blood_type, lat, lon, active, push_token, created_at, updated_at
`

// GetByID retrieves an actor snapshot.
func (r *ActorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	query := fmt.Sprintf("SELECT %s FROM actors WHERE id = $1", actorColumns)

	row := r.db.pool.QueryRow(ctx, query, id)
	actor, err := scanActor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActorNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	return actor, nil
}

// List retrieves actors matching the filter criteria.
func (r *ActorRepository) List(ctx context.Context, filter domain.ActorFilter) ([]*domain.Actor, error) {
	query := fmt.Sprintf("SELECT %s FROM actors WHERE 1=1", actorColumns)
	args := []interface{}{}
	argNum := 1

	if filter.Role != "" {
		query += fmt.Sprintf(" AND role = $%d", argNum)
		args = append(args, filter.Role)
		argNum++
	}

	if filter.BloodType != "" {
		query += fmt.Sprintf(" AND blood_type = $%d", argNum)
		args = append(args, filter.BloodType)
		argNum++
	}

	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", argNum)
		args = append(args, *filter.Active)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []*domain.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actors: %w", err)
	}

	return actors, nil
}

// UpdatePushToken stores a new notification channel token.
func (r *ActorRepository) UpdatePushToken(ctx context.Context, id, token string) error {
	query := `UPDATE actors SET push_token = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.pool.Exec(ctx, query, id, nullableString(token), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrActorNotFound
	}
	return nil
}

// scanActor scans a single row into an Actor.
func scanActor(row pgx.Row) (*domain.Actor, error) {
	var actor domain.Actor
	var name, bloodType, pushToken *string
	var lat, lon *float64

	err := row.Scan(
		&actor.ID,
		&actor.Role,
		&name,
		&bloodType,
		&lat,
		&lon,
		&actor.Active,
		&pushToken,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if name != nil {
		actor.Name = *name
	}
	if bloodType != nil {
		actor.BloodType = domain.BloodType(*bloodType)
	}
	if pushToken != nil {
		actor.PushToken = *pushToken
	}
	if lat != nil && lon != nil {
		actor.Location = &domain.Location{Latitude: *lat, Longitude: *lon}
	}

	return &actor, nil
}

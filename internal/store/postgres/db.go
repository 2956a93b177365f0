// Package postgres provides PostgreSQL-based implementations of the store
// interfaces.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bloodlink/internal/config"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
		cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations creates the required database tables.
func (db *DB) RunMigrations(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(36) PRIMARY KEY,
			requester_id VARCHAR(36) NOT NULL,
			facility_id VARCHAR(36),
			blood_type VARCHAR(3) NOT NULL,
			urgency VARCHAR(10) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			description TEXT,
			origin_lat DOUBLE PRECISION NOT NULL,
			origin_lon DOUBLE PRECISION NOT NULL,
			radius_km DOUBLE PRECISION NOT NULL,
			status VARCHAR(20) NOT NULL,
			propagated_to TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			closed_at TIMESTAMP WITH TIME ZONE
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_blood_type ON alerts(blood_type);
		CREATE INDEX IF NOT EXISTS idx_alerts_requester ON alerts(requester_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_expires_at ON alerts(expires_at) WHERE status = 'active';

		CREATE TABLE IF NOT EXISTS alert_responses (
			position BIGSERIAL,
			alert_id VARCHAR(36) NOT NULL REFERENCES alerts(id),
			donor_id VARCHAR(36) NOT NULL,
			status VARCHAR(10) NOT NULL,
			message TEXT,
			responded_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (alert_id, donor_id)
		);

		CREATE TABLE IF NOT EXISTS actors (
			id VARCHAR(36) PRIMARY KEY,
			role VARCHAR(10) NOT NULL,
			name VARCHAR(100),
			blood_type VARCHAR(3),
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			push_token TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_actors_role ON actors(role);
		CREATE INDEX IF NOT EXISTS idx_actors_blood_type ON actors(blood_type);
		CREATE INDEX IF NOT EXISTS idx_actors_location ON actors(lat, lon) WHERE lat IS NOT NULL;

		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(36) PRIMARY KEY,
			recipient_id VARCHAR(36) NOT NULL,
			alert_id VARCHAR(36),
			type VARCHAR(30) NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			data JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(10) NOT NULL,
			error TEXT,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			superseded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_notifications_alert ON notifications(alert_id);
	`

	_, err := db.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

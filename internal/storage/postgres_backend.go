package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quotaflow-go/internal/migrations"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

var errNotInitialized = errors.New("storage backend not initialized")

// PostgresBackend stores preferences in the preferences table created by
// internal/migrations.
type PostgresBackend struct {
	dsn string
	db  *sql.DB
}

// NewPostgresBackend creates a PostgreSQL storage backend; the connection is
// opened by Initialize.
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return &PostgresBackend{dsn: dsn}, nil
}

func (p *PostgresBackend) Name() string { return "postgres" }

// Initialize opens the pool and applies pending migrations.
func (p *PostgresBackend) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migrations.PostgresUp(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("Connected to PostgreSQL preference store")
	p.db = db
	return nil
}

// Close closes PostgreSQL connection
func (p *PostgresBackend) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Health checks connectivity
func (p *PostgresBackend) Health(ctx context.Context) error {
	if p.db == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *PostgresBackend) GetPreference(ctx context.Context, key string) (string, error) {
	if p.db == nil {
		return "", errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	var value string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE pref_key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &ErrNotFound{Key: key}
		}
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresBackend) SetPreference(ctx context.Context, key, value string) error {
	if p.db == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	query := `
		INSERT INTO preferences (pref_key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (pref_key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (p *PostgresBackend) DeletePreference(ctx context.Context, key string) error {
	if p.db == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	res, err := p.db.ExecContext(ctx, "DELETE FROM preferences WHERE pref_key = $1", key)
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &ErrNotFound{Key: key}
	}
	return nil
}

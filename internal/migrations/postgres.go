package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

// Postgres applies the embedded preference-store migrations over a single
// connection borrowed from a pool. Closing it returns the connection and
// leaves the pool open.
type Postgres struct {
	m *migrate.Migrate
}

// OpenPostgres borrows a connection from db and prepares the migrator.
func OpenPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres driver: %w", err)
	}
	src, err := iofs.New(sqlMigrations, "sql")
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Postgres{m: m}, nil
}

// Up applies every pending migration. Nothing to apply is not an error.
func (p *Postgres) Up() error {
	if err := p.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations up: %w", err)
	}
	return nil
}

// Down rolls back steps migrations; steps <= 0 means one.
func (p *Postgres) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	if err := p.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations down: %w", err)
	}
	return nil
}

// Version reports the applied version; ok is false on a fresh database.
func (p *Postgres) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = p.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, dirty, false, fmt.Errorf("migrations version: %w", err)
	}
	return version, dirty, true, nil
}

// Close releases the borrowed connection.
func (p *Postgres) Close() error {
	srcErr, dbErr := p.m.Close()
	return errors.Join(srcErr, dbErr)
}

// PostgresUp is the one-shot form used when a backend initializes.
func PostgresUp(ctx context.Context, db *sql.DB) error {
	p, err := OpenPostgres(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("failed to release migration connection")
		}
	}()
	return p.Up()
}

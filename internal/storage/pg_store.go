package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	getEntry = `SELECT value FROM kv_entries WHERE kind = $1 AND owner = $2`

	putEntry = `INSERT INTO kv_entries (kind, owner, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (kind, owner) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	deleteEntry = `DELETE FROM kv_entries WHERE kind = $1 AND owner = $2`
)

// PgStore implements Store on a single PostgreSQL table keyed by (kind, owner).
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
// The pool is owned by the caller.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, getEntry, string(key.Kind), key.Owner).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (p *PgStore) Put(ctx context.Context, key Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, putEntry, string(key.Kind), key.Owner, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *PgStore) Delete(ctx context.Context, key Key) error {
	if _, err := p.db.Exec(ctx, deleteEntry, string(key.Kind), key.Owner); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the pool is closed by its owner.
func (p *PgStore) Close() error {
	return nil
}

// Migrate applies the embedded schema migrations to the database at databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

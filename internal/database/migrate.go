package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT now()
	)
`

// Migrate applies every embedded migration that has not been applied yet.
// Each migration runs in its own transaction together with its bookkeeping
// row, so a failed migration leaves no partial schema behind.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := applyMigration(ctx, pool, name)
		if err != nil {
			return err
		}
		if applied {
			logger.Info().Str("migration", name).Msg("applied migration")
		} else {
			logger.Debug().Str("migration", name).Msg("migration already applied")
		}
	}

	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	body, err := migrationFiles.ReadFile(name)
	if err != nil {
		return false, fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialise concurrent migrators on the bookkeeping table.
	if _, err := tx.Exec(ctx, "LOCK TABLE schema_migrations IN EXCLUSIVE MODE"); err != nil {
		return false, fmt.Errorf("failed to lock migrations table: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, string(body), pgx.QueryExecModeSimpleProtocol); err != nil {
		return false, fmt.Errorf("failed to apply migration %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", name, err)
	}

	return true, nil
}

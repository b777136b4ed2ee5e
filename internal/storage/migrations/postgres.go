package migrations

import (
	"context"
	"fmt"

	"bonding-curve-indexer/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded PostgreSQL file in order.
// Files are idempotent and run whole; pgx sends multi-statement scripts
// through the simple protocol when no arguments are given.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}

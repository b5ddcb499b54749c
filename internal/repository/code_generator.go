package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/productcode"

	"github.com/jackc/pgx/v5"
)

// lastCodeQuery finds the highest code issued under a prefix in either the
// live or the archive table. Ordering by length first keeps the comparison
// numeric once sequences widen past three digits.
const lastCodeQuery = `
	SELECT code FROM (
		SELECT code FROM product WHERE code LIKE $1
		UNION ALL
		SELECT code FROM product_archive WHERE code LIKE $1
	) codes
	ORDER BY length(code) DESC, code DESC
	LIMIT 1
`

// codeGenerator allocates product codes inside a caller-owned transaction.
// lock must be called before next; the lock is held until the transaction
// ends, which serialises every writer of the product table.
type codeGenerator struct {
	now         func() time.Time
	lockTimeout time.Duration
}

// lock takes an EXCLUSIVE lock on the product table, waiting at most
// lockTimeout. Plain reads are not blocked.
func (g *codeGenerator) lock(ctx context.Context, tx pgx.Tx) error {
	if g.lockTimeout > 0 {
		_, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)",
			fmt.Sprintf("%dms", g.lockTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `LOCK TABLE product IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock product table: %w", err)
	}

	return nil
}

// next returns the next unused code for today's prefix.
func (g *codeGenerator) next(ctx context.Context, tx pgx.Tx) (string, error) {
	prefix := productcode.Prefix(g.now())

	var last string
	err := tx.QueryRow(ctx, lastCodeQuery, prefix+"%").Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to read last product code: %w", err)
	}

	code, err := productcode.Next(prefix, last)
	if err != nil {
		return "", fmt.Errorf("failed to compute next product code: %w", err)
	}

	return code, nil
}

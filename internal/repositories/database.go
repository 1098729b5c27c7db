package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the query surface repositories need. *pgxpool.Pool, pgx.Tx and
// pgxmock all satisfy it, so the same repository runs against the pool, inside
// the sync transaction, and under test.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// valuesClause builds the ($1,$2),($3,$4),... placeholder list for a
// multi-row INSERT. extra, when non-empty, is appended inside every tuple
// (e.g. "NOW(), NOW()" for timestamp columns).
func valuesClause(rows, cols int, extra string) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		if extra != "" {
			b.WriteString(", ")
			b.WriteString(extra)
		}
		b.WriteString(")")
	}
	return b.String()
}

// timestampedValues is valuesClause with created_at/updated_at both stamped
// server-side.
func timestampedValues(rows, cols int) string {
	return valuesClause(rows, cols, "NOW(), NOW()")
}

// Package sqlstore implements store.Store over database/sql. Queries are
// written once with ? placeholders and rebound per dialect, so the sqlite and
// postgres drivers only differ in how they open, migrate and classify errors.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures what differs between database engines.
type Dialect struct {
	Name string

	// NumberedPlaceholders rewrites ? into $1, $2, ...
	NumberedPlaceholders bool

	// IsUniqueViolation classifies driver errors for ErrAlreadyExists.
	IsUniqueViolation func(error) bool

	// Migrate applies the embedded schema.
	Migrate func(db *sql.DB) error
}

// Queries runs the hand-written statements against a DBTX.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func newQueries(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

func (q *Queries) rebind(query string) string {
	if !q.dialect.NumberedPlaceholders {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) isUniqueViolation(err error) bool {
	return err != nil && q.dialect.IsUniqueViolation != nil && q.dialect.IsUniqueViolation(err)
}

// Times are stored as unix milliseconds so comparisons behave the same on
// every engine.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func emptyAsNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Package postgres is the shared store driver for deployments running more
// than one kbauth process, backed by github.com/lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlstore"
	"github.com/lib/pq"
)

// Dialect describes Postgres to the shared query layer.
var Dialect = sqlstore.Dialect{
	Name:                 "postgres",
	NumberedPlaceholders: true,
	IsUniqueViolation:    isUniqueViolation,
	Migrate:              applyMigrations,
}

// NewStore connects to the database at url. Migrations are not applied;
// call ApplyMigrations.
func NewStore(ctx context.Context, url string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return sqlstore.New(db, Dialect), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

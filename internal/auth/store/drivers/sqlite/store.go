// Package sqlite is the default store driver, backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlstore"
	_ "modernc.org/sqlite"
)

// BusyTimeoutMillis is how long a writer waits for the database lock.
const BusyTimeoutMillis = 5000

// Dialect describes SQLite to the shared query layer.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueViolation,
	Migrate:           applyMigrations,
}

// DSN builds a modernc connection string for path. Every transaction is
// started with BEGIN IMMEDIATE so writers serialize on the database lock
// instead of failing on upgrade, and waiting writers block for the busy
// timeout. Foreign keys are enabled per connection.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", BusyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// NewStore opens the SQLite database at path. Migrations are not applied;
// call ApplyMigrations.
func NewStore(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return sqlstore.New(db, Dialect), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

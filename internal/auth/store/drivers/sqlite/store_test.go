package sqlite_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	for range 2 {
		s, err := sqlite.NewStore(path)
		require.NoError(t, err)
		require.NoError(t, s.ApplyMigrations())
		require.NoError(t, s.Close())
	}
}

func TestDSN(t *testing.T) {
	dsn := sqlite.DSN("/var/lib/kbauth/auth.db")
	require.True(t, strings.HasPrefix(dsn, "file:/var/lib/kbauth/auth.db?"))
	require.Contains(t, dsn, "_txlock=immediate")
	require.Contains(t, dsn, "busy_timeout")
	require.Contains(t, dsn, "foreign_keys")
}

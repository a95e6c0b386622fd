// Package testenv provides the database and logging environment shared by
// folio's tests.
//
// By default every test gets its own SQLite database file in t.TempDir().
// Setting FOLIO_TEST_POSTGRES_DSN runs the same tests against PostgreSQL
// instead; the database is emptied before each test, so point it at a
// dedicated database.
package testenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/pkg/store"
	"github.com/foliohq/folio/pkg/store/gormstore"
)

// EnvPostgresDSN selects PostgreSQL for tests when set.
const EnvPostgresDSN = "FOLIO_TEST_POSTGRES_DSN"

// Logger returns a logger that writes through t.Log, so output only shows
// up for failing tests or with -v.
func Logger(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}

// NewStore returns a migrated, empty store that is closed when the test
// ends.
func NewStore(t testing.TB) *gormstore.Store {
	t.Helper()

	driver, dsn := gormstore.DriverSQLite, filepath.Join(t.TempDir(), "folio.db")
	if pg := os.Getenv(EnvPostgresDSN); pg != "" {
		driver, dsn = gormstore.DriverPostgres, pg
	}

	s, err := gormstore.Open(driver, dsn, Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	if driver == gormstore.DriverPostgres {
		require.NoError(t, s.Update(ctx, Reset))
	}
	return s
}

// Reset deletes every row, children before parents.
func Reset(tx store.Tx) error {
	all := store.SystemScope()
	for _, del := range []func(store.Scope) (int64, error){
		tx.DeleteContactMessages,
		tx.DeleteUserSkills,
		tx.DeleteQualifications,
		tx.DeleteTestimonials,
		tx.DeleteExperiences,
		tx.DeleteProjects,
		tx.DeleteUserSettings,
		tx.DeleteProfiles,
	} {
		if _, err := del(all); err != nil {
			return err
		}
	}
	for _, del := range []func() (int64, error){tx.DeleteUsers, tx.DeleteSkills, tx.DeleteSettings} {
		if _, err := del(); err != nil {
			return err
		}
	}
	return nil
}

// Package gormstore implements [store.Store] on top of GORM.
//
// Two dialects are supported. PostgreSQL is the production backend: read
// transactions run at REPEATABLE READ and [store.Tx.LockScope] takes
// transaction-scoped advisory locks. SQLite (the pure-Go
// github.com/glebarez/sqlite driver) backs local development and tests; it
// runs with foreign keys enforced and a single connection, which serializes
// all transactions, so scope locks are no-ops there.
//
// Errors are translated by GORM: unique and foreign key violations surface
// wrapped in [store.ErrConflict], lookups that match nothing as
// [store.ErrNotFound].
//
//	s, err := gormstore.Open(gormstore.DriverPostgres, "postgres://folio@localhost/folio", log)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.Migrate(ctx); err != nil {
//		return err
//	}
package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements store.Store with GORM.
type Store struct {
	db      *gorm.DB
	dialect string
}

var _ store.Store = (*Store)(nil)

// Open connects to the database selected by driver.
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{db: db, dialect: driver}, nil
}

// sqliteDSN turns on foreign key enforcement unless the DSN already
// configures pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Dialect returns the driver name the store was opened with.
func (s *Store) Dialect() string { return s.dialect }

// Migrate creates tables, indexes and foreign keys for every model.
// AutoMigrate only adds schema elements; it never drops columns or data.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	var opts []*sql.TxOptions
	if s.dialect == DriverPostgres {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db, dialect: s.dialect})
	}, opts...)
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db, dialect: s.dialect})
	})
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/foliohq/folio/pkg/backup"
	"github.com/foliohq/folio/pkg/logger"
	"github.com/foliohq/folio/pkg/store"
	"github.com/foliohq/folio/pkg/store/gormstore"
)

// App holds the application state shared by the CLI commands and the HTTP
// server.
type App struct {
	config   *Config
	log      zerolog.Logger
	logData  *logger.LogData
	db       *gormstore.Store
	store    *store.ReadOnlyStore
	backups  *backup.Service
	registry *prometheus.Registry
	readOnly atomic.Bool
}

// New opens the database and wires the backup service. The store is
// wrapped so maintenance mode applies to every write path.
func New(config *Config) (*App, error) {
	logData, err := logger.New().FromPath(config.Log.File).WithLevel(config.Log.Level).Make()
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	log := logData.Logger

	db, err := gormstore.Open(config.Database.Driver, config.Database.DSN, log)
	if err != nil {
		_ = logData.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info().Str("driver", db.Dialect()).Msg("connected to database")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		config:   config,
		log:      log,
		logData:  logData,
		db:       db,
		registry: registry,
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = store.NewReadOnlyStore(db, app.IsReadOnly)
	app.backups = backup.NewService(app.store, log,
		backup.WithMetrics(backup.NewMetrics(registry)),
		backup.WithRestoreTimeout(config.Restore.Timeout),
	)
	return app, nil
}

// Close closes the database and the log file.
func (a *App) Close() error {
	return errors.Join(a.db.Close(), a.logData.Close())
}

// Store returns the store every component writes through.
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly toggles maintenance mode. Writes, restores included, are
// rejected with store.ErrReadOnly while it is on; reads and backups keep
// working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info().Bool("read_only", readOnly).Msg("maintenance mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// Migrate applies the schema.
func (a *App) Migrate(ctx context.Context, _ *MigrateCommand) error {
	if err := a.db.Migrate(ctx); err != nil {
		return err
	}
	a.log.Info().Msg("schema migrated")
	return nil
}

// Backup writes the snapshot selected by cmd. The output file is only
// created once the snapshot has been built.
func (a *App) Backup(ctx context.Context, cmd *BackupCommand, stdout io.Writer) error {
	var buf bytes.Buffer
	switch cmd.Scope {
	case ScopeUser:
		owner, err := a.backups.OwnerBySlug(ctx, cmd.Slug)
		if err != nil {
			return err
		}
		if err := a.backups.ExportUser(ctx, owner.PublicID, &buf, cmd.Format); err != nil {
			return err
		}
	case ScopeSystem:
		if err := a.backups.ExportSystem(ctx, &buf, cmd.Format); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown backup scope %q", cmd.Scope)
	}

	if cmd.Output == "" {
		_, err := buf.WriteTo(stdout)
		return err
	}
	return os.WriteFile(cmd.Output, buf.Bytes(), 0o600)
}

// Restore applies the snapshot selected by cmd and writes the statistics
// to stdout as JSON.
func (a *App) Restore(ctx context.Context, cmd *RestoreCommand, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if cmd.Input != "" {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var stats *backup.RestoreStats
	switch cmd.Scope {
	case ScopeUser:
		owner, err := a.backups.OwnerBySlug(ctx, cmd.Slug)
		if err != nil {
			return err
		}
		if stats, err = a.backups.ImportUser(ctx, owner.PublicID, in, cmd.Format); err != nil {
			return err
		}
	case ScopeSystem:
		var err error
		if stats, err = a.backups.ImportSystem(ctx, in, cmd.Format); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown restore scope %q", cmd.Scope)
	}
	return writeJSON(stdout, stats)
}

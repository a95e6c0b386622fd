package folio

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliohq/folio/pkg/backup"
	"github.com/foliohq/folio/pkg/store/gormstore"
)

// ErrNoCommand is returned by [Parse] when the arguments only asked for
// help or named no sub-command.
var ErrNoCommand = errors.New("no command given, run folio --help")

// flagKeys binds persistent flags to configuration keys.
var flagKeys = map[string]string{
	"database-driver":  "database.driver",
	"database-dsn":     "database.dsn",
	"addr":             "server.addr",
	"shutdown-timeout": "server.shutdown_timeout",
	"log-level":        "log.level",
	"log-file":         "log.file",
	"restore-timeout":  "restore.timeout",
	"read-only":        "read_only",
}

// Parse parses command line arguments into the command to execute and the
// configuration shared by all commands. Help output goes to out.
func Parse(args []string, out io.Writer) (Command, *Config, error) {
	v := viper.New()
	setDefaults(v)

	var (
		cmd        Command
		configFile string
	)
	root := &cobra.Command{
		Use:   "folio",
		Short: "Portfolio backend with backup and restore",
		Long: `folio serves portfolio data and moves it between environments.

Snapshots are self-describing JSON or CBOR envelopes. Restores are
destructive: the user or system scope is wiped and rebuilt from the
snapshot inside one transaction.

Configuration comes from flags, FOLIO_* environment variables
(FOLIO_DATABASE_DSN, FOLIO_LOG_LEVEL, ...) and an optional config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("database-driver", gormstore.DriverSQLite, "database driver: postgres or sqlite")
	flags.String("database-dsn", "folio.db", "database connection string, or file path for sqlite")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.Duration("shutdown-timeout", 5*time.Second, "grace period for in-flight requests on shutdown")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "append logs to this file instead of stderr")
	flags.Duration("restore-timeout", 5*time.Minute, "abort and roll back restores running longer than this (0 disables)")
	flags.Bool("read-only", false, "start in maintenance mode, rejecting writes")
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, nil, err
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				cmd = &RunCommand{}
				return nil
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				cmd = &MigrateCommand{}
				return nil
			},
		},
		newBackupCmd(func(c *BackupCommand) { cmd = c }),
		newRestoreCmd(func(c *RestoreCommand) { cmd = c }),
	)

	if err := root.Execute(); err != nil {
		return nil, nil, err
	}
	if cmd == nil {
		return nil, nil, ErrNoCommand
	}

	config, err := loadConfig(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	return cmd, config, nil
}

func newBackupCmd(set func(*BackupCommand)) *cobra.Command {
	var format, output string
	parent := &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of one owner or of the whole system",
	}
	parent.PersistentFlags().StringVar(&format, "format", "json", "envelope encoding: json or cbor")
	parent.PersistentFlags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	build := func(scope Scope, slug string) error {
		f, err := backup.ParseFormat(format)
		if err != nil {
			return err
		}
		set(&BackupCommand{Scope: scope, Slug: slug, Format: f, Output: output})
		return nil
	}
	parent.AddCommand(
		&cobra.Command{
			Use:   "user <slug>",
			Short: "Snapshot one owner's portfolio",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return build(ScopeUser, args[0])
			},
		},
		&cobra.Command{
			Use:   "system",
			Short: "Snapshot every owner and the settings catalog",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return build(ScopeSystem, "")
			},
		},
	)
	return parent
}

func newRestoreCmd(set func(*RestoreCommand)) *cobra.Command {
	var format, input string
	parent := &cobra.Command{
		Use:   "restore",
		Short: "Replace one owner's portfolio or the whole system with a snapshot",
	}
	parent.PersistentFlags().StringVar(&format, "format", "", "envelope encoding: json or cbor (default: detect)")
	parent.PersistentFlags().StringVarP(&input, "input", "i", "", "input file (default stdin)")

	build := func(scope Scope, slug string) error {
		var f backup.Format
		if format != "" {
			var err error
			if f, err = backup.ParseFormat(format); err != nil {
				return err
			}
		}
		set(&RestoreCommand{Scope: scope, Slug: slug, Format: f, Input: input})
		return nil
	}
	parent.AddCommand(
		&cobra.Command{
			Use:   "user <slug>",
			Short: "Restore one owner from a user snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return build(ScopeUser, args[0])
			},
		},
		&cobra.Command{
			Use:   "system",
			Short: "Restore everything from a system snapshot",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return build(ScopeSystem, "")
			},
		},
	)
	return parent
}

package folio

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Main parses args and executes the command. It is what cmd/folio runs and
// can be called directly from tests; cancelling ctx stops the server
// gracefully.
//
//	folio migrate
//	folio serve
//	folio backup user alice -o alice.json
//	folio restore user alice -i alice.json
//	folio backup system --format cbor -o folio.cbor
//	folio restore system -i folio.cbor
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd, config, err := Parse(args, stdout)
	if err != nil {
		return err
	}

	app, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *BackupCommand:
		if err := app.Backup(ctx, c, stdout); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
	case *RestoreCommand:
		if err := app.Restore(ctx, c, stdin, stdout); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
	return nil
}

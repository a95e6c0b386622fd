package folio

import (
	"github.com/foliohq/folio/pkg/backup"
)

// Command is one operation parsed from the command line. Commands carry
// their own options; everything shared lives in [Config]. [Main] routes
// each command type to the matching [App] method.
type Command interface {
	// Name returns the sub-command name the command was parsed from.
	Name() string
}

// Scope selects what a backup or restore command covers.
type Scope string

const (
	ScopeUser   Scope = "user"
	ScopeSystem Scope = "system"
)

// RunCommand starts the HTTP server.
//
//	folio serve
//	folio --read-only serve      # start in maintenance mode
type RunCommand struct{}

func (c *RunCommand) Name() string {
	return "serve"
}

// MigrateCommand creates or updates the database schema. It is safe to
// run repeatedly.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// BackupCommand writes a snapshot to Output, or to standard output when
// Output is empty.
//
//	folio backup user alice -o alice.json
//	folio backup system --format cbor > folio.cbor
type BackupCommand struct {
	Scope  Scope
	Slug   string // owner slug, user scope only
	Format backup.Format
	Output string
}

func (c *BackupCommand) Name() string {
	return "backup"
}

// RestoreCommand replaces the scope with the snapshot read from Input, or
// from standard input when Input is empty. An empty Format detects the
// encoding from the content.
//
//	folio restore user alice -i alice.json
//	folio restore system < folio.cbor
type RestoreCommand struct {
	Scope  Scope
	Slug   string
	Format backup.Format
	Input  string
}

func (c *RestoreCommand) Name() string {
	return "restore"
}

// Package folio is the folio application: configuration, the command line,
// and the HTTP API in front of the backup engine in
// [github.com/foliohq/folio/pkg/backup].
//
// [Main] parses arguments into a [Command] and a [Config] and runs the
// command against an [App]. Every write goes through a
// [github.com/foliohq/folio/pkg/store.ReadOnlyStore], so maintenance mode
// stops restores from the CLI and the API alike.
package folio

// Package backup snapshots portfolio data into self-describing envelopes
// and restores them.
//
// There are two scopes. A user envelope holds one owner's portfolio: the
// profile, skills with proficiency, projects, experiences, testimonials,
// qualifications, contact messages and settings. A system envelope holds
// every owner plus the global settings catalog.
//
// Envelopes carry references between entities by business key: a project
// lists the names of the skills it uses, a user setting names its catalog
// entry. Restoring resolves those names against the target database and
// creates missing catalog entries, so a snapshot can be moved between
// environments whose surrogate keys differ.
//
// Restores are destructive. The scope is wiped and rebuilt inside a single
// transaction, and any failure rolls the scope back to its previous state:
//
//	svc := backup.NewService(st, log)
//	stats, err := svc.ImportUser(ctx, owner.PublicID, r, backup.FormatJSON)
//	switch {
//	case errors.Is(err, backup.ErrValidation):
//		// nothing was touched
//	case errors.Is(err, backup.ErrIntegrity):
//		// rolled back
//	}
//
// Envelopes are encoded as JSON or CBOR; both carry the same fields.
package backup

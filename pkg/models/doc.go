// Package models defines the portfolio entities persisted by folio.
//
// Every owner-scoped entity carries two identifiers: a surrogate key (ID),
// which is internal to one database and regenerated whenever rows are
// recreated, and a public [ID] (PublicID) that is stable across backups,
// restores and environments. Foreign keys between rows always use surrogate
// keys; anything that leaves the database uses public IDs or business keys
// (slug, email, skill name, setting name).
//
// The entity graph of one owner:
//
//   - [User]: the owner, addressed by slug or public ID
//   - [Profile]: exactly one per owner
//   - [UserSkill]: the owner's relationship to a global [Skill]
//   - [Project] and [Experience]: content that references a set of skills
//   - [Testimonial], [Qualification], [ContactMessage]: plain content
//   - [UserSetting]: a per-owner override of a global [Setting]
//
// [Skill] and [Setting] are global catalogs shared by every owner.
package models

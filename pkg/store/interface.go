// Package store provides the persistence layer abstraction for folio.
//
// The [Store] interface hands out transactions rather than individual
// repository calls: every operation of the backup engine has to observe or
// replace an owner's whole entity graph at once, so all entity access goes
// through a [Tx] that lives exactly as long as one [Store.View] or
// [Store.Update] callback.
//
// # Transactions
//
//   - [Store.View] runs a read-only transaction. On PostgreSQL it uses
//     REPEATABLE READ so a snapshot taken while another request edits content
//     sees either the state before or after that edit, never a mix.
//   - [Store.Update] runs a read-write transaction. Returning an error (or
//     panicking) from the callback rolls back every change made through the Tx.
//
// # Scopes
//
// Bulk deletes and counts take a [Scope]: either one owner ([OwnerScope]) or
// the whole system ([SystemScope]). The zero Scope is invalid and rejected,
// so a forgotten scope can never widen into a system-wide delete.
//
// # Identifiers
//
// Owner references inside a Tx are surrogate keys (models.User.ID). They are
// only meaningful inside one database and never leave the process.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/foliohq/folio/pkg/models"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")

	// ErrReadOnly is returned by Update while the application is in
	// maintenance mode.
	ErrReadOnly = errors.New("operation denied: application is in read-only mode")

	// ErrInvalidScope is returned for the zero Scope.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrConflict wraps unique and foreign key violations.
	ErrConflict = errors.New("constraint violation")
)

// Store is the entry point to persistent storage.
type Store interface {
	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// View runs fn in a read-only, snapshot-consistent transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn in a read-write transaction that commits only when fn
	// returns nil.
	Update(ctx context.Context, fn func(Tx) error) error

	Close() error
}

// Tx exposes the entity stores inside one transaction.
type Tx interface {
	// LockScope serializes writers of the same scope for the rest of the
	// transaction. An owner scope takes a shared system lock and an
	// exclusive owner lock; the system scope takes the exclusive system
	// lock. Backends without lock support treat this as a no-op.
	LockScope(scope Scope) error

	// Users
	GetUser(id models.UserID) (*models.User, error)
	GetUserBySlug(slug string) (*models.User, error)
	ListUsers() ([]models.User, error)
	CreateUser(user *models.User) error
	DeleteUsers() (int64, error)

	// Profiles
	GetProfile(ownerID uint) (*models.Profile, error)
	CreateProfile(profile *models.Profile) error
	DeleteProfiles(scope Scope) (int64, error)

	// Skills: the global catalog and the owner relationships to it.
	// FindSkill matches names case-insensitively.
	FindSkill(name string) (*models.Skill, error)
	CreateSkill(skill *models.Skill) error
	ListSkills() ([]models.Skill, error)
	DeleteSkills() (int64, error)
	ListUserSkills(ownerID uint) ([]models.UserSkill, error)
	FindUserSkill(ownerID, skillID uint) (*models.UserSkill, error)
	CreateUserSkill(userSkill *models.UserSkill) error
	DeleteUserSkills(scope Scope) (int64, error)

	// Content. List methods return rows in display order with skills
	// preloaded where the entity has them. CreateProject and
	// CreateExperience link the skills already attached to the row; they
	// never create catalog entries.
	ListProjects(ownerID uint) ([]models.Project, error)
	CreateProject(project *models.Project) error
	DeleteProjects(scope Scope) (int64, error)

	ListExperiences(ownerID uint) ([]models.Experience, error)
	CreateExperience(experience *models.Experience) error
	DeleteExperiences(scope Scope) (int64, error)

	ListTestimonials(ownerID uint) ([]models.Testimonial, error)
	CreateTestimonial(testimonial *models.Testimonial) error
	DeleteTestimonials(scope Scope) (int64, error)

	ListQualifications(ownerID uint) ([]models.Qualification, error)
	CreateQualification(qualification *models.Qualification) error
	DeleteQualifications(scope Scope) (int64, error)

	ListContactMessages(ownerID uint) ([]models.ContactMessage, error)
	CreateContactMessage(message *models.ContactMessage) error
	DeleteContactMessages(scope Scope) (int64, error)

	// Settings
	ListSettings() ([]models.Setting, error)
	FindSetting(name string) (*models.Setting, error)
	CreateSetting(setting *models.Setting) error
	DeleteSettings() (int64, error)
	ListUserSettings(ownerID uint) ([]models.UserSetting, error)
	CreateUserSetting(setting *models.UserSetting) error
	DeleteUserSettings(scope Scope) (int64, error)

	// Counts reports how many rows the scope holds per entity.
	Counts(scope Scope) (Counts, error)
}

type scopeKind uint8

const (
	scopeInvalid scopeKind = iota
	scopeOwner
	scopeSystem
)

// Scope is the unit of a bulk operation: one owner or the whole system.
type Scope struct {
	kind    scopeKind
	ownerID uint
}

// OwnerScope selects the rows of one owner.
func OwnerScope(ownerID uint) Scope {
	return Scope{kind: scopeOwner, ownerID: ownerID}
}

// SystemScope selects every row.
func SystemScope() Scope {
	return Scope{kind: scopeSystem}
}

func (s Scope) IsSystem() bool { return s.kind == scopeSystem }

// OwnerID returns the owner's surrogate key, or 0 for the system scope.
func (s Scope) OwnerID() uint { return s.ownerID }

// Validate rejects the zero Scope and owner scopes without an owner.
func (s Scope) Validate() error {
	switch {
	case s.kind == scopeSystem:
		return nil
	case s.kind == scopeOwner && s.ownerID != 0:
		return nil
	default:
		return ErrInvalidScope
	}
}

func (s Scope) String() string {
	switch s.kind {
	case scopeSystem:
		return "system"
	case scopeOwner:
		return fmt.Sprintf("owner:%d", s.ownerID)
	default:
		return "invalid"
	}
}

// Counts holds per-entity row counts. Users, Skills and Settings are only
// filled for the system scope: in an owner scope the owner row and the
// global catalogs are not part of the scope.
type Counts struct {
	Users           int64 `json:"users"`
	Profiles        int64 `json:"profiles"`
	UserSkills      int64 `json:"user_skills"`
	Projects        int64 `json:"projects"`
	Experiences     int64 `json:"experiences"`
	Testimonials    int64 `json:"testimonials"`
	Qualifications  int64 `json:"qualifications"`
	ContactMessages int64 `json:"contact_messages"`
	UserSettings    int64 `json:"user_settings"`
	Skills          int64 `json:"skills"`
	Settings        int64 `json:"settings"`
}

// Add returns the field-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Users:           c.Users + o.Users,
		Profiles:        c.Profiles + o.Profiles,
		UserSkills:      c.UserSkills + o.UserSkills,
		Projects:        c.Projects + o.Projects,
		Experiences:     c.Experiences + o.Experiences,
		Testimonials:    c.Testimonials + o.Testimonials,
		Qualifications:  c.Qualifications + o.Qualifications,
		ContactMessages: c.ContactMessages + o.ContactMessages,
		UserSettings:    c.UserSettings + o.UserSettings,
		Skills:          c.Skills + o.Skills,
		Settings:        c.Settings + o.Settings,
	}
}

func (c Counts) Total() int64 {
	return c.Users + c.Profiles + c.UserSkills + c.Projects + c.Experiences +
		c.Testimonials + c.Qualifications + c.ContactMessages + c.UserSettings +
		c.Skills + c.Settings
}

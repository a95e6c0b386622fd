package backup

import (
	"time"

	"github.com/foliohq/folio/pkg/models"
)

// EnvelopeType names the scope a snapshot was taken for.
type EnvelopeType string

// Envelope type constants
const (
	TypeUser   EnvelopeType = "user_backup"
	TypeSystem EnvelopeType = "system_backup"
)

const (
	// CurrentVersion is the envelope format version written by this build.
	CurrentVersion = "2.1.0"

	// MinSupportedVersion is written into every envelope and must match
	// exactly on restore.
	MinSupportedVersion = "2.0.0"
)

// Meta describes an envelope. It is checked before anything else is read.
type Meta struct {
	Type          EnvelopeType  `json:"type" validate:"required"`
	Version       string        `json:"version" validate:"required,semver"`
	ExportedAt    time.Time     `json:"exportedAt"`
	Compatibility Compatibility `json:"compatibility"`
}

type Compatibility struct {
	MinSupportedVersion string `json:"minSupportedVersion" validate:"required,semver"`
}

func newMeta(t EnvelopeType, now time.Time) Meta {
	return Meta{
		Type:       t,
		Version:    CurrentVersion,
		ExportedAt: now.UTC(),
		Compatibility: Compatibility{
			MinSupportedVersion: MinSupportedVersion,
		},
	}
}

// UserEnvelope is a snapshot of one owner. The portfolio collections sit
// next to meta at the top level of the document.
type UserEnvelope struct {
	Meta Meta `json:"meta"`

	// Owner identifies the account the snapshot was taken from. It is
	// informational on restore: the target owner is chosen by the caller.
	Owner *OwnerRecord `json:"owner,omitempty"`

	Portfolio
}

// SystemEnvelope is a snapshot of every owner plus the global settings
// catalog.
type SystemEnvelope struct {
	Meta     Meta            `json:"meta"`
	Settings []SettingRecord `json:"settings" validate:"dive"`
	Payload  []SystemEntry   `json:"payload" validate:"dive"`
}

// SystemEntry pairs an owner with its portfolio.
type SystemEntry struct {
	User      OwnerRecord `json:"user"`
	Portfolio Portfolio   `json:"portfolio"`
}

// Portfolio is the full content graph of one owner. Skills referenced by
// projects and experiences are carried by name.
type Portfolio struct {
	Profile         *ProfileRecord         `json:"profile"`
	Skills          []SkillRecord          `json:"skills" validate:"dive"`
	Projects        []ProjectRecord        `json:"projects" validate:"dive"`
	Experiences     []ExperienceRecord     `json:"experiences" validate:"dive"`
	Testimonials    []TestimonialRecord    `json:"testimonials" validate:"dive"`
	Qualifications  []QualificationRecord  `json:"qualifications" validate:"dive"`
	ContactMessages []ContactMessageRecord `json:"contactMessages" validate:"dive"`
	Settings        []UserSettingRecord    `json:"settings" validate:"dive"`
}

// Credentials are never part of an OwnerRecord.
type OwnerRecord struct {
	ID     models.UserID `json:"id"`
	Slug   string        `json:"slug" validate:"required"`
	Email  string        `json:"email" validate:"required,email"`
	Roles  []string      `json:"roles"`
	Active bool          `json:"active"`
}

type ProfileRecord struct {
	FullName        string            `json:"fullName"`
	Headline        string            `json:"headline"`
	Summary         string            `json:"summary"`
	Location        string            `json:"location"`
	AvatarURL       string            `json:"avatarUrl"`
	Website         string            `json:"website"`
	Links           map[string]string `json:"links"`
	Public          bool              `json:"public"`
	ShowEmail       bool              `json:"showEmail"`
	ShowContactForm bool              `json:"showContactForm"`
}

// SkillRecord is an owner skill: the catalog fields (name, category, icon)
// and the owner's relationship to it.
type SkillRecord struct {
	Name              string            `json:"name" validate:"required"`
	Category          string            `json:"category"`
	Icon              string            `json:"icon"`
	Level             models.SkillLevel `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	YearsOfExperience int               `json:"yearsOfExperience" validate:"gte=0"`
	Visible           bool              `json:"visible"`
	SortOrder         int               `json:"sortOrder"`
}

type ProjectRecord struct {
	ID            models.ProjectID `json:"id"`
	Title         string           `json:"title" validate:"required"`
	Description   string           `json:"description"`
	URL           string           `json:"url"`
	RepositoryURL string           `json:"repositoryUrl"`
	ImageURL      string           `json:"imageUrl"`
	Featured      bool             `json:"featured"`
	SortOrder     int              `json:"sortOrder"`
	StartDate     *time.Time       `json:"startDate,omitempty"`
	EndDate       *time.Time       `json:"endDate,omitempty"`
	Skills        []string         `json:"skills"`
}

type ExperienceRecord struct {
	ID          models.ExperienceID `json:"id"`
	JobTitle    string              `json:"jobTitle" validate:"required"`
	Company     string              `json:"company"`
	Location    string              `json:"location"`
	Description string              `json:"description"`
	StartDate   *time.Time          `json:"startDate,omitempty"`
	EndDate     *time.Time          `json:"endDate,omitempty"`
	Current     bool                `json:"current"`
	SortOrder   int                 `json:"sortOrder"`
	Skills      []string            `json:"skills"`
}

type TestimonialRecord struct {
	ID            models.TestimonialID `json:"id"`
	AuthorName    string               `json:"authorName" validate:"required"`
	AuthorRole    string               `json:"authorRole"`
	AuthorCompany string               `json:"authorCompany"`
	Content       string               `json:"content" validate:"required"`
	Rating        int                  `json:"rating" validate:"gte=0,lte=5"`
	Approved      bool                 `json:"approved"`
	SortOrder     int                  `json:"sortOrder"`
}

type QualificationRecord struct {
	ID            models.QualificationID   `json:"id"`
	Kind          models.QualificationKind `json:"kind" validate:"required,oneof=education certification award"`
	Title         string                   `json:"title" validate:"required"`
	Institution   string                   `json:"institution"`
	Description   string                   `json:"description"`
	CredentialURL string                   `json:"credentialUrl"`
	IssuedAt      *time.Time               `json:"issuedAt,omitempty"`
	ExpiresAt     *time.Time               `json:"expiresAt,omitempty"`
	SortOrder     int                      `json:"sortOrder"`
}

type ContactMessageRecord struct {
	ID         models.ContactMessageID `json:"id"`
	Name       string                  `json:"name" validate:"required"`
	Email      string                  `json:"email" validate:"required"`
	Subject    string                  `json:"subject"`
	Message    string                  `json:"message" validate:"required"`
	Read       bool                    `json:"read"`
	ReceivedAt time.Time               `json:"receivedAt"`
}

// UserSettingRecord references its Setting by name.
type UserSettingRecord struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

type SettingRecord struct {
	Name        string `json:"name" validate:"required"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Kind tags an ID with the entity it identifies so that a ProjectID can
// never be passed where a UserID is expected.
type Kind interface {
	kindName() string
}

type (
	userKind           struct{}
	projectKind        struct{}
	experienceKind     struct{}
	testimonialKind    struct{}
	qualificationKind  struct{}
	contactMessageKind struct{}
)

func (userKind) kindName() string           { return "user" }
func (projectKind) kindName() string        { return "project" }
func (experienceKind) kindName() string     { return "experience" }
func (testimonialKind) kindName() string    { return "testimonial" }
func (qualificationKind) kindName() string  { return "qualification" }
func (contactMessageKind) kindName() string { return "contact message" }

// ID is the public, stable identifier of an entity. It is the only
// identifier that leaves the database: surrogate keys stay internal.
type ID[K Kind] struct {
	uuid uuid.UUID
}

type (
	UserID           = ID[userKind]
	ProjectID        = ID[projectKind]
	ExperienceID     = ID[experienceKind]
	TestimonialID    = ID[testimonialKind]
	QualificationID  = ID[qualificationKind]
	ContactMessageID = ID[contactMessageKind]
)

func NewUserID() UserID                     { return UserID{uuid: uuid.New()} }
func NewProjectID() ProjectID               { return ProjectID{uuid: uuid.New()} }
func NewExperienceID() ExperienceID         { return ExperienceID{uuid: uuid.New()} }
func NewTestimonialID() TestimonialID       { return TestimonialID{uuid: uuid.New()} }
func NewQualificationID() QualificationID   { return QualificationID{uuid: uuid.New()} }
func NewContactMessageID() ContactMessageID { return ContactMessageID{uuid: uuid.New()} }

// IDFromUUID wraps an existing UUID.
func IDFromUUID[K Kind](id uuid.UUID) ID[K] {
	return ID[K]{uuid: id}
}

// ParseID parses the canonical string form of an ID.
func ParseID[K Kind](s string) (ID[K], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		var k K
		return ID[K]{}, fmt.Errorf("invalid %s ID: %w", k.kindName(), err)
	}
	return ID[K]{uuid: id}, nil
}

func ParseUserID(s string) (UserID, error) { return ParseID[userKind](s) }

func (i ID[K]) UUID() uuid.UUID { return i.uuid }
func (i ID[K]) String() string  { return i.uuid.String() }
func (i ID[K]) IsZero() bool    { return i.uuid == uuid.Nil }

func (i ID[K]) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(i.uuid.String())
}

// UnmarshalJSON accepts null and the empty string as the zero ID.
func (i *ID[K]) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.parse(s)
}

func (i ID[K]) MarshalCBOR() ([]byte, error) {
	if i.IsZero() {
		return cbor.Marshal("")
	}
	return cbor.Marshal(i.uuid.String())
}

func (i *ID[K]) UnmarshalCBOR(data []byte) error {
	var s *string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.parse(s)
}

func (i *ID[K]) parse(s *string) error {
	if s == nil || *s == "" {
		i.uuid = uuid.Nil
		return nil
	}
	parsed, err := ParseID[K](*s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i ID[K]) Value() (driver.Value, error) {
	if i.IsZero() {
		return nil, nil
	}
	return i.uuid.String(), nil
}

func (i *ID[K]) Scan(value any) error {
	return scanUUID(value, &i.uuid)
}

func (ID[K]) GormDataType() string { return "uuid" }

func scanUUID(value any, target *uuid.UUID) error {
	switch v := value.(type) {
	case nil:
		*target = uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return err
			}
			*target = id
			return nil
		}
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	case [16]byte:
		*target = uuid.UUID(v)
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

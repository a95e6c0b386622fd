package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SkillLevel is an owner's self-assessed proficiency in a skill.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
	SkillExpert       SkillLevel = "EXPERT"
)

// QualificationKind distinguishes degrees from certificates and awards.
type QualificationKind string

const (
	QualificationEducation     QualificationKind = "education"
	QualificationCertification QualificationKind = "certification"
	QualificationAward         QualificationKind = "award"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// StringList is stored as a JSON array: jsonb on PostgreSQL, text elsewhere.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(b, (*[]string)(l))
}

func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// StringMap is stored as a JSON object, like StringList.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *StringMap) Scan(value any) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*m = nil
		return err
	}
	return json.Unmarshal(b, (*map[string]string)(m))
}

func (StringMap) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan type %T into JSON column", value)
	}
}

// User is the owner of one portfolio. PasswordHash never leaves the
// database; backups carry everything else.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	PublicID     UserID     `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	Slug         string     `gorm:"uniqueIndex;not null" json:"slug"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Roles        StringList `json:"roles"`
	Active       bool       `gorm:"not null" json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID.IsZero() {
		u.PublicID = NewUserID()
	}
	return nil
}

// Profile is the 1:1 public face of a User.
type Profile struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"-"`
	Owner           *User     `gorm:"foreignKey:UserID" json:"-"`
	FullName        string    `json:"full_name"`
	Headline        string    `json:"headline"`
	Summary         string    `json:"summary"`
	Location        string    `json:"location"`
	AvatarURL       string    `json:"avatar_url"`
	Website         string    `json:"website"`
	Links           StringMap `json:"links"`
	Public          bool      `gorm:"not null" json:"public"`
	ShowEmail       bool      `gorm:"not null" json:"show_email"`
	ShowContactForm bool      `gorm:"not null" json:"show_contact_form"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Skill is a global catalog entry shared by every owner. NameKey is the
// normalized name and carries the uniqueness constraint, so "Go" and " go"
// are the same skill.
type Skill struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	NameKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	Category  string    `json:"category"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// SkillKey normalizes a skill name for catalog lookups.
func SkillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Skill) BeforeSave(tx *gorm.DB) error {
	s.Name = strings.TrimSpace(s.Name)
	s.NameKey = SkillKey(s.Name)
	if s.NameKey == "" {
		return fmt.Errorf("skill name must not be empty")
	}
	return nil
}

// UserSkill is an owner's relationship to a catalog skill.
type UserSkill struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UserID            uint       `gorm:"uniqueIndex:idx_user_skill;not null" json:"-"`
	Owner             *User      `gorm:"foreignKey:UserID" json:"-"`
	SkillID           uint       `gorm:"uniqueIndex:idx_user_skill;not null" json:"-"`
	Skill             *Skill     `gorm:"foreignKey:SkillID" json:"skill,omitempty"`
	Level             SkillLevel `gorm:"not null" json:"level"`
	YearsOfExperience int        `json:"years_of_experience"`
	Visible           bool       `gorm:"not null" json:"visible"`
	SortOrder         int        `json:"sort_order"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Project struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	PublicID      ProjectID  `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"-"`
	Owner         *User      `gorm:"foreignKey:UserID" json:"-"`
	Title         string     `gorm:"not null" json:"title"`
	Description   string     `json:"description"`
	URL           string     `json:"url"`
	RepositoryURL string     `json:"repository_url"`
	ImageURL      string     `json:"image_url"`
	Featured      bool       `json:"featured"`
	SortOrder     int        `json:"sort_order"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Skills        []*Skill   `gorm:"many2many:project_skills" json:"skills,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID.IsZero() {
		p.PublicID = NewProjectID()
	}
	return nil
}

type Experience struct {
	ID          uint         `gorm:"primaryKey" json:"-"`
	PublicID    ExperienceID `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	UserID      uint         `gorm:"index;not null" json:"-"`
	Owner       *User        `gorm:"foreignKey:UserID" json:"-"`
	JobTitle    string       `gorm:"not null" json:"job_title"`
	Company     string       `json:"company"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	Current     bool         `json:"current"`
	SortOrder   int          `json:"sort_order"`
	Skills      []*Skill     `gorm:"many2many:experience_skills" json:"skills,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (e *Experience) BeforeCreate(tx *gorm.DB) error {
	if e.PublicID.IsZero() {
		e.PublicID = NewExperienceID()
	}
	return nil
}

type Testimonial struct {
	ID            uint          `gorm:"primaryKey" json:"-"`
	PublicID      TestimonialID `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	UserID        uint          `gorm:"index;not null" json:"-"`
	Owner         *User         `gorm:"foreignKey:UserID" json:"-"`
	AuthorName    string        `gorm:"not null" json:"author_name"`
	AuthorRole    string        `json:"author_role"`
	AuthorCompany string        `json:"author_company"`
	Content       string        `gorm:"not null" json:"content"`
	Rating        int           `json:"rating"`
	Approved      bool          `json:"approved"`
	SortOrder     int           `json:"sort_order"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (t *Testimonial) BeforeCreate(tx *gorm.DB) error {
	if t.PublicID.IsZero() {
		t.PublicID = NewTestimonialID()
	}
	return nil
}

type Qualification struct {
	ID            uint              `gorm:"primaryKey" json:"-"`
	PublicID      QualificationID   `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	UserID        uint              `gorm:"index;not null" json:"-"`
	Owner         *User             `gorm:"foreignKey:UserID" json:"-"`
	Kind          QualificationKind `gorm:"not null" json:"kind"`
	Title         string            `gorm:"not null" json:"title"`
	Institution   string            `json:"institution"`
	Description   string            `json:"description"`
	CredentialURL string            `json:"credential_url"`
	IssuedAt      *time.Time        `json:"issued_at,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	SortOrder     int               `json:"sort_order"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (q *Qualification) BeforeCreate(tx *gorm.DB) error {
	if q.PublicID.IsZero() {
		q.PublicID = NewQualificationID()
	}
	return nil
}

// ContactMessage is a message left by a visitor through the contact form.
type ContactMessage struct {
	ID         uint             `gorm:"primaryKey" json:"-"`
	PublicID   ContactMessageID `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	UserID     uint             `gorm:"index;not null" json:"-"`
	Owner      *User            `gorm:"foreignKey:UserID" json:"-"`
	Name       string           `gorm:"not null" json:"name"`
	Email      string           `gorm:"not null" json:"email"`
	Subject    string           `json:"subject"`
	Message    string           `gorm:"not null" json:"message"`
	Read       bool             `json:"read"`
	ReceivedAt time.Time        `json:"received_at"`
}

func (m *ContactMessage) BeforeCreate(tx *gorm.DB) error {
	if m.PublicID.IsZero() {
		m.PublicID = NewContactMessageID()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now().UTC()
	}
	return nil
}

// Setting is a global setting with its default value.
type Setting struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// UserSetting overrides a Setting for one owner. It references the
// setting by name, never by surrogate key.
type UserSetting struct {
	ID          uint     `gorm:"primaryKey" json:"-"`
	UserID      uint     `gorm:"uniqueIndex:idx_user_setting;not null" json:"-"`
	Owner       *User    `gorm:"foreignKey:UserID" json:"-"`
	SettingName string   `gorm:"uniqueIndex:idx_user_setting;not null" json:"name"`
	Setting     *Setting `gorm:"foreignKey:SettingName;references:Name" json:"-"`
	Value       string   `json:"value"`
}

// All lists every model in dependency order, parents first.
func All() []any {
	return []any{
		&User{},
		&Setting{},
		&Skill{},
		&Profile{},
		&UserSkill{},
		&Project{},
		&Experience{},
		&Testimonial{},
		&Qualification{},
		&ContactMessage{},
		&UserSetting{},
	}
}

package gormstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

const systemLockKey = "folio:system"

// tx implements store.Tx on a GORM transaction handle.
type tx struct {
	db      *gorm.DB
	dialect string
}

var _ store.Tx = (*tx)(nil)

func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w: %w", op, store.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (t *tx) LockScope(scope store.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if t.dialect != DriverPostgres {
		return nil
	}
	if scope.IsSystem() {
		return t.advisoryLock(systemLockKey, false)
	}
	if err := t.advisoryLock(systemLockKey, true); err != nil {
		return err
	}
	return t.advisoryLock(fmt.Sprintf("folio:owner:%d", scope.OwnerID()), false)
}

// advisoryLock blocks until the lock is granted. The lock is released when
// the transaction ends.
func (t *tx) advisoryLock(key string, shared bool) error {
	fn := "pg_advisory_xact_lock"
	if shared {
		fn = "pg_advisory_xact_lock_shared"
	}
	return wrap("lock "+key, t.db.Exec("SELECT "+fn+"(hashtext(?))", key).Error)
}

// scoped returns a query restricted to the owner of scope. The system scope
// allows statements without conditions.
func (t *tx) scoped(scope store.Scope) (*gorm.DB, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if scope.IsSystem() {
		return t.db.Session(&gorm.Session{AllowGlobalUpdate: true}), nil
	}
	return t.db.Where("user_id = ?", scope.OwnerID()), nil
}

func (t *tx) deleteScoped(op string, model any, scope store.Scope) (int64, error) {
	q, err := t.scoped(scope)
	if err != nil {
		return 0, err
	}
	res := q.Delete(model)
	return res.RowsAffected, wrap(op, res.Error)
}

func (t *tx) deleteAll(op string, model any) (int64, error) {
	res := t.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model)
	return res.RowsAffected, wrap(op, res.Error)
}

// deleteLinks removes many2many rows whose parent belongs to the scope.
func (t *tx) deleteLinks(joinTable, parentColumn, parentTable string, scope store.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	op := "delete " + joinTable
	if scope.IsSystem() {
		return wrap(op, t.db.Exec("DELETE FROM "+joinTable).Error)
	}
	return wrap(op, t.db.Exec(
		"DELETE FROM "+joinTable+" WHERE "+parentColumn+" IN (SELECT id FROM "+parentTable+" WHERE user_id = ?)",
		scope.OwnerID(),
	).Error)
}

// Users

func (t *tx) GetUser(id models.UserID) (*models.User, error) {
	var user models.User
	if err := t.db.Where("public_id = ?", id).First(&user).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

func (t *tx) GetUserBySlug(slug string) (*models.User, error) {
	var user models.User
	if err := t.db.Where("slug = ?", slug).First(&user).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

func (t *tx) ListUsers() ([]models.User, error) {
	var users []models.User
	err := t.db.Order("created_at, id").Find(&users).Error
	return users, wrap("list users", err)
}

func (t *tx) CreateUser(user *models.User) error {
	return wrap("create user", t.db.Create(user).Error)
}

func (t *tx) DeleteUsers() (int64, error) {
	return t.deleteAll("delete users", &models.User{})
}

// Profiles

func (t *tx) GetProfile(ownerID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := t.db.Where("user_id = ?", ownerID).First(&profile).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &profile, nil
}

func (t *tx) CreateProfile(profile *models.Profile) error {
	return wrap("create profile", t.db.Create(profile).Error)
}

func (t *tx) DeleteProfiles(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete profiles", &models.Profile{}, scope)
}

// Skills

func (t *tx) FindSkill(name string) (*models.Skill, error) {
	var skill models.Skill
	if err := t.db.Where("name_key = ?", models.SkillKey(name)).First(&skill).Error; err != nil {
		return nil, wrap("find skill", err)
	}
	return &skill, nil
}

func (t *tx) CreateSkill(skill *models.Skill) error {
	return wrap("create skill", t.db.Create(skill).Error)
}

func (t *tx) ListSkills() ([]models.Skill, error) {
	var skills []models.Skill
	err := t.db.Order("name_key").Find(&skills).Error
	return skills, wrap("list skills", err)
}

func (t *tx) DeleteSkills() (int64, error) {
	return t.deleteAll("delete skills", &models.Skill{})
}

func (t *tx) ListUserSkills(ownerID uint) ([]models.UserSkill, error) {
	var skills []models.UserSkill
	err := t.db.Preload("Skill").Where("user_id = ?", ownerID).Order("sort_order, id").Find(&skills).Error
	return skills, wrap("list user skills", err)
}

func (t *tx) FindUserSkill(ownerID, skillID uint) (*models.UserSkill, error) {
	var us models.UserSkill
	if err := t.db.Where("user_id = ? AND skill_id = ?", ownerID, skillID).First(&us).Error; err != nil {
		return nil, wrap("find user skill", err)
	}
	return &us, nil
}

func (t *tx) CreateUserSkill(userSkill *models.UserSkill) error {
	return wrap("create user skill", t.db.Omit("Skill", "Owner").Create(userSkill).Error)
}

func (t *tx) DeleteUserSkills(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete user skills", &models.UserSkill{}, scope)
}

// Projects

func (t *tx) ListProjects(ownerID uint) ([]models.Project, error) {
	var projects []models.Project
	err := t.db.Preload("Skills").Where("user_id = ?", ownerID).Order("sort_order, id").Find(&projects).Error
	return projects, wrap("list projects", err)
}

func (t *tx) CreateProject(project *models.Project) error {
	return wrap("create project", t.db.Omit("Skills.*", "Owner").Create(project).Error)
}

func (t *tx) DeleteProjects(scope store.Scope) (int64, error) {
	if err := t.deleteLinks("project_skills", "project_id", "projects", scope); err != nil {
		return 0, err
	}
	return t.deleteScoped("delete projects", &models.Project{}, scope)
}

// Experiences

func (t *tx) ListExperiences(ownerID uint) ([]models.Experience, error) {
	var experiences []models.Experience
	err := t.db.Preload("Skills").Where("user_id = ?", ownerID).Order("sort_order, id").Find(&experiences).Error
	return experiences, wrap("list experiences", err)
}

func (t *tx) CreateExperience(experience *models.Experience) error {
	return wrap("create experience", t.db.Omit("Skills.*", "Owner").Create(experience).Error)
}

func (t *tx) DeleteExperiences(scope store.Scope) (int64, error) {
	if err := t.deleteLinks("experience_skills", "experience_id", "experiences", scope); err != nil {
		return 0, err
	}
	return t.deleteScoped("delete experiences", &models.Experience{}, scope)
}

// Testimonials

func (t *tx) ListTestimonials(ownerID uint) ([]models.Testimonial, error) {
	var testimonials []models.Testimonial
	err := t.db.Where("user_id = ?", ownerID).Order("sort_order, id").Find(&testimonials).Error
	return testimonials, wrap("list testimonials", err)
}

func (t *tx) CreateTestimonial(testimonial *models.Testimonial) error {
	return wrap("create testimonial", t.db.Omit("Owner").Create(testimonial).Error)
}

func (t *tx) DeleteTestimonials(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete testimonials", &models.Testimonial{}, scope)
}

// Qualifications

func (t *tx) ListQualifications(ownerID uint) ([]models.Qualification, error) {
	var qualifications []models.Qualification
	err := t.db.Where("user_id = ?", ownerID).Order("sort_order, id").Find(&qualifications).Error
	return qualifications, wrap("list qualifications", err)
}

func (t *tx) CreateQualification(qualification *models.Qualification) error {
	return wrap("create qualification", t.db.Omit("Owner").Create(qualification).Error)
}

func (t *tx) DeleteQualifications(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete qualifications", &models.Qualification{}, scope)
}

// Contact messages

func (t *tx) ListContactMessages(ownerID uint) ([]models.ContactMessage, error) {
	var messages []models.ContactMessage
	err := t.db.Where("user_id = ?", ownerID).Order("received_at, id").Find(&messages).Error
	return messages, wrap("list contact messages", err)
}

func (t *tx) CreateContactMessage(message *models.ContactMessage) error {
	return wrap("create contact message", t.db.Omit("Owner").Create(message).Error)
}

func (t *tx) DeleteContactMessages(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete contact messages", &models.ContactMessage{}, scope)
}

// Settings

func (t *tx) ListSettings() ([]models.Setting, error) {
	var settings []models.Setting
	err := t.db.Order("name").Find(&settings).Error
	return settings, wrap("list settings", err)
}

func (t *tx) FindSetting(name string) (*models.Setting, error) {
	var setting models.Setting
	if err := t.db.Where("name = ?", name).First(&setting).Error; err != nil {
		return nil, wrap("find setting", err)
	}
	return &setting, nil
}

func (t *tx) CreateSetting(setting *models.Setting) error {
	return wrap("create setting", t.db.Create(setting).Error)
}

func (t *tx) DeleteSettings() (int64, error) {
	return t.deleteAll("delete settings", &models.Setting{})
}

func (t *tx) ListUserSettings(ownerID uint) ([]models.UserSetting, error) {
	var settings []models.UserSetting
	err := t.db.Where("user_id = ?", ownerID).Order("setting_name").Find(&settings).Error
	return settings, wrap("list user settings", err)
}

func (t *tx) CreateUserSetting(setting *models.UserSetting) error {
	return wrap("create user setting", t.db.Omit("Setting", "Owner").Create(setting).Error)
}

func (t *tx) DeleteUserSettings(scope store.Scope) (int64, error) {
	return t.deleteScoped("delete user settings", &models.UserSetting{}, scope)
}

type countTarget struct {
	model any
	dst   *int64
}

func (t *tx) Counts(scope store.Scope) (store.Counts, error) {
	var c store.Counts
	targets := []countTarget{
		{&models.Profile{}, &c.Profiles},
		{&models.UserSkill{}, &c.UserSkills},
		{&models.Project{}, &c.Projects},
		{&models.Experience{}, &c.Experiences},
		{&models.Testimonial{}, &c.Testimonials},
		{&models.Qualification{}, &c.Qualifications},
		{&models.ContactMessage{}, &c.ContactMessages},
		{&models.UserSetting{}, &c.UserSettings},
	}
	if scope.IsSystem() {
		targets = append(targets,
			countTarget{&models.User{}, &c.Users},
			countTarget{&models.Skill{}, &c.Skills},
			countTarget{&models.Setting{}, &c.Settings},
		)
	}
	for _, target := range targets {
		q, err := t.scoped(scope)
		if err != nil {
			return store.Counts{}, err
		}
		if err := q.Model(target.model).Count(target.dst).Error; err != nil {
			return store.Counts{}, wrap("count", err)
		}
	}
	return c, nil
}

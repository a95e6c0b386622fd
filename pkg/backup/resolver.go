package backup

import (
	"strings"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

// SkillRef is a business-key reference to a catalog skill. Category and
// Icon are only used when the reference creates the skill.
type SkillRef struct {
	Name     string
	Category string
	Icon     string
}

// Resolver re-links references carried by name to environment-local rows
// inside one restore transaction. Catalogs only grow: an existing skill
// keeps its category and icon ("first writer wins") and an unknown setting
// name is added with an empty default.
//
// A Resolver caches what it has seen and must not outlive its transaction.
type Resolver struct {
	tx         store.Tx
	skills     map[string]*models.Skill
	userSkills map[userSkillKey]bool
	settings   map[string]bool
	created    store.Counts
}

type userSkillKey struct {
	owner, skill uint
}

func NewResolver(tx store.Tx) *Resolver {
	return &Resolver{
		tx:         tx,
		skills:     make(map[string]*models.Skill),
		userSkills: make(map[userSkillKey]bool),
		settings:   make(map[string]bool),
	}
}

// Created reports the catalog skills, user skills and settings the
// resolver has created so far.
func (r *Resolver) Created() store.Counts {
	return r.created
}

// ResolveSkill returns the catalog skill named by ref and makes sure the
// owner has a relationship to it, creating one with default proficiency
// when missing.
func (r *Resolver) ResolveSkill(ownerID uint, ref SkillRef) (*models.Skill, error) {
	skill, err := r.catalogSkill(ref)
	if err != nil {
		return nil, err
	}
	key := userSkillKey{owner: ownerID, skill: skill.ID}
	if r.userSkills[key] {
		return skill, nil
	}
	_, err = r.tx.FindUserSkill(ownerID, skill.ID)
	switch {
	case err == nil:
	case isNotFound(err):
		if err := r.tx.CreateUserSkill(&models.UserSkill{
			UserID:  ownerID,
			SkillID: skill.ID,
			Level:   models.SkillIntermediate,
			Visible: true,
		}); err != nil {
			return nil, err
		}
		r.created.UserSkills++
	default:
		return nil, err
	}
	r.userSkills[key] = true
	return skill, nil
}

// AttachSkill creates the owner's relationship described by rec. rec has
// passed payload validation, so its level is always set. Listing the same
// skill twice for one owner is an integrity error.
func (r *Resolver) AttachSkill(ownerID uint, rec SkillRecord) error {
	skill, err := r.catalogSkill(SkillRef{Name: rec.Name, Category: rec.Category, Icon: rec.Icon})
	if err != nil {
		return err
	}
	key := userSkillKey{owner: ownerID, skill: skill.ID}
	if r.userSkills[key] {
		return integrityErrorf("attach skill", "skill %q listed twice", rec.Name)
	}
	if err := r.tx.CreateUserSkill(&models.UserSkill{
		UserID:            ownerID,
		SkillID:           skill.ID,
		Level:             rec.Level,
		YearsOfExperience: rec.YearsOfExperience,
		Visible:           rec.Visible,
		SortOrder:         rec.SortOrder,
	}); err != nil {
		return err
	}
	r.created.UserSkills++
	r.userSkills[key] = true
	return nil
}

// ResolveSkills resolves a list of names in order.
func (r *Resolver) ResolveSkills(ownerID uint, names []string) ([]*models.Skill, error) {
	skills := make([]*models.Skill, 0, len(names))
	seen := make(map[uint]bool, len(names))
	for _, name := range names {
		skill, err := r.ResolveSkill(ownerID, SkillRef{Name: name})
		if err != nil {
			return nil, err
		}
		if !seen[skill.ID] {
			seen[skill.ID] = true
			skills = append(skills, skill)
		}
	}
	return skills, nil
}

func (r *Resolver) catalogSkill(ref SkillRef) (*models.Skill, error) {
	key := models.SkillKey(ref.Name)
	if key == "" {
		return nil, integrityErrorf("resolve skill", "empty skill reference")
	}
	if skill, ok := r.skills[key]; ok {
		return skill, nil
	}
	skill, err := r.tx.FindSkill(key)
	switch {
	case err == nil:
	case isNotFound(err):
		skill = &models.Skill{
			Name:     strings.TrimSpace(ref.Name),
			Category: ref.Category,
			Icon:     ref.Icon,
		}
		if err := r.tx.CreateSkill(skill); err != nil {
			return nil, err
		}
		r.created.Skills++
	default:
		return nil, err
	}
	r.skills[key] = skill
	return skill, nil
}

// ResolveSetting makes sure the named setting exists in the catalog.
func (r *Resolver) ResolveSetting(name string) error {
	if name == "" {
		return integrityErrorf("resolve setting", "empty setting reference")
	}
	if r.settings[name] {
		return nil
	}
	_, err := r.tx.FindSetting(name)
	switch {
	case err == nil:
	case isNotFound(err):
		if err := r.tx.CreateSetting(&models.Setting{Name: name}); err != nil {
			return err
		}
		r.created.Settings++
	default:
		return err
	}
	r.settings[name] = true
	return nil
}

// AddSetting creates a catalog entry from a system snapshot.
func (r *Resolver) AddSetting(rec SettingRecord) error {
	if err := r.tx.CreateSetting(&models.Setting{
		Name:        rec.Name,
		Value:       rec.Value,
		Description: rec.Description,
	}); err != nil {
		return err
	}
	r.created.Settings++
	r.settings[rec.Name] = true
	return nil
}

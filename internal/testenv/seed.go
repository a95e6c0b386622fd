package testenv

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

// Portfolio describes the content SeedPortfolio creates for one owner.
type Portfolio struct {
	Headline        string
	Skills          []string
	Projects        []Item
	Experiences     []Item
	Testimonials    int
	Qualifications  int
	ContactMessages int
	Settings        map[string]string
}

// Item is a project or experience and the names of the skills it uses.
type Item struct {
	Title  string
	Skills []string
}

// CreateUser creates an active owner with the given slug.
func CreateUser(t testing.TB, s store.Store, slug string) *models.User {
	t.Helper()
	user := &models.User{
		Slug:         slug,
		Email:        slug + "@example.com",
		PasswordHash: "not-a-real-hash",
		Roles:        models.StringList{models.RoleOwner},
		Active:       true,
	}
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(user)
	}))
	return user
}

// SeedPortfolio fills the owner's portfolio. Skills referenced by projects
// or experiences but missing from p.Skills are added to the catalog too.
func SeedPortfolio(t testing.TB, s store.Store, owner *models.User, p Portfolio) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return seed(tx, owner, p)
	}))
}

func seed(tx store.Tx, owner *models.User, p Portfolio) error {
	start := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

	if err := tx.CreateProfile(&models.Profile{
		UserID:          owner.ID,
		FullName:        owner.Slug,
		Headline:        p.Headline,
		Summary:         "Builds things.",
		Links:           models.StringMap{"github": "https://github.com/" + owner.Slug},
		Public:          true,
		ShowContactForm: true,
	}); err != nil {
		return err
	}

	levels := []models.SkillLevel{models.SkillExpert, models.SkillAdvanced, models.SkillIntermediate}
	for i, name := range p.Skills {
		skill, err := findOrCreateSkill(tx, name)
		if err != nil {
			return err
		}
		if err := tx.CreateUserSkill(&models.UserSkill{
			UserID:            owner.ID,
			SkillID:           skill.ID,
			Level:             levels[i%len(levels)],
			YearsOfExperience: i + 2,
			Visible:           true,
			SortOrder:         i,
		}); err != nil {
			return err
		}
	}

	for i, item := range p.Projects {
		skills, err := skillSet(tx, item.Skills)
		if err != nil {
			return err
		}
		begin := start.AddDate(0, i, 0)
		if err := tx.CreateProject(&models.Project{
			UserID:      owner.ID,
			Title:       item.Title,
			Description: "About " + item.Title,
			URL:         fmt.Sprintf("https://%s.example.com/%d", owner.Slug, i),
			Featured:    i == 0,
			SortOrder:   i,
			StartDate:   &begin,
			Skills:      skills,
		}); err != nil {
			return err
		}
	}

	for i, item := range p.Experiences {
		skills, err := skillSet(tx, item.Skills)
		if err != nil {
			return err
		}
		begin := start.AddDate(-i-1, 0, 0)
		if err := tx.CreateExperience(&models.Experience{
			UserID:    owner.ID,
			JobTitle:  item.Title,
			Company:   "Acme",
			StartDate: &begin,
			Current:   i == 0,
			SortOrder: i,
			Skills:    skills,
		}); err != nil {
			return err
		}
	}

	for i := 0; i < p.Testimonials; i++ {
		if err := tx.CreateTestimonial(&models.Testimonial{
			UserID:     owner.ID,
			AuthorName: fmt.Sprintf("Colleague %d", i),
			Content:    "Great to work with.",
			Rating:     5,
			Approved:   true,
			SortOrder:  i,
		}); err != nil {
			return err
		}
	}

	for i := 0; i < p.Qualifications; i++ {
		issued := start.AddDate(-5, 0, 0)
		if err := tx.CreateQualification(&models.Qualification{
			UserID:      owner.ID,
			Kind:        models.QualificationCertification,
			Title:       fmt.Sprintf("Certificate %d", i),
			Institution: "Example Institute",
			IssuedAt:    &issued,
			SortOrder:   i,
		}); err != nil {
			return err
		}
	}

	for i := 0; i < p.ContactMessages; i++ {
		if err := tx.CreateContactMessage(&models.ContactMessage{
			UserID:     owner.ID,
			Name:       fmt.Sprintf("Visitor %d", i),
			Email:      fmt.Sprintf("visitor%d@example.org", i),
			Subject:    "Hello",
			Message:    "Are you available?",
			ReceivedAt: start.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			return err
		}
	}

	for name, value := range p.Settings {
		if _, err := tx.FindSetting(name); errors.Is(err, store.ErrNotFound) {
			if err := tx.CreateSetting(&models.Setting{Name: name}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := tx.CreateUserSetting(&models.UserSetting{
			UserID:      owner.ID,
			SettingName: name,
			Value:       value,
		}); err != nil {
			return err
		}
	}
	return nil
}

func findOrCreateSkill(tx store.Tx, name string) (*models.Skill, error) {
	skill, err := tx.FindSkill(name)
	if err == nil {
		return skill, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	skill = &models.Skill{Name: name, Category: "Languages"}
	if err := tx.CreateSkill(skill); err != nil {
		return nil, err
	}
	return skill, nil
}

func skillSet(tx store.Tx, names []string) ([]*models.Skill, error) {
	skills := make([]*models.Skill, 0, len(names))
	for _, name := range names {
		skill, err := findOrCreateSkill(tx, name)
		if err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// Counts returns the owner's row counts.
func Counts(t testing.TB, s store.Store, owner *models.User) store.Counts {
	t.Helper()
	var c store.Counts
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		var err error
		c, err = tx.Counts(store.OwnerScope(owner.ID))
		return err
	}))
	return c
}

// SystemCounts returns the row counts of the whole database.
func SystemCounts(t testing.TB, s store.Store) store.Counts {
	t.Helper()
	var c store.Counts
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		var err error
		c, err = tx.Counts(store.SystemScope())
		return err
	}))
	return c
}

package backup

import (
	"context"
	"maps"
	"sort"
	"time"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

// Builder reads portfolio graphs into envelopes. Every build runs inside
// one read transaction and materializes every collection before the
// transaction ends; nothing in the result refers back to the database.
type Builder struct {
	store store.Store
	now   func() time.Time
}

func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s, now: time.Now}
}

// BuildUser snapshots one owner. An unknown owner is ErrNotFound.
func (b *Builder) BuildUser(ctx context.Context, ownerID models.UserID) (*UserEnvelope, error) {
	env := &UserEnvelope{Meta: newMeta(TypeUser, b.now())}
	err := b.store.View(ctx, func(tx store.Tx) error {
		owner, err := tx.GetUser(ownerID)
		if err != nil {
			return err
		}
		portfolio, err := buildPortfolio(tx, owner)
		if err != nil {
			return err
		}
		rec := ownerRecord(owner)
		env.Owner = &rec
		env.Portfolio = portfolio
		return nil
	})
	if err != nil {
		return nil, classify("build user snapshot", err)
	}
	return env, nil
}

// BuildSystem snapshots every owner, in creation order, and the settings
// catalog. Owners without content yield empty collections.
func (b *Builder) BuildSystem(ctx context.Context) (*SystemEnvelope, error) {
	env := &SystemEnvelope{
		Meta:     newMeta(TypeSystem, b.now()),
		Settings: []SettingRecord{},
		Payload:  []SystemEntry{},
	}
	err := b.store.View(ctx, func(tx store.Tx) error {
		settings, err := tx.ListSettings()
		if err != nil {
			return err
		}
		for _, s := range settings {
			env.Settings = append(env.Settings, SettingRecord{
				Name:        s.Name,
				Value:       s.Value,
				Description: s.Description,
			})
		}

		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		for i := range users {
			portfolio, err := buildPortfolio(tx, &users[i])
			if err != nil {
				return err
			}
			env.Payload = append(env.Payload, SystemEntry{
				User:      ownerRecord(&users[i]),
				Portfolio: portfolio,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify("build system snapshot", err)
	}
	return env, nil
}

func ownerRecord(u *models.User) OwnerRecord {
	roles := append([]string{}, u.Roles...)
	return OwnerRecord{
		ID:     u.PublicID,
		Slug:   u.Slug,
		Email:  u.Email,
		Roles:  roles,
		Active: u.Active,
	}
}

// buildPortfolio is the explicit deep fetch of one owner's graph.
func buildPortfolio(tx store.Tx, owner *models.User) (Portfolio, error) {
	p := Portfolio{
		Skills:          []SkillRecord{},
		Projects:        []ProjectRecord{},
		Experiences:     []ExperienceRecord{},
		Testimonials:    []TestimonialRecord{},
		Qualifications:  []QualificationRecord{},
		ContactMessages: []ContactMessageRecord{},
		Settings:        []UserSettingRecord{},
	}

	profile, err := tx.GetProfile(owner.ID)
	switch {
	case err == nil:
		p.Profile = &ProfileRecord{
			FullName:        profile.FullName,
			Headline:        profile.Headline,
			Summary:         profile.Summary,
			Location:        profile.Location,
			AvatarURL:       profile.AvatarURL,
			Website:         profile.Website,
			Links:           maps.Clone(map[string]string(profile.Links)),
			Public:          profile.Public,
			ShowEmail:       profile.ShowEmail,
			ShowContactForm: profile.ShowContactForm,
		}
	case !isNotFound(err):
		return Portfolio{}, err
	}

	userSkills, err := tx.ListUserSkills(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, us := range userSkills {
		if us.Skill == nil {
			return Portfolio{}, integrityErrorf("build snapshot", "user skill %d has no catalog entry", us.ID)
		}
		p.Skills = append(p.Skills, SkillRecord{
			Name:              us.Skill.Name,
			Category:          us.Skill.Category,
			Icon:              us.Skill.Icon,
			Level:             us.Level,
			YearsOfExperience: us.YearsOfExperience,
			Visible:           us.Visible,
			SortOrder:         us.SortOrder,
		})
	}

	projects, err := tx.ListProjects(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, pr := range projects {
		p.Projects = append(p.Projects, ProjectRecord{
			ID:            pr.PublicID,
			Title:         pr.Title,
			Description:   pr.Description,
			URL:           pr.URL,
			RepositoryURL: pr.RepositoryURL,
			ImageURL:      pr.ImageURL,
			Featured:      pr.Featured,
			SortOrder:     pr.SortOrder,
			StartDate:     utc(pr.StartDate),
			EndDate:       utc(pr.EndDate),
			Skills:        skillNames(pr.Skills),
		})
	}

	experiences, err := tx.ListExperiences(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, e := range experiences {
		p.Experiences = append(p.Experiences, ExperienceRecord{
			ID:          e.PublicID,
			JobTitle:    e.JobTitle,
			Company:     e.Company,
			Location:    e.Location,
			Description: e.Description,
			StartDate:   utc(e.StartDate),
			EndDate:     utc(e.EndDate),
			Current:     e.Current,
			SortOrder:   e.SortOrder,
			Skills:      skillNames(e.Skills),
		})
	}

	testimonials, err := tx.ListTestimonials(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, t := range testimonials {
		p.Testimonials = append(p.Testimonials, TestimonialRecord{
			ID:            t.PublicID,
			AuthorName:    t.AuthorName,
			AuthorRole:    t.AuthorRole,
			AuthorCompany: t.AuthorCompany,
			Content:       t.Content,
			Rating:        t.Rating,
			Approved:      t.Approved,
			SortOrder:     t.SortOrder,
		})
	}

	qualifications, err := tx.ListQualifications(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, q := range qualifications {
		p.Qualifications = append(p.Qualifications, QualificationRecord{
			ID:            q.PublicID,
			Kind:          q.Kind,
			Title:         q.Title,
			Institution:   q.Institution,
			Description:   q.Description,
			CredentialURL: q.CredentialURL,
			IssuedAt:      utc(q.IssuedAt),
			ExpiresAt:     utc(q.ExpiresAt),
			SortOrder:     q.SortOrder,
		})
	}

	messages, err := tx.ListContactMessages(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, m := range messages {
		p.ContactMessages = append(p.ContactMessages, ContactMessageRecord{
			ID:         m.PublicID,
			Name:       m.Name,
			Email:      m.Email,
			Subject:    m.Subject,
			Message:    m.Message,
			Read:       m.Read,
			ReceivedAt: m.ReceivedAt.UTC(),
		})
	}

	settings, err := tx.ListUserSettings(owner.ID)
	if err != nil {
		return Portfolio{}, err
	}
	for _, s := range settings {
		p.Settings = append(p.Settings, UserSettingRecord{Name: s.SettingName, Value: s.Value})
	}

	return p, nil
}

func skillNames(skills []*models.Skill) []string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

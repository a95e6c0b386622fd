package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

// Phase is the state of a restore. A restore moves from validated through
// wiping and rebuilding to committed, or ends rolled back; the states in
// between are never visible outside the transaction.
type Phase string

const (
	PhaseValidated  Phase = "validated"
	PhaseWiping     Phase = "wiping"
	PhaseRebuilding Phase = "rebuilding"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolled_back"
)

// RestoreStats tracks restoration statistics. Deleted and Created are
// only reported for committed restores.
type RestoreStats struct {
	Scope     string       `json:"scope"`
	Phase     Phase        `json:"phase"`
	Owners    int          `json:"owners"`
	Deleted   store.Counts `json:"deleted"`
	Created   store.Counts `json:"created"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
}

func (s *RestoreStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Executor performs destructive wipe-then-rebuild restores. Each restore
// is one transaction; any error after the wipe began rolls back the whole
// scope. Inputs are expected to be validated already, see [Service].
type Executor struct {
	store      store.Store
	locks      *ScopeLocks
	log        zerolog.Logger
	credential CredentialFunc
	metrics    *Metrics
	timeout    time.Duration
	now        func() time.Time
}

func NewExecutor(s store.Store, log zerolog.Logger, opts ...Option) *Executor {
	o := newOptions(opts)
	return &Executor{
		store:      s,
		locks:      o.locks,
		log:        log.With().Str("component", "restore").Logger(),
		credential: o.credential,
		metrics:    o.metrics,
		timeout:    o.timeout,
		now:        o.now,
	}
}

// RestoreUser replaces the portfolio of the target owner with p. The owner
// row itself and the global catalogs are kept. Content public IDs are kept
// when source is the target itself; restoring another owner's snapshot
// mints fresh ones.
func (e *Executor) RestoreUser(ctx context.Context, target models.UserID, source *OwnerRecord, p *Portfolio) (*RestoreStats, error) {
	stats := e.newStats("user:" + target.String())
	log := e.log.With().Str("scope", stats.Scope).Logger()
	preserveIDs := source != nil && source.ID == target

	unlock := e.locks.LockOwner(target.String())
	defer unlock()
	defer e.metrics.restoreStarted()()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.store.Update(ctx, func(tx store.Tx) error {
		owner, err := tx.GetUser(target)
		if err != nil {
			return err
		}
		scope := store.OwnerScope(owner.ID)
		if err := tx.LockScope(scope); err != nil {
			return err
		}

		if err := e.enter(ctx, stats, PhaseWiping, log); err != nil {
			return err
		}
		deleted, err := wipeContent(tx, scope)
		if err != nil {
			return err
		}
		stats.Deleted = deleted

		if err := e.enter(ctx, stats, PhaseRebuilding, log); err != nil {
			return err
		}
		r := NewResolver(tx)
		created, err := rebuild(tx, r, owner, p, preserveIDs)
		if err != nil {
			return err
		}
		stats.Created = created.Add(r.Created())
		stats.Owners = 1
		return nil
	})
	return e.finish(stats, "restore user", err, log)
}

// RestoreSystem replaces every owner, their content and the global
// catalogs with env. Owners are recreated with their public ID, slug,
// email, roles and active flag, and a placeholder credential.
func (e *Executor) RestoreSystem(ctx context.Context, env *SystemEnvelope) (*RestoreStats, error) {
	stats := e.newStats("system")
	log := e.log.With().Str("scope", stats.Scope).Logger()

	unlock := e.locks.LockSystem()
	defer unlock()
	defer e.metrics.restoreStarted()()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.store.Update(ctx, func(tx store.Tx) error {
		scope := store.SystemScope()
		if err := tx.LockScope(scope); err != nil {
			return err
		}

		if err := e.enter(ctx, stats, PhaseWiping, log); err != nil {
			return err
		}
		deleted, err := wipeContent(tx, scope)
		if err != nil {
			return err
		}
		if deleted.Users, err = tx.DeleteUsers(); err != nil {
			return err
		}
		if deleted.Skills, err = tx.DeleteSkills(); err != nil {
			return err
		}
		if deleted.Settings, err = tx.DeleteSettings(); err != nil {
			return err
		}
		stats.Deleted = deleted

		if err := e.enter(ctx, stats, PhaseRebuilding, log); err != nil {
			return err
		}
		r := NewResolver(tx)
		for _, rec := range env.Settings {
			if err := r.AddSetting(rec); err != nil {
				return err
			}
		}

		var created store.Counts
		for i := range env.Payload {
			entry := &env.Payload[i]
			owner, err := e.recreateOwner(tx, entry.User)
			if err != nil {
				return err
			}
			created.Users++

			c, err := rebuild(tx, r, owner, &entry.Portfolio, true)
			if err != nil {
				return err
			}
			created = created.Add(c)
			stats.Owners++
			log.Debug().Str("owner", owner.Slug).Msg("owner rebuilt")
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		stats.Created = created.Add(r.Created())
		return nil
	})
	return e.finish(stats, "restore system", err, log)
}

func (e *Executor) newStats(scope string) *RestoreStats {
	return &RestoreStats{
		Scope:     scope,
		Phase:     PhaseValidated,
		StartTime: e.now(),
	}
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// enter moves stats to the next phase. It reports an expired context so
// the caller can abort before doing more work.
func (e *Executor) enter(ctx context.Context, stats *RestoreStats, phase Phase, log zerolog.Logger) error {
	stats.Phase = phase
	ev := log.Info().Str("phase", string(phase))
	if phase == PhaseRebuilding {
		ev = ev.Int64("deleted", stats.Deleted.Total())
	}
	ev.Msg("restore phase")
	return ctx.Err()
}

func (e *Executor) finish(stats *RestoreStats, op string, err error, log zerolog.Logger) (*RestoreStats, error) {
	stats.EndTime = e.now()
	if err != nil {
		if stats.Phase != PhaseValidated {
			stats.Phase = PhaseRolledBack
		}
		stats.Deleted = store.Counts{}
		stats.Created = store.Counts{}
		stats.Owners = 0
		err = classify(op, err)
		log.Error().Err(err).Str("phase", string(stats.Phase)).Msg("restore failed")
		return stats, err
	}
	stats.Phase = PhaseCommitted
	e.metrics.restored(scopeLabel(stats.Scope), stats.Created)
	log.Info().
		Str("phase", string(stats.Phase)).
		Int("owners", stats.Owners).
		Int64("deleted", stats.Deleted.Total()).
		Int64("created", stats.Created.Total()).
		Dur("duration", stats.Duration()).
		Msg("restore committed")
	return stats, nil
}

func (e *Executor) recreateOwner(tx store.Tx, rec OwnerRecord) (*models.User, error) {
	hash, err := e.credential()
	if err != nil {
		return nil, err
	}
	owner := &models.User{
		PublicID:     rec.ID,
		Slug:         rec.Slug,
		Email:        rec.Email,
		PasswordHash: hash,
		Roles:        models.StringList(append([]string{}, rec.Roles...)),
		Active:       rec.Active,
	}
	if err := tx.CreateUser(owner); err != nil {
		return nil, err
	}
	return owner, nil
}

// wipeContent deletes the scope's content leaf to root, so foreign keys
// hold whatever the database's cascade configuration is. Owner rows and
// catalogs are left alone.
func wipeContent(tx store.Tx, scope store.Scope) (store.Counts, error) {
	var c store.Counts
	steps := []struct {
		del func(store.Scope) (int64, error)
		dst *int64
	}{
		{tx.DeleteContactMessages, &c.ContactMessages},
		{tx.DeleteUserSkills, &c.UserSkills},
		{tx.DeleteQualifications, &c.Qualifications},
		{tx.DeleteTestimonials, &c.Testimonials},
		{tx.DeleteExperiences, &c.Experiences},
		{tx.DeleteProjects, &c.Projects},
		{tx.DeleteUserSettings, &c.UserSettings},
		{tx.DeleteProfiles, &c.Profiles},
	}
	for _, step := range steps {
		n, err := step.del(scope)
		if err != nil {
			return store.Counts{}, err
		}
		*step.dst = n
	}
	return c, nil
}

// rebuild recreates one owner's portfolio root to leaf. User skills and
// catalog rows are counted by the resolver, not in the returned counts.
//
// Every owner ends up with exactly one profile. A payload without one
// ("profile": null) gets an empty profile, so exporting that owner again
// yields an empty profile object rather than null.
func rebuild(tx store.Tx, r *Resolver, owner *models.User, p *Portfolio, preserveIDs bool) (store.Counts, error) {
	var c store.Counts

	if _, err := tx.GetProfile(owner.ID); err == nil {
		return c, integrityErrorf("rebuild profile", "owner %q still has a profile after the wipe", owner.Slug)
	} else if !isNotFound(err) {
		return c, err
	}
	profile := &models.Profile{UserID: owner.ID}
	if rec := p.Profile; rec != nil {
		profile.FullName = rec.FullName
		profile.Headline = rec.Headline
		profile.Summary = rec.Summary
		profile.Location = rec.Location
		profile.AvatarURL = rec.AvatarURL
		profile.Website = rec.Website
		profile.Links = models.StringMap(rec.Links)
		profile.Public = rec.Public
		profile.ShowEmail = rec.ShowEmail
		profile.ShowContactForm = rec.ShowContactForm
	}
	if err := tx.CreateProfile(profile); err != nil {
		return c, err
	}
	c.Profiles++

	for _, rec := range p.Skills {
		if err := r.AttachSkill(owner.ID, rec); err != nil {
			return c, err
		}
	}

	for _, rec := range p.Projects {
		skills, err := r.ResolveSkills(owner.ID, rec.Skills)
		if err != nil {
			return c, err
		}
		project := &models.Project{
			UserID:        owner.ID,
			Title:         rec.Title,
			Description:   rec.Description,
			URL:           rec.URL,
			RepositoryURL: rec.RepositoryURL,
			ImageURL:      rec.ImageURL,
			Featured:      rec.Featured,
			SortOrder:     rec.SortOrder,
			StartDate:     rec.StartDate,
			EndDate:       rec.EndDate,
			Skills:        skills,
		}
		if preserveIDs {
			project.PublicID = rec.ID
		}
		if err := tx.CreateProject(project); err != nil {
			return c, err
		}
		c.Projects++
	}

	for _, rec := range p.Experiences {
		skills, err := r.ResolveSkills(owner.ID, rec.Skills)
		if err != nil {
			return c, err
		}
		experience := &models.Experience{
			UserID:      owner.ID,
			JobTitle:    rec.JobTitle,
			Company:     rec.Company,
			Location:    rec.Location,
			Description: rec.Description,
			StartDate:   rec.StartDate,
			EndDate:     rec.EndDate,
			Current:     rec.Current,
			SortOrder:   rec.SortOrder,
			Skills:      skills,
		}
		if preserveIDs {
			experience.PublicID = rec.ID
		}
		if err := tx.CreateExperience(experience); err != nil {
			return c, err
		}
		c.Experiences++
	}

	for _, rec := range p.Testimonials {
		testimonial := &models.Testimonial{
			UserID:        owner.ID,
			AuthorName:    rec.AuthorName,
			AuthorRole:    rec.AuthorRole,
			AuthorCompany: rec.AuthorCompany,
			Content:       rec.Content,
			Rating:        rec.Rating,
			Approved:      rec.Approved,
			SortOrder:     rec.SortOrder,
		}
		if preserveIDs {
			testimonial.PublicID = rec.ID
		}
		if err := tx.CreateTestimonial(testimonial); err != nil {
			return c, err
		}
		c.Testimonials++
	}

	for _, rec := range p.Qualifications {
		qualification := &models.Qualification{
			UserID:        owner.ID,
			Kind:          rec.Kind,
			Title:         rec.Title,
			Institution:   rec.Institution,
			Description:   rec.Description,
			CredentialURL: rec.CredentialURL,
			IssuedAt:      rec.IssuedAt,
			ExpiresAt:     rec.ExpiresAt,
			SortOrder:     rec.SortOrder,
		}
		if preserveIDs {
			qualification.PublicID = rec.ID
		}
		if err := tx.CreateQualification(qualification); err != nil {
			return c, err
		}
		c.Qualifications++
	}

	for _, rec := range p.ContactMessages {
		message := &models.ContactMessage{
			UserID:     owner.ID,
			Name:       rec.Name,
			Email:      rec.Email,
			Subject:    rec.Subject,
			Message:    rec.Message,
			Read:       rec.Read,
			ReceivedAt: rec.ReceivedAt,
		}
		if preserveIDs {
			message.PublicID = rec.ID
		}
		if err := tx.CreateContactMessage(message); err != nil {
			return c, err
		}
		c.ContactMessages++
	}

	for _, rec := range p.Settings {
		if err := r.ResolveSetting(rec.Name); err != nil {
			return c, err
		}
		if err := tx.CreateUserSetting(&models.UserSetting{
			UserID:      owner.ID,
			SettingName: rec.Name,
			Value:       rec.Value,
		}); err != nil {
			return c, err
		}
		c.UserSettings++
	}

	return c, nil
}

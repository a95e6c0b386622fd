package backup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/internal/testenv"
	"github.com/foliohq/folio/pkg/backup"
	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

const testCredential = "$argon2id$v=19$m=65536,t=3,p=4$test$test"

func fakeCredential() (string, error) {
	return testCredential, nil
}

func newService(t *testing.T, s store.Store, opts ...backup.Option) *backup.Service {
	t.Helper()
	opts = append([]backup.Option{backup.WithCredentialFunc(fakeCredential)}, opts...)
	return backup.NewService(s, testenv.Logger(t), opts...)
}

var alicePortfolio = testenv.Portfolio{
	Headline: "Backend engineer",
	Skills:   []string{"Go", "PostgreSQL"},
	Projects: []testenv.Item{
		{Title: "folio", Skills: []string{"Go", "PostgreSQL"}},
		{Title: "ledger", Skills: []string{"Go"}},
		{Title: "notes"},
	},
	Experiences:     []testenv.Item{{Title: "Staff Engineer", Skills: []string{"PostgreSQL"}}},
	Testimonials:    1,
	Qualifications:  1,
	ContactMessages: 2,
	Settings:        map[string]string{"theme": "dark", "locale": "en"},
}

var bobPortfolio = testenv.Portfolio{
	Headline:    "Designer",
	Skills:      []string{"Figma", "go"},
	Projects:    []testenv.Item{{Title: "palette", Skills: []string{"Figma"}}},
	Experiences: []testenv.Item{{Title: "Designer", Skills: []string{"Figma"}}},
	Settings:    map[string]string{"theme": "light"},
}

func exportUser(t *testing.T, svc *backup.Service, owner *models.User, f backup.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, svc.ExportUser(context.Background(), owner.PublicID, &buf, f))
	return buf.Bytes()
}

func exportSystem(t *testing.T, svc *backup.Service) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, svc.ExportSystem(context.Background(), &buf, backup.FormatJSON))
	return buf.Bytes()
}

func decodeUser(t *testing.T, data []byte) backup.UserEnvelope {
	t.Helper()
	var env backup.UserEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func decodeSystem(t *testing.T, data []byte) backup.SystemEnvelope {
	t.Helper()
	var env backup.SystemEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func encodeJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestExportUser(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	bob := testenv.CreateUser(t, s, "bob")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	testenv.SeedPortfolio(t, s, bob, bobPortfolio)

	exportedAt := time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)
	svc := newService(t, s, backup.WithClock(func() time.Time { return exportedAt }))
	data := exportUser(t, svc, alice, backup.FormatJSON)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"meta", "owner", "profile", "skills", "projects", "experiences", "testimonials", "qualifications", "contactMessages", "settings"} {
		assert.Contains(t, raw, key)
	}

	env := decodeUser(t, data)
	assert.Equal(t, backup.TypeUser, env.Meta.Type)
	assert.Equal(t, backup.CurrentVersion, env.Meta.Version)
	assert.Equal(t, backup.MinSupportedVersion, env.Meta.Compatibility.MinSupportedVersion)
	assert.True(t, exportedAt.Equal(env.Meta.ExportedAt))

	require.NotNil(t, env.Owner)
	assert.Equal(t, alice.PublicID, env.Owner.ID)
	assert.Equal(t, "alice", env.Owner.Slug)

	require.NotNil(t, env.Profile)
	assert.Equal(t, "Backend engineer", env.Profile.Headline)
	assert.Equal(t, "https://github.com/alice", env.Profile.Links["github"])

	require.Len(t, env.Skills, 2)
	assert.Equal(t, "Go", env.Skills[0].Name)
	assert.Equal(t, models.SkillExpert, env.Skills[0].Level)

	require.Len(t, env.Projects, 3)
	assert.Equal(t, "folio", env.Projects[0].Title)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, env.Projects[0].Skills)
	assert.Empty(t, env.Projects[2].Skills)
	assert.NotNil(t, env.Projects[2].Skills, "collections are never null")

	assert.Len(t, env.Experiences, 1)
	assert.Len(t, env.Testimonials, 1)
	assert.Len(t, env.Qualifications, 1)
	assert.Len(t, env.ContactMessages, 2)
	require.Len(t, env.Settings, 2)
	assert.Equal(t, "locale", env.Settings[0].Name)

	for _, p := range env.Projects {
		assert.NotEqual(t, "palette", p.Title, "other owners' content is excluded")
	}
}

func TestExportUserNotFound(t *testing.T) {
	s := testenv.NewStore(t)
	svc := newService(t, s)

	var buf bytes.Buffer
	err := svc.ExportUser(context.Background(), models.NewUserID(), &buf, backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrNotFound)
	assert.Zero(t, buf.Len(), "nothing is written on failure")
}

func TestExportUserWithoutContent(t *testing.T) {
	s := testenv.NewStore(t)
	carol := testenv.CreateUser(t, s, "carol")
	svc := newService(t, s)

	env := decodeUser(t, exportUser(t, svc, carol, backup.FormatJSON))
	assert.Nil(t, env.Profile)
	assert.NotNil(t, env.Projects)
	assert.Empty(t, env.Projects)
	assert.Empty(t, env.Skills)
}

func TestRestoreUserWithoutProfileCreatesEmptyProfile(t *testing.T) {
	s := testenv.NewStore(t)
	carol := testenv.CreateUser(t, s, "carol")
	svc := newService(t, s)
	ctx := context.Background()

	snapshot := exportUser(t, svc, carol, backup.FormatJSON)
	require.Nil(t, decodeUser(t, snapshot).Profile)

	stats, err := svc.ImportUser(ctx, carol.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Created.Profiles)

	env := decodeUser(t, exportUser(t, svc, carol, backup.FormatJSON))
	require.NotNil(t, env.Profile)
	assert.Empty(t, env.Profile.Headline)
	assert.Empty(t, env.Profile.FullName)
}

func TestRestoreUserRoundTrip(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)
	ctx := context.Background()

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	before := testenv.Counts(t, s, alice)

	// Drift away from the snapshot.
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.DeleteProjects(store.OwnerScope(alice.ID)); err != nil {
			return err
		}
		return tx.CreateProject(&models.Project{UserID: alice.ID, Title: "scratch"})
	}))

	stats, err := svc.ImportUser(ctx, alice.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, backup.PhaseCommitted, stats.Phase)
	assert.Equal(t, 1, stats.Owners)
	assert.Equal(t, int64(1), stats.Deleted.Projects)
	assert.Equal(t, int64(3), stats.Created.Projects)
	assert.Equal(t, int64(2), stats.Created.UserSkills)
	assert.Zero(t, stats.Created.Skills, "catalog skills are reused")
	assert.False(t, stats.EndTime.Before(stats.StartTime))

	assert.Equal(t, before, testenv.Counts(t, s, alice))

	original := decodeUser(t, snapshot)
	restored := decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON))
	assert.Equal(t, original.Portfolio, restored.Portfolio)
	assert.Equal(t, original.Projects[0].ID, restored.Projects[0].ID, "restoring into the source owner keeps public IDs")
}

func TestRestoreUserIdempotent(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)
	ctx := context.Background()

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	system := testenv.SystemCounts(t, s)

	for i := 0; i < 2; i++ {
		_, err := svc.ImportUser(ctx, alice.PublicID, bytes.NewReader(snapshot), "")
		require.NoError(t, err)
		assert.Equal(t, system, testenv.SystemCounts(t, s), "restore %d", i)
	}
	assert.Equal(t, decodeUser(t, snapshot).Portfolio, decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON)).Portfolio)
}

func TestRestoreUserIntoAnotherOwner(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	bob := testenv.CreateUser(t, s, "bob")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	testenv.SeedPortfolio(t, s, bob, bobPortfolio)
	svc := newService(t, s)

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	aliceBefore := testenv.Counts(t, s, alice)
	skillsBefore := testenv.SystemCounts(t, s).Skills

	_, err := svc.ImportUser(context.Background(), bob.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, aliceBefore, testenv.Counts(t, s, alice), "the source owner is untouched")
	assert.Equal(t, aliceBefore, testenv.Counts(t, s, bob))
	assert.Equal(t, skillsBefore, testenv.SystemCounts(t, s).Skills)

	original := decodeUser(t, snapshot)
	copied := decodeUser(t, exportUser(t, svc, bob, backup.FormatJSON))
	assert.Equal(t, "bob", copied.Owner.Slug)
	require.Len(t, copied.Projects, 3)
	assert.Equal(t, original.Projects[0].Title, copied.Projects[0].Title)
	assert.NotEqual(t, original.Projects[0].ID, copied.Projects[0].ID, "copies get fresh public IDs")
}

func TestRestoreUserIsAtomic(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	before := testenv.SystemCounts(t, s)

	env := decodeUser(t, snapshot)
	env.Projects = append(env.Projects[:1], append([]backup.ProjectRecord{{
		Title:  "broken",
		Skills: []string{"Go", ""},
	}}, env.Projects[1:]...)...)

	stats, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(encodeJSON(t, env)), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrIntegrity)
	assert.Contains(t, err.Error(), "empty skill reference")
	require.NotNil(t, stats)
	assert.Equal(t, backup.PhaseRolledBack, stats.Phase)
	assert.Zero(t, stats.Created.Total())

	assert.Equal(t, before, testenv.SystemCounts(t, s))
	assert.Equal(t, decodeUser(t, snapshot).Portfolio, decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON)).Portfolio)
}

func TestRestoreUserNotFound(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	stats, err := svc.ImportUser(context.Background(), models.NewUserID(), bytes.NewReader(snapshot), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrNotFound)
	assert.Equal(t, backup.PhaseValidated, stats.Phase, "the wipe never started")
}

func TestImportRejectsWrongEnvelopeType(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)
	ctx := context.Background()

	userSnapshot := exportUser(t, svc, alice, backup.FormatJSON)
	systemSnapshot := exportSystem(t, svc)
	before := testenv.SystemCounts(t, s)

	_, err := svc.ImportUser(ctx, alice.PublicID, bytes.NewReader(systemSnapshot), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrValidation)
	assert.Contains(t, err.Error(), `"system_backup"`)

	_, err = svc.ImportSystem(ctx, bytes.NewReader(userSnapshot), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrValidation)

	assert.Equal(t, before, testenv.SystemCounts(t, s))
}

func TestImportRejectsIncompatibleVersion(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)
	before := testenv.Counts(t, s, alice)

	tests := []struct {
		name   string
		mutate func(*backup.Meta)
	}{
		{"older minimum", func(m *backup.Meta) { m.Compatibility.MinSupportedVersion = "1.0.0" }},
		{"newer minimum", func(m *backup.Meta) { m.Compatibility.MinSupportedVersion = "3.0.0" }},
		{"bad version", func(m *backup.Meta) { m.Version = "banana" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON))
			tt.mutate(&env.Meta)

			_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(encodeJSON(t, env)), backup.FormatJSON)
			require.ErrorIs(t, err, backup.ErrValidation)
			assert.Equal(t, before, testenv.Counts(t, s, alice))
		})
	}
}

func TestImportRejectsMalformedInput(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	svc := newService(t, s)

	for _, input := range []string{"", "   ", "{not json", `{"meta": 42}`} {
		_, err := svc.ImportUser(context.Background(), alice.PublicID, strings.NewReader(input), backup.FormatJSON)
		require.ErrorIs(t, err, backup.ErrValidation, "input %q", input)
	}
}

func TestImportRejectsInvalidPayload(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)
	before := testenv.Counts(t, s, alice)

	tests := []struct {
		name   string
		mutate func(*backup.UserEnvelope)
		want   string
	}{
		{
			name:   "missing title",
			mutate: func(env *backup.UserEnvelope) { env.Projects[1].Title = "" },
			want:   "projects[1].title is required",
		},
		{
			name:   "unknown level",
			mutate: func(env *backup.UserEnvelope) { env.Skills[0].Level = "GURU" },
			want:   "skills[0].level must be one of",
		},
		{
			name:   "missing level",
			mutate: func(env *backup.UserEnvelope) { env.Skills[1].Level = "" },
			want:   "skills[1].level is required",
		},
		{
			name: "duplicate skill",
			mutate: func(env *backup.UserEnvelope) {
				env.Skills = append(env.Skills, env.Skills[0])
				env.Skills[2].Name = strings.ToUpper(env.Skills[2].Name)
			},
			want: "skills[2].name contains duplicate name",
		},
		{
			name:   "rating out of range",
			mutate: func(env *backup.UserEnvelope) { env.Testimonials[0].Rating = 9 },
			want:   "testimonials[0].rating",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON))
			tt.mutate(&env)

			_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(encodeJSON(t, env)), backup.FormatJSON)
			require.ErrorIs(t, err, backup.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, before, testenv.Counts(t, s, alice))
		})
	}
}

func TestRestoreUserCBOR(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)

	before := exportUser(t, svc, alice, backup.FormatJSON)
	snapshot := exportUser(t, svc, alice, backup.FormatCBOR)
	require.Equal(t, backup.FormatCBOR, backup.DetectFormat(snapshot))
	assert.Less(t, len(snapshot), len(before))

	_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(snapshot), "")
	require.NoError(t, err)

	assert.Equal(t, decodeUser(t, before).Portfolio, decodeUser(t, exportUser(t, svc, alice, backup.FormatJSON)).Portfolio)
}

func TestRestoreSystem(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	bob := testenv.CreateUser(t, s, "bob")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	testenv.SeedPortfolio(t, s, bob, bobPortfolio)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateSetting(&models.Setting{Name: "newsletter", Value: "off", Description: "Monthly digest"})
	}))

	svc := newService(t, s)
	snapshot := exportSystem(t, svc)
	before := testenv.SystemCounts(t, s)

	env := decodeSystem(t, snapshot)
	assert.Equal(t, backup.TypeSystem, env.Meta.Type)
	require.Len(t, env.Payload, 2)
	assert.Equal(t, "alice", env.Payload[0].User.Slug)
	assert.Equal(t, "bob", env.Payload[1].User.Slug)
	assert.Len(t, env.Settings, 3)

	// A newcomer that is not part of the snapshot.
	carol := testenv.CreateUser(t, s, "carol")
	testenv.SeedPortfolio(t, s, carol, testenv.Portfolio{Skills: []string{"Elixir"}})

	stats, err := svc.ImportSystem(ctx, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, backup.PhaseCommitted, stats.Phase)
	assert.Equal(t, "system", stats.Scope)
	assert.Equal(t, 2, stats.Owners)
	assert.Equal(t, int64(3), stats.Deleted.Users)
	assert.Equal(t, int64(2), stats.Created.Users)

	assert.Equal(t, before, testenv.SystemCounts(t, s))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetUserBySlug("carol")
		assert.ErrorIs(t, err, store.ErrNotFound)

		restored, err := tx.GetUserBySlug("alice")
		require.NoError(t, err)
		assert.Equal(t, alice.PublicID, restored.PublicID)
		assert.Equal(t, testCredential, restored.PasswordHash)
		assert.True(t, restored.Active)

		setting, err := tx.FindSetting("newsletter")
		require.NoError(t, err)
		assert.Equal(t, "Monthly digest", setting.Description)
		return nil
	}))

	again := decodeSystem(t, exportSystem(t, svc))
	assert.Equal(t, env.Settings, again.Settings)
	assert.Equal(t, env.Payload, again.Payload)
}

func TestRestoreSystemIsAtomic(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	bob := testenv.CreateUser(t, s, "bob")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	testenv.SeedPortfolio(t, s, bob, bobPortfolio)

	var calls atomic.Int32
	failing := func() (string, error) {
		if calls.Add(1) > 1 {
			return "", errors.New("entropy exhausted")
		}
		return testCredential, nil
	}
	svc := newService(t, s, backup.WithCredentialFunc(failing))
	snapshot := exportSystem(t, svc)

	carol := testenv.CreateUser(t, s, "carol")
	before := testenv.SystemCounts(t, s)

	stats, err := svc.ImportSystem(context.Background(), bytes.NewReader(snapshot), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrResource)
	assert.Equal(t, backup.PhaseRolledBack, stats.Phase)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, before, testenv.SystemCounts(t, s))
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		_, err := tx.GetUser(carol.PublicID)
		return err
	}))
}

func TestRestoreSystemRejectsDuplicateOwners(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s)

	env := decodeSystem(t, exportSystem(t, svc))
	dup := env.Payload[0]
	dup.User.ID = models.NewUserID()
	dup.User.Email = "ALICE@example.com"
	env.Payload = append(env.Payload, dup)

	_, err := svc.ImportSystem(context.Background(), bytes.NewReader(encodeJSON(t, env)), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrValidation)
	assert.Contains(t, err.Error(), "payload[1].user.slug contains duplicate slug")
	assert.Contains(t, err.Error(), "payload[1].user.email contains duplicate email")
}

func TestRestoreDeniedInReadOnlyMode(t *testing.T) {
	inner := testenv.NewStore(t)
	alice := testenv.CreateUser(t, inner, "alice")
	testenv.SeedPortfolio(t, inner, alice, alicePortfolio)

	var readOnly atomic.Bool
	readOnly.Store(true)
	svc := newService(t, store.NewReadOnlyStore(inner, readOnly.Load))
	snapshot := exportUser(t, svc, alice, backup.FormatJSON)

	_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.ErrorIs(t, err, store.ErrReadOnly)
	assert.ErrorIs(t, err, backup.ErrResource)

	readOnly.Store(false)
	_, err = svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)
}

func TestRestoreTimeout(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	svc := newService(t, s, backup.WithRestoreTimeout(time.Nanosecond))
	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	before := testenv.Counts(t, s, alice)

	_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.ErrorIs(t, err, backup.ErrResource)
	assert.Equal(t, before, testenv.Counts(t, s, alice))
}

func TestConcurrentRestoresOfDifferentOwners(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	bob := testenv.CreateUser(t, s, "bob")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)
	testenv.SeedPortfolio(t, s, bob, bobPortfolio)
	svc := newService(t, s)

	snapshots := map[*models.User][]byte{
		alice: exportUser(t, svc, alice, backup.FormatJSON),
		bob:   exportUser(t, svc, bob, backup.FormatJSON),
	}
	before := testenv.SystemCounts(t, s)

	errs := make(chan error, 4)
	for i := 0; i < 2; i++ {
		for owner, snapshot := range snapshots {
			go func(owner *models.User, snapshot []byte) {
				_, err := svc.ImportUser(context.Background(), owner.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
				errs <- err
			}(owner, snapshot)
		}
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, before, testenv.SystemCounts(t, s))
}

func TestMetrics(t *testing.T) {
	s := testenv.NewStore(t)
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, alicePortfolio)

	reg := prometheus.NewRegistry()
	svc := newService(t, s, backup.WithMetrics(backup.NewMetrics(reg)))

	snapshot := exportUser(t, svc, alice, backup.FormatJSON)
	_, err := svc.ImportUser(context.Background(), alice.PublicID, bytes.NewReader(snapshot), backup.FormatJSON)
	require.NoError(t, err)
	_, err = svc.ImportUser(context.Background(), alice.PublicID, strings.NewReader("{"), backup.FormatJSON)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "folio_backup_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "export success, restore success, restore validation")

	count, err = testutil.GatherAndCount(reg, "folio_backup_rows_restored_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

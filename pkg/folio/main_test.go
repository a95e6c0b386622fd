package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/internal/testenv"
	"github.com/foliohq/folio/pkg/backup"
	"github.com/foliohq/folio/pkg/store"
	"github.com/foliohq/folio/pkg/store/gormstore"
)

// cli runs folio against one SQLite file, the way cmd/folio would.
type cli struct {
	t   *testing.T
	dsn string
}

func newCLI(t *testing.T) *cli {
	c := &cli{t: t, dsn: filepath.Join(t.TempDir(), "folio.db")}
	c.run(nil, "migrate")
	return c
}

func (c *cli) run(stdin []byte, args ...string) []byte {
	c.t.Helper()
	out, err := c.try(stdin, args...)
	require.NoError(c.t, err, "folio %v", args)
	return out
}

func (c *cli) try(stdin []byte, args ...string) ([]byte, error) {
	full := []string{"--database-dsn", c.dsn, "--log-level", "error"}
	full = append(full, args...)
	var out bytes.Buffer
	err := run(context.Background(), full, bytes.NewReader(stdin), &out)
	return out.Bytes(), err
}

// open gives direct access to the database between commands.
func (c *cli) open() *gormstore.Store {
	c.t.Helper()
	s, err := gormstore.Open(gormstore.DriverSQLite, c.dsn, testenv.Logger(c.t))
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCLIUserBackupAndRestore(t *testing.T) {
	c := newCLI(t)
	s := c.open()
	alice := testenv.CreateUser(t, s, "alice")
	testenv.SeedPortfolio(t, s, alice, testenv.Portfolio{
		Skills:       []string{"Go"},
		Projects:     []testenv.Item{{Title: "folio", Skills: []string{"Go"}}, {Title: "site"}},
		Testimonials: 2,
	})
	before := testenv.Counts(t, s, alice)

	file := filepath.Join(t.TempDir(), "alice.json")
	out := c.run(nil, "backup", "user", "alice", "-o", file)
	assert.Empty(t, out)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, backup.FormatJSON, backup.DetectFormat(data))

	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.DeleteProjects(store.OwnerScope(alice.ID))
		return err
	}))

	out = c.run(nil, "restore", "user", "alice", "-i", file)
	var stats backup.RestoreStats
	require.NoError(t, json.Unmarshal(out, &stats))
	assert.Equal(t, backup.PhaseCommitted, stats.Phase)
	assert.Equal(t, int64(2), stats.Created.Projects)

	assert.Equal(t, before, testenv.Counts(t, s, alice))
}

func TestCLISystemBackupAndRestoreThroughStdio(t *testing.T) {
	c := newCLI(t)
	s := c.open()
	for _, slug := range []string{"alice", "bob"} {
		owner := testenv.CreateUser(t, s, slug)
		testenv.SeedPortfolio(t, s, owner, testenv.Portfolio{Skills: []string{"Go"}, Qualifications: 1})
	}
	before := testenv.SystemCounts(t, s)

	envelope := c.run(nil, "backup", "system", "--format", "cbor")
	assert.Equal(t, backup.FormatCBOR, backup.DetectFormat(envelope))

	testenv.CreateUser(t, s, "carol")

	out := c.run(envelope, "restore", "system")
	var stats backup.RestoreStats
	require.NoError(t, json.Unmarshal(out, &stats))
	assert.Equal(t, 2, stats.Owners)
	assert.Equal(t, before, testenv.SystemCounts(t, s))
}

func TestCLIErrors(t *testing.T) {
	c := newCLI(t)
	s := c.open()
	testenv.CreateUser(t, s, "alice")

	_, err := c.try(nil, "backup", "user", "nobody")
	require.ErrorIs(t, err, backup.ErrNotFound)

	_, err = c.try([]byte("not an envelope"), "restore", "user", "alice")
	require.ErrorIs(t, err, backup.ErrValidation)

	envelope := c.run(nil, "backup", "user", "alice")
	_, err = c.try(envelope, "--read-only", "restore", "user", "alice")
	require.ErrorIs(t, err, store.ErrReadOnly)
}

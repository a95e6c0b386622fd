package models_test

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/pkg/models"
)

func TestIDJSON(t *testing.T) {
	id := models.NewProjectID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded models.ProjectID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	var empty models.ProjectID
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())

	var bad models.ProjectID
	err = json.Unmarshal([]byte(`"not-a-uuid"`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid project ID")
}

func TestIDCBOR(t *testing.T) {
	id := models.NewUserID()

	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var s string
	require.NoError(t, cbor.Unmarshal(data, &s))
	assert.Equal(t, id.String(), s)

	var decoded models.UserID
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestIDScanValue(t *testing.T) {
	id := models.NewExperienceID()

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	var zero models.ExperienceID
	v, err = zero.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	raw := id.UUID()
	for _, in := range []any{id.String(), []byte(id.String()), raw[:], [16]byte(raw)} {
		var scanned models.ExperienceID
		require.NoError(t, scanned.Scan(in))
		assert.Equal(t, id, scanned)
	}

	var scanned models.ExperienceID
	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())
	assert.Error(t, scanned.Scan(42))
}

func TestParseUserID(t *testing.T) {
	u := uuid.New()
	id, err := models.ParseUserID(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, id.UUID())

	_, err = models.ParseUserID("alice")
	assert.Error(t, err)
}

func TestSkillKey(t *testing.T) {
	assert.Equal(t, "go", models.SkillKey("  Go "))
	assert.Equal(t, "rust", models.SkillKey("RUST"))
}

func TestJSONColumns(t *testing.T) {
	var list models.StringList
	require.NoError(t, list.Scan(`["admin","owner"]`))
	assert.Equal(t, models.StringList{"admin", "owner"}, list)

	v, err := models.StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var m models.StringMap
	require.NoError(t, m.Scan([]byte(`{"github":"https://github.com/alice"}`)))
	assert.Equal(t, "https://github.com/alice", m["github"])

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
}

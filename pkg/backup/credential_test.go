package backup_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliohq/folio/pkg/backup"
)

func TestPlaceholderCredential(t *testing.T) {
	first, err := backup.PlaceholderCredential()
	require.NoError(t, err)
	second, err := backup.PlaceholderCredential()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	parts := strings.Split(first, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "v=19", parts[2])
	assert.Equal(t, "m=65536,t=3,p=4", parts[3])

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	require.NoError(t, err)
	assert.Len(t, salt, 16)
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

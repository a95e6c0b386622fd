package backup

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time    = 3         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32

	placeholderSecretLen = 32
	placeholderSaltLen   = 16
)

// CredentialFunc produces the password hash stored for owners recreated by
// a system restore.
type CredentialFunc func() (string, error)

// PlaceholderCredential hashes a random secret that is discarded right
// away. Nobody knows the password behind the hash, so a restored owner can
// only get in through a password reset. The result uses the PHC string
// format for argon2id.
func PlaceholderCredential() (string, error) {
	secret := make([]byte, placeholderSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	salt := make([]byte, placeholderSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey(secret, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

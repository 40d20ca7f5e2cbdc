package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// sessionKeyBytes is the entropy of a session key before encoding.
const sessionKeyBytes = 32

// ErrInvalidSessionKey is returned when a presented session key is malformed or unknown.
var ErrInvalidSessionKey = errors.New("invalid session key")

// NewSessionKey returns a random opaque session key (base64url, no padding).
// The caller hands the key to the client once and stores only HashSessionKey(key).
func NewSessionKey() (string, error) {
	b := make([]byte, sessionKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSessionKey returns the hex-encoded SHA-256 of key.
func HashSessionKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// SessionKeyHashEqual performs a constant-time comparison of the presented key's hash
// with the stored hash.
func SessionKeyHashEqual(providedKey, storedHash string) bool {
	providedHash := HashSessionKey(providedKey)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// ValidSessionKeyFormat reports whether key looks like a key produced by NewSessionKey.
func ValidSessionKeyFormat(key string) bool {
	b, err := base64.RawURLEncoding.DecodeString(key)
	return err == nil && len(b) == sessionKeyBytes
}

package devotp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
)

// GenerateCode returns a numeric code of the given length using crypto/rand.
func GenerateCode(digits int) (string, error) {
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, digits)
	for i := 0; i < digits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// codeEqual compares two codes in constant time.
func codeEqual(provided, stored string) bool {
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(stored))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

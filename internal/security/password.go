package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, errHash := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errHash != nil {
		return "", errHash
	}
	return string(hash), nil
}

// CheckAdminCredentials compares the supplied credentials with the configured admin.
func CheckAdminCredentials(wantUsername, passwordHash, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(wantUsername), []byte(username)) == 1
	// bcrypt runs regardless of the username match.
	errCompare := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	return userOK && errCompare == nil
}

// GenerateRandomString returns n random bytes encoded as URL-safe base64.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", errRead
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package users

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// rememberTokenBytes yields 22 base64url characters, matching the entropy
// of SecureRandom.urlsafe_base64.
const rememberTokenBytes = 16

// PrepareForSave returns a copy of u ready for persistence: the email is
// lower-cased and a fresh remember token is generated. The persistence
// boundary calls it before every write, so the token rotates on each save
// regardless of which fields changed. Sessions pinned to the old token stop
// resolving, which is the point.
func PrepareForSave(u User) (User, error) {
	u.Email = strings.ToLower(u.Email)
	token, err := NewRememberToken()
	if err != nil {
		return User{}, err
	}
	u.RememberToken = token
	return u, nil
}

// NewRememberToken produces an opaque URL-safe token.
func NewRememberToken() (string, error) {
	b := make([]byte, rememberTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dowesd/dowesd/internal/shared"
)

// User represents an account holder. The password is only ever stored as a
// bcrypt digest; RememberToken backs "stay signed in" sessions and rotates
// on every save.
type User struct {
	ID             int64
	Name           string
	Email          string
	PasswordDigest string
	RememberToken  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Credentials carries the identity fields submitted on signup and profile
// edit. The validator chain treats the values as immutable.
type Credentials struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Authenticate verifies a candidate password against the stored digest and
// returns the user on success. bcrypt performs the comparison, so timing
// does not leak digest contents.
func (u *User) Authenticate(password string) (*User, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordDigest), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword derives a bcrypt digest for storage.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

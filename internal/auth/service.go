package auth

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"

	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/users"
)

// Directory is the slice of user persistence the auth flows need.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id int64) (*users.User, error)
}

// Service bridges the credential model and a client's recurring requests.
type Service struct {
	directory Directory
}

// NewService constructs a Service.
func NewService(directory Directory) *Service {
	return &Service{directory: directory}
}

// Authenticate validates email/password credentials. Every failure mode
// collapses into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.directory.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user.Authenticate(password)
}

// SignIn pins the session to the user and the remember token current at
// this moment. Token rotation on a later save invalidates the session.
func (s *Service) SignIn(sess *shared.Session, user *users.User) {
	if sess == nil {
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10), user.RememberToken)
}

// SignOut detaches the session from its user.
func (s *Service) SignOut(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.ClearUser()
}

// CurrentUser resolves the session back to a user: the stored ID must load
// and the session's remember token must still equal the user's. A stale or
// forged token resolves to unauthenticated, not to an error page.
func (s *Service) CurrentUser(ctx context.Context, sess *shared.Session) (*users.User, error) {
	if sess == nil {
		return nil, shared.ErrInvalidCredentials
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, shared.ErrInvalidCredentials
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.directory.FindByID(ctx, id)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(sess.RememberToken()), []byte(user.RememberToken)) != 1 {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

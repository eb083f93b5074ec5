package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/users"
	_ "github.com/dowesd/dowesd/testing"
)

type stubDirectory struct {
	byID map[int64]*users.User
}

func (s *stubDirectory) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range s.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubDirectory) FindByID(ctx context.Context, id int64) (*users.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func newStubDirectory(t *testing.T, password string) (*stubDirectory, *users.User) {
	t.Helper()
	digest, err := users.HashPassword(password)
	require.NoError(t, err)
	token, err := users.NewRememberToken()
	require.NoError(t, err)
	user := &users.User{
		ID:             1,
		Name:           "Example User",
		Email:          "user@example.com",
		PasswordDigest: digest,
		RememberToken:  token,
	}
	return &stubDirectory{byID: map[int64]*users.User{1: user}}, user
}

func TestAuthenticate(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	got, err := service.Authenticate(context.Background(), "USER@example.com ", "foobar")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticateCollapsesFailures(t *testing.T) {
	dir, _ := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	_, err := service.Authenticate(context.Background(), "user@example.com", "wrongpass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = service.Authenticate(context.Background(), "nobody@example.com", "foobar")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "unknown email must look like a bad password")
}

func TestCurrentUserRoundTrip(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	sess := &shared.Session{}
	service.SignIn(sess, user)

	got, err := service.CurrentUser(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestCurrentUserRejectsRotatedToken(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	sess := &shared.Session{}
	service.SignIn(sess, user)

	// A later save rotates the stored token.
	rotated, err := users.NewRememberToken()
	require.NoError(t, err)
	dir.byID[user.ID].RememberToken = rotated

	_, err = service.CurrentUser(context.Background(), sess)
	assert.Error(t, err, "session pinned to the old token must not resolve")
}

func TestCurrentUserAnonymous(t *testing.T) {
	dir, _ := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	_, err := service.CurrentUser(context.Background(), &shared.Session{})
	assert.Error(t, err)

	_, err = service.CurrentUser(context.Background(), nil)
	assert.Error(t, err)
}

func TestSignOutDetachesUser(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)

	sess := &shared.Session{}
	service.SignIn(sess, user)
	service.SignOut(sess)

	_, err := service.CurrentUser(context.Background(), sess)
	assert.Error(t, err)
	assert.Empty(t, sess.User())
}

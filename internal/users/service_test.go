package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dowesd/dowesd/internal/shared"
)

type mockRepository struct {
	users  map[int64]*User
	nextID int64

	createErr error
	updateErr error

	deletedWithTxns []int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]*User), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, u User) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	id := m.nextID
	m.nextID++
	u.ID = id
	m.users[id] = &u
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, u User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[u.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := u
	m.users[u.ID] = &copied
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, u := range m.users {
		if u.ID != excludeID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var list []User
	for _, u := range m.users {
		list = append(list, *u)
	}
	return list, len(list), nil
}

func (m *mockRepository) DeleteWithTxns(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	m.deletedWithTxns = append(m.deletedWithTxns, id)
	return nil
}

func TestRegisterPreparesRecord(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	c := validCredentials()
	c.Email = "Foo@ExAMPle.CoM"
	user, errs, err := service.Register(context.Background(), c)
	require.NoError(t, err)
	require.False(t, errs.Any(), "unexpected validation errors: %v", errs)

	assert.Equal(t, "foo@example.com", user.Email, "email must be stored lower-cased")
	assert.NotEmpty(t, user.RememberToken, "remember token must be generated on save")
	assert.NotEqual(t, c.Password, user.PasswordDigest)
	assert.NotEmpty(t, user.PasswordDigest)
}

func TestRegisterRejectsInvalidCredentials(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	c := validCredentials()
	c.Password = "short"
	c.PasswordConfirmation = "short"
	user, errs, err := service.Register(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "is too short (minimum is 6 characters)", errs["password"])
	assert.Empty(t, repo.users, "no record may be written on validation failure")
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	_, errs, err := service.Register(context.Background(), validCredentials())
	require.NoError(t, err)
	require.False(t, errs.Any())

	c := validCredentials()
	c.Email = strings.ToUpper(c.Email)
	user, errs, err := service.Register(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "has already been taken", errs["email"])
	assert.Len(t, repo.users, 1)
}

func TestRegisterLosesUniquenessRace(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = ErrEmailTaken
	service := NewService(repo)

	user, errs, err := service.Register(context.Background(), validCredentials())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "has already been taken", errs["email"])
}

func TestUpdateProfileRotatesRememberToken(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	created, errs, err := service.Register(context.Background(), validCredentials())
	require.NoError(t, err)
	require.False(t, errs.Any())

	updated, errs, err := service.UpdateProfile(context.Background(), created.ID, validCredentials())
	require.NoError(t, err)
	require.False(t, errs.Any())

	assert.NotEqual(t, created.RememberToken, updated.RememberToken, "token must rotate on every save")
	assert.Equal(t, created.ID, updated.ID)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	_, _, err := service.UpdateProfile(context.Background(), 99, validCredentials())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	digest, err := HashPassword("foobar")
	require.NoError(t, err)
	user := &User{ID: 1, Email: "user@example.com", PasswordDigest: digest}

	got, err := user.Authenticate("foobar")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = user.Authenticate("wrongpass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestDestroyCascades(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	created, _, err := service.Register(context.Background(), validCredentials())
	require.NoError(t, err)

	require.NoError(t, service.Destroy(context.Background(), created.ID))
	assert.Equal(t, []int64{created.ID}, repo.deletedWithTxns)

	err = service.Destroy(context.Background(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPrepareForSaveRotates(t *testing.T) {
	u := User{Email: "MiXeD@CaSe.Com"}
	first, err := PrepareForSave(u)
	require.NoError(t, err)
	second, err := PrepareForSave(first)
	require.NoError(t, err)

	assert.Equal(t, "mixed@case.com", first.Email)
	assert.NotEmpty(t, first.RememberToken)
	assert.NotEqual(t, first.RememberToken, second.RememberToken)
}

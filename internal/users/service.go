package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dowesd/dowesd/internal/shared"
)

const listPerPage = 20

const emailTakenReason = "has already been taken"

// Service wraps account business rules: the validator chain, the
// prepare-for-save transform and uniqueness handling.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register validates and creates a new account. A non-empty
// ValidationErrors means the save was aborted with no partial writes; the
// error return is reserved for infrastructure failures.
func (s *Service) Register(ctx context.Context, c Credentials) (*User, ValidationErrors, error) {
	errs := ValidateCredentials(c)
	if _, emailBad := errs["email"]; !emailBad {
		taken, err := s.repo.EmailTaken(ctx, c.Email, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		if taken {
			errs.Add("email", emailTakenReason)
		}
	}
	if errs.Any() {
		return nil, errs, nil
	}

	digest, err := HashPassword(c.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := PrepareForSave(User{Name: c.Name, Email: c.Email, PasswordDigest: digest})
	if err != nil {
		return nil, nil, fmt.Errorf("prepare user: %w", err)
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Lost a race against a concurrent signup; same outcome as the
			// pre-check.
			errs.Add("email", emailTakenReason)
			return nil, errs, nil
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return &user, nil, nil
}

// UpdateProfile validates and rewrites an existing account. The full
// credential chain runs again and PrepareForSave rotates the remember
// token, so the editing session must refresh its stored token afterwards.
func (s *Service) UpdateProfile(ctx context.Context, id int64, c Credentials) (*User, ValidationErrors, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	errs := ValidateCredentials(c)
	if _, emailBad := errs["email"]; !emailBad {
		taken, err := s.repo.EmailTaken(ctx, c.Email, id)
		if err != nil {
			return nil, nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		if taken {
			errs.Add("email", emailTakenReason)
		}
	}
	if errs.Any() {
		return nil, errs, nil
	}

	digest, err := HashPassword(c.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	updated := *existing
	updated.Name = c.Name
	updated.Email = c.Email
	updated.PasswordDigest = digest
	updated, err = PrepareForSave(updated)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare user: %w", err)
	}
	updated.ID = existing.ID

	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			errs.Add("email", emailTakenReason)
			return nil, errs, nil
		}
		return nil, nil, fmt.Errorf("update user: %w", err)
	}
	return &updated, nil, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByID fetches a user by ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail fetches a user by email, compared case-insensitively.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, page int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, listPerPage, 0)
	list, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, listPerPage, total), nil
}

// Destroy cascade-deletes the user and everything they own.
func (s *Service) Destroy(ctx context.Context, id int64) error {
	return s.repo.DeleteWithTxns(ctx, id)
}

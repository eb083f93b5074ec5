package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/users"
)

const maxAccountNameLength = 100

// FormErrors maps account form fields to failure reasons.
type FormErrors map[string]string

// Any reports whether any field failed.
func (f FormErrors) Any() bool { return len(f) > 0 }

// PartyLookup resolves the other party of a new account by email.
type PartyLookup interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Service wraps shared-account business rules.
type Service struct {
	repo    Repository
	parties PartyLookup
}

// NewService constructs a Service.
func NewService(repo Repository, parties PartyLookup) *Service {
	return &Service{repo: repo, parties: parties}
}

// CreateInput carries the raw form fields for a new account.
type CreateInput struct {
	Name            string
	OtherPartyEmail string
}

// Create validates the input, resolves the other party and inserts the
// account with ownerID as owner.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*Account, FormErrors, error) {
	errs := make(FormErrors)

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs["name"] = "can't be blank"
	case utf8.RuneCountInString(name) > maxAccountNameLength:
		errs["name"] = "is too long (maximum is 100 characters)"
	}

	var otherID int64
	email := strings.TrimSpace(in.OtherPartyEmail)
	if email == "" {
		errs["other_party"] = "can't be blank"
	} else {
		other, err := s.parties.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			errs["other_party"] = "no user with that email"
		case err != nil:
			return nil, nil, fmt.Errorf("resolve other party: %w", err)
		case other.ID == ownerID:
			errs["other_party"] = "can't be yourself"
		default:
			otherID = other.ID
		}
	}

	if errs.Any() {
		return nil, errs, nil
	}

	account := Account{UserID: ownerID, OtherPartyID: otherID, Name: name}
	id, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("create account: %w", err)
	}
	account.ID = id
	return &account, nil, nil
}

// ListForUser returns every account the user participates in.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]View, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Get fetches one account the user participates in.
func (s *Service) Get(ctx context.Context, id, userID int64) (*View, error) {
	return s.repo.GetForParticipant(ctx, id, userID)
}

// Destroy removes an account; only its owner may do so.
func (s *Service) Destroy(ctx context.Context, id, ownerID int64) error {
	return s.repo.DeleteOwned(ctx, id, ownerID)
}

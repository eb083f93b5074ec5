package txns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dowesd/dowesd/internal/shared"
)

const (
	feedPerPage           = 30
	maxDescriptionLength  = 140
	dateLayout            = "2006-01-02"
	descriptionsCacheTTL  = 5 * time.Minute
	descriptionsKeyPrefix = "txns:descriptions:"
)

// FormErrors maps txn form fields to failure reasons.
type FormErrors map[string]string

// Any reports whether any field failed.
func (f FormErrors) Any() bool { return len(f) > 0 }

// CreateInput carries the raw form fields for a new txn.
type CreateInput struct {
	Date        string
	Amount      string
	Description string
}

// Service wraps txn business rules. The descriptions listing is cached in
// Redis with a singleflight fill so a cold key costs one query no matter
// how many requests race for it.
type Service struct {
	repo  Repository
	cache *redis.Client
	group singleflight.Group
}

// NewService constructs a Service. The cache client may be nil, in which
// case descriptions always hit the repository.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// Create validates the input and inserts a txn under the owner. A non-empty
// FormErrors means nothing was written.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Txn, FormErrors, error) {
	txn, errs := parseCreateInput(in)
	if errs.Any() {
		return nil, errs, nil
	}
	txn.UserID = userID
	id, err := s.repo.Create(ctx, txn)
	if err != nil {
		return nil, nil, fmt.Errorf("create txn: %w", err)
	}
	txn.ID = id
	s.invalidateDescriptions(ctx, userID)
	return &txn, nil, nil
}

// Destroy removes a txn owned by userID. A txn that does not exist for
// this user, including one owned by somebody else, is the same
// ErrNotFound.
func (s *Service) Destroy(ctx context.Context, userID, txnID int64) error {
	if err := s.repo.DeleteOwned(ctx, txnID, userID); err != nil {
		return err
	}
	s.invalidateDescriptions(ctx, userID)
	return nil
}

// Feed returns one page of the user's txns, newest first.
func (s *Service) Feed(ctx context.Context, userID int64, page int) ([]Txn, shared.Pagination, error) {
	p := shared.NewPagination(page, feedPerPage, 0)
	feed, total, err := s.repo.FeedForUser(ctx, userID, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return feed, shared.NewPagination(page, feedPerPage, total), nil
}

// Recent returns the user's most recent txns without pagination metadata.
func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]Txn, error) {
	feed, _, err := s.repo.FeedForUser(ctx, userID, limit, 0)
	return feed, err
}

// Descriptions lists the user's distinct txn descriptions, served from the
// cache when warm.
func (s *Service) Descriptions(ctx context.Context, userID int64) ([]string, error) {
	if s.cache == nil {
		return s.repo.Descriptions(ctx, userID)
	}

	key := descriptionsKey(userID)
	if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var descriptions []string
		if err := json.Unmarshal(cached, &descriptions); err == nil {
			return descriptions, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("descriptions cache get: %w", err)
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		descriptions, err := s.repo.Descriptions(ctx, userID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(descriptions); err == nil {
			_ = s.cache.Set(ctx, key, data, descriptionsCacheTTL).Err()
		}
		return descriptions, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

func (s *Service) invalidateDescriptions(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, descriptionsKey(userID)).Err()
}

func descriptionsKey(userID int64) string {
	return fmt.Sprintf("%s%d", descriptionsKeyPrefix, userID)
}

func parseCreateInput(in CreateInput) (Txn, FormErrors) {
	errs := make(FormErrors)
	var txn Txn

	if strings.TrimSpace(in.Date) == "" {
		errs["date"] = "can't be blank"
	} else {
		date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
		if err != nil {
			errs["date"] = "is not a valid date"
		} else {
			txn.Date = date
		}
	}

	if strings.TrimSpace(in.Amount) == "" {
		errs["amount"] = "can't be blank"
	} else {
		amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
		if err != nil {
			errs["amount"] = "is not a number"
		} else {
			txn.Amount = amount
		}
	}

	description := strings.TrimSpace(in.Description)
	switch {
	case description == "":
		errs["description"] = "can't be blank"
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		errs["description"] = "is too long (maximum is 140 characters)"
	default:
		txn.Description = description
	}

	return txn, errs
}

package txns

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dowesd/dowesd/internal/shared"
)

// Repository defines persistence operations for txns. Destroy is
// owner-scoped by construction: a row that exists under another user is the
// same ErrNotFound as a row that does not exist.
type Repository interface {
	Create(ctx context.Context, t Txn) (int64, error)
	DeleteOwned(ctx context.Context, id, userID int64) error
	FeedForUser(ctx context.Context, userID int64, limit, offset int) ([]Txn, int, error)
	Descriptions(ctx context.Context, userID int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a txn under its owner and returns the new ID.
func (r *PGRepository) Create(ctx context.Context, t Txn) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO txns (user_id, date, amount, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		t.UserID, t.Date, t.Amount, t.Description, now,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteOwned removes a txn only if it belongs to userID.
func (r *PGRepository) DeleteOwned(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM txns WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FeedForUser returns one page of the user's txns, newest first, along with
// the total count.
func (r *PGRepository) FeedForUser(ctx context.Context, userID int64, limit, offset int) ([]Txn, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM txns WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, date, amount, description, created_at, updated_at
		 FROM txns WHERE user_id = $1
		 ORDER BY date DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var feed []Txn
	for rows.Next() {
		var t Txn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Amount, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		feed = append(feed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return feed, total, nil
}

// Descriptions lists the distinct descriptions the user has recorded,
// alphabetically, for form autocompletion.
func (r *PGRepository) Descriptions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT description FROM txns WHERE user_id = $1 ORDER BY description`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var descriptions []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return descriptions, nil
}

var _ Repository = (*PGRepository)(nil)

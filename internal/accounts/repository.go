package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dowesd/dowesd/internal/shared"
)

// Repository defines persistence operations for shared accounts. Lookups
// are participant-scoped: an account the user is not part of is
// ErrNotFound, indistinguishable from one that does not exist.
type Repository interface {
	Create(ctx context.Context, a Account) (int64, error)
	ListForUser(ctx context.Context, userID int64) ([]View, error)
	GetForParticipant(ctx context.Context, id, userID int64) (*View, error)
	DeleteOwned(ctx context.Context, id, ownerID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const viewQuery = `
SELECT a.id, a.user_id, a.other_party_id, a.name, a.created_at,
       owner.name, owner.email, other.name, other.email
FROM accounts a
JOIN users owner ON owner.id = a.user_id
JOIN users other ON other.id = a.other_party_id`

// Create inserts an account and returns its ID.
func (r *PGRepository) Create(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (user_id, other_party_id, name, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		a.UserID, a.OtherPartyID, a.Name, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListForUser returns every account the user participates in, newest
// first.
func (r *PGRepository) ListForUser(ctx context.Context, userID int64) ([]View, error) {
	rows, err := r.pool.Query(ctx,
		viewQuery+` WHERE a.user_id = $1 OR a.other_party_id = $1 ORDER BY a.created_at DESC, a.id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// GetForParticipant fetches one account the user participates in.
func (r *PGRepository) GetForParticipant(ctx context.Context, id, userID int64) (*View, error) {
	row := r.pool.QueryRow(ctx,
		viewQuery+` WHERE a.id = $1 AND (a.user_id = $2 OR a.other_party_id = $2)`,
		id, userID,
	)
	v, err := scanView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// DeleteOwned removes an account only if ownerID created it.
func (r *PGRepository) DeleteOwned(ctx context.Context, id, ownerID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanView(row pgx.Row) (View, error) {
	var v View
	err := row.Scan(
		&v.ID, &v.UserID, &v.OtherPartyID, &v.Name, &v.CreatedAt,
		&v.OwnerName, &v.OwnerEmail, &v.OtherPartyName, &v.OtherPartyEmail,
	)
	return v, err
}

var _ Repository = (*PGRepository)(nil)

package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dowesd/dowesd/internal/platform/db"
	"github.com/dowesd/dowesd/internal/shared"
)

// ErrEmailTaken indicates the unique index on lower(email) rejected a
// write. Under concurrent signups this is the authoritative check; the
// service surfaces it as a validation failure.
var ErrEmailTaken = errors.New("email already taken")

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, u User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	DeleteWithTxns(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, email, password_digest, remember_token, created_at, updated_at`

// Create inserts a prepared user record and returns its ID.
func (r *PGRepository) Create(ctx context.Context, u User) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_digest, remember_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		u.Name, u.Email, u.PasswordDigest, u.RememberToken, now,
	).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return id, nil
}

// Update rewrites the mutable columns of a prepared user record.
func (r *PGRepository) Update(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, password_digest = $3, remember_token = $4, updated_at = $5 WHERE id = $6`,
		u.Name, u.Email, u.PasswordDigest, u.RememberToken, time.Now().UTC(), u.ID,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail fetches a user by email, compared case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// EmailTaken reports whether another user already holds the email.
func (r *PGRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)`,
		email, excludeID,
	).Scan(&taken)
	return taken, err
}

// List returns a page of users ordered by ID along with the total count.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordDigest, &u.RememberToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// DeleteWithTxns removes the user, their txns and their shared accounts in
// one transaction. All-or-nothing: a failure leaves no orphans and no
// half-deleted user.
func (r *PGRepository) DeleteWithTxns(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM txns WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1 OR other_party_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordDigest, &u.RememberToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

var _ Repository = (*PGRepository)(nil)

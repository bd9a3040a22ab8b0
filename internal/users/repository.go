package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Repository exposes persistence operations for accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	SetStatus(ctx context.Context, id int64, status string) (bool, error)
	UpdateImage(ctx context.Context, id int64, imageURL string) (*string, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, email, role, status, image, created_at, updated_at`

// Get returns a single account.
func (r *PGRepository) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, httpx.FromPG(err)
	}
	return &u, nil
}

// List returns one page of accounts ordered by id and the total count.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]User, 0, limit)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetStatus moves the account to status. It reports false when the account
// already had that status and ErrNotFound when it does not exist.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 AND status <> $2`, id, status)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, httpx.ErrNotFound
	}
	return false, nil
}

// UpdateImage stores a new avatar URL and returns the previous one.
func (r *PGRepository) UpdateImage(ctx context.Context, id int64, imageURL string) (*string, error) {
	var previous *string
	err := r.pool.QueryRow(ctx, `UPDATE users u SET image = $2, updated_at = NOW()
FROM (SELECT id, image FROM users WHERE id = $1 FOR UPDATE) old
WHERE u.id = old.id
RETURNING old.image`, id, imageURL).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return previous, nil
}

var _ Repository = (*PGRepository)(nil)

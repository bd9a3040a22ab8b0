package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	Create(ctx context.Context, in NewAccount) (*Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, role, status, image, created_at, updated_at`

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
	return scanAccount(row)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// Create inserts a new account with the default role and status.
func (r *PGRepository) Create(ctx context.Context, in NewAccount) (*Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING `+accountColumns, in.Name, in.Email, in.PasswordHash)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, httpx.FromPG(err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.Status, &acc.Image, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

var _ Repository = (*PGRepository)(nil)

package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// MaxIdempotencyKeyLen bounds client supplied Idempotency-Key headers.
const MaxIdempotencyKeyLen = 200

// ErrIdempotencyConflict indicates the key was already claimed.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore persists claimed request keys per scope.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, now: time.Now}
}

// Claim records key under scope. A second claim of the same pair fails with
// httpx.ErrDuplicate wrapping ErrIdempotencyConflict.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) error {
	if s == nil || s.pool == nil {
		return errors.New("idempotency store not initialised")
	}
	if err := validateKey(scope, key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (scope, key, created_at) VALUES ($1, $2, $3)`, scope, key, s.now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %w", httpx.ErrDuplicate, ErrIdempotencyConflict)
		}
		return err
	}
	return nil
}

// Release removes a claim, used when processing failed and the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE scope = $1 AND key = $2`, scope, key)
	return err
}

// Cleanup removes claims older than retention and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func validateKey(scope, key string) error {
	if scope == "" {
		return errors.New("idempotency scope required")
	}
	if key == "" {
		return fmt.Errorf("%w: idempotency key required", httpx.ErrValidation)
	}
	if len(key) > MaxIdempotencyKeyLen {
		return fmt.Errorf("%w: idempotency key longer than %d bytes", httpx.ErrValidation, MaxIdempotencyKeyLen)
	}
	return nil
}

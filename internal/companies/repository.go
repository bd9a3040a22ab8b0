package companies

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane-tech/nfc-tracker/internal/platform/db"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Repository persists companies.
type Repository interface {
	List(ctx context.Context) ([]Company, error)
	Exists(ctx context.Context, id int64) (bool, error)
	AddBulk(ctx context.Context, entries []Entry) (int, error)
	UpsertBulk(ctx context.Context, entries []Entry) (int, int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	companies := []Company{}
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// AddBulk inserts all entries in one statement so the batch succeeds or
// fails as a whole. A duplicate code maps to httpx.ErrDuplicate.
func (r *repository) AddBulk(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	query, args := buildInsert(entries)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, httpx.FromPG(err)
	}
	return int(tag.RowsAffected()), nil
}

func buildInsert(entries []Entry) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO companies (name, code) VALUES `)
	args := make([]any, 0, len(entries)*2)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d, $%d)", i*2+1, i*2+2)
		args = append(args, e.Name, e.Code)
	}
	return b.String(), args
}

const (
	upsertCompanySQL = `INSERT INTO companies (name, code) VALUES ($1, $2)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name`
	reassignDuplicatesSQL = `UPDATE acknowledgments ack
SET company_id = keeper.id, updated_at = NOW()
FROM companies dup
JOIN (SELECT name, MIN(id) AS id FROM companies GROUP BY name) keeper ON keeper.name = dup.name
WHERE ack.company_id = dup.id AND dup.id > keeper.id`
	dedupeByNameSQL = `DELETE FROM companies a USING companies b
WHERE a.name = b.name AND a.id > b.id`
)

// UpsertBulk applies entries in order inside one transaction, then removes
// companies whose name duplicates one with a lower id. Acknowledgments of a
// removed company move to the kept one. It returns the number of upserted
// rows and removed duplicates.
func (r *repository) UpsertBulk(ctx context.Context, entries []Entry) (int, int64, error) {
	var upserted int
	var removed int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(upsertCompanySQL, e.Name, e.Code)
		}
		results := tx.SendBatch(ctx, batch)
		for range entries {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return httpx.FromPG(err)
			}
			upserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, reassignDuplicatesSQL); err != nil {
			return fmt.Errorf("reassign duplicate companies: %w", err)
		}
		tag, err := tx.Exec(ctx, dedupeByNameSQL)
		if err != nil {
			return fmt.Errorf("remove duplicate companies: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return upserted, removed, nil
}

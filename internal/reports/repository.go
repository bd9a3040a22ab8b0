package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads report rows.
type Repository interface {
	Acknowledgments(ctx context.Context, from, to time.Time) ([]Row, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Acknowledgments returns rows submitted in [from, to), oldest first.
func (r *repository) Acknowledgments(ctx context.Context, from, to time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, u.name, c.name, c.code, a.cards_submitted,
       a.submission_type, a.delivery_method, a.state_time, a.image, a.submission_date, a.updated_at
FROM acknowledgments a
JOIN users u ON u.id = a.user_id
JOIN companies c ON c.id = a.company_id
WHERE a.submission_date >= $1 AND a.submission_date < $2
ORDER BY a.submission_date ASC, a.id ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.UserName, &row.CompanyName, &row.CompanyCode, &row.CardsSubmitted,
			&row.SubmissionType, &row.DeliveryMethod, &row.StateTime, &row.Image, &row.SubmissionDate, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

package nfc

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Repository is the persistence port of the balance and history engine.
type Repository interface {
	Totals(ctx context.Context, userID int64, current shared.Window) (Totals, error)
	History(ctx context.Context, userID int64, w shared.Window) ([]HistoryEntry, error)
	HistorySince(ctx context.Context, userID int64, from time.Time) ([]HistoryEntry, error)
	LatestAllocation(ctx context.Context, userID int64) (time.Time, bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	InsertAllocation(ctx context.Context, userID int64, allocated int) (*Allocation, error)
	InsertAcknowledgment(ctx context.Context, in NewAcknowledgment) (*Acknowledgment, error)
	PurgeTargets(ctx context.Context, w shared.Window) ([]PurgeTarget, error)
	DeleteAcknowledgments(ctx context.Context, ids []int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const totalsSQL = `SELECT
    (SELECT COALESCE(SUM(allocated), 0) FROM nfcs
        WHERE user_id = $1 AND day_allocated >= $2 AND day_allocated < $3),
    (SELECT COALESCE(SUM(cards_submitted), 0) FROM acknowledgments
        WHERE user_id = $1 AND submission_date >= $2 AND submission_date < $3),
    (SELECT COALESCE(SUM(allocated), 0) FROM nfcs
        WHERE user_id = $1 AND day_allocated < $2),
    (SELECT COALESCE(SUM(cards_submitted), 0) FROM acknowledgments
        WHERE user_id = $1 AND submission_date < $2)`

// Totals computes the four balance aggregates in one round trip.
func (r *repository) Totals(ctx context.Context, userID int64, current shared.Window) (Totals, error) {
	var t Totals
	var allocCur, subCur, allocPrior, subPrior int64
	err := r.pool.QueryRow(ctx, totalsSQL, userID, current.From, current.To).
		Scan(&allocCur, &subCur, &allocPrior, &subPrior)
	if err != nil {
		return t, err
	}
	t.AllocatedCurrent = int(allocCur)
	t.SubmittedCurrent = int(subCur)
	t.AllocatedPrior = int(allocPrior)
	t.SubmittedPrior = int(subPrior)
	return t, nil
}

const historySelect = `SELECT a.id, a.submission_date, c.id, c.code, c.name, a.cards_submitted,
       a.submission_type, a.delivery_method, a.state_time, a.image
FROM acknowledgments a
JOIN companies c ON c.id = a.company_id
WHERE a.user_id = $1`

func (r *repository) History(ctx context.Context, userID int64, w shared.Window) ([]HistoryEntry, error) {
	return r.queryHistory(ctx, historySelect+` AND a.submission_date >= $2 AND a.submission_date < $3
ORDER BY a.submission_date DESC, a.id DESC`, userID, w.From, w.To)
}

func (r *repository) HistorySince(ctx context.Context, userID int64, from time.Time) ([]HistoryEntry, error) {
	return r.queryHistory(ctx, historySelect+` AND a.submission_date >= $2
ORDER BY a.submission_date DESC, a.id DESC`, userID, from)
}

func (r *repository) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.SubmittedAt, &e.CompanyID, &e.CompanyCode, &e.CompanyName,
			&e.CardsSubmitted, &e.SubmissionType, &e.DeliveryMethod, &e.StateTime, &e.Image); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) LatestAllocation(ctx context.Context, userID int64) (time.Time, bool, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(day_allocated) FROM nfcs WHERE user_id = $1`, userID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, err
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func (r *repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (r *repository) InsertAllocation(ctx context.Context, userID int64, allocated int) (*Allocation, error) {
	var a Allocation
	err := r.pool.QueryRow(ctx, `INSERT INTO nfcs (user_id, allocated, day_allocated, updated_at)
VALUES ($1, $2, NOW(), NOW())
RETURNING id, user_id, allocated, day_allocated`, userID, allocated).
		Scan(&a.ID, &a.UserID, &a.Allocated, &a.DayAllocated)
	if err != nil {
		return nil, httpx.FromPG(err)
	}
	return &a, nil
}

func (r *repository) InsertAcknowledgment(ctx context.Context, in NewAcknowledgment) (*Acknowledgment, error) {
	var a Acknowledgment
	err := r.pool.QueryRow(ctx, `INSERT INTO acknowledgments
    (user_id, company_id, cards_submitted, submission_type, delivery_method, state_time, image, submission_date, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING id, user_id, company_id, cards_submitted, submission_type, delivery_method, state_time, image, submission_date`,
		in.UserID, in.CompanyID, in.CardsSubmitted, in.SubmissionType, in.DeliveryMethod, in.StateTime, in.Image).
		Scan(&a.ID, &a.UserID, &a.CompanyID, &a.CardsSubmitted, &a.SubmissionType, &a.DeliveryMethod, &a.StateTime, &a.Image, &a.SubmissionDate)
	if err != nil {
		return nil, httpx.FromPG(err)
	}
	return &a, nil
}

func (r *repository) PurgeTargets(ctx context.Context, w shared.Window) ([]PurgeTarget, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, image FROM acknowledgments
WHERE submission_date >= $1 AND submission_date < $2
ORDER BY id`, w.From, w.To)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[PurgeTarget])
}

func (r *repository) DeleteAcknowledgments(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM acknowledgments WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const timelineSQL = `SELECT l.id, l.occurred_at, l.actor_id, COALESCE(u.email, ''), l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l
LEFT JOIN users u ON u.id = l.actor_id
WHERE ($1::timestamptz IS NULL OR l.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR l.occurred_at < $2)
  AND ($3::bigint IS NULL OR l.actor_id = $3)
  AND ($4::text IS NULL OR l.entity = $4)
  AND ($5::text IS NULL OR l.action = $5)
ORDER BY l.occurred_at DESC, l.id DESC
OFFSET $6 LIMIT $7`

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Timeline(ctx context.Context, q WindowQuery) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineSQL, q.From, q.To, q.ActorID, q.Entity, q.Action, q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.ID, &out.At, &out.ActorID, &out.ActorEmail, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return out, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return out, err
			}
		}
		return out, nil
	})
}

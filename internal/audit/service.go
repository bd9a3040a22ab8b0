// Package audit exposes the admin audit trail written by shared.AuditLogger.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, q WindowQuery) ([]TimelineRow, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q := windowQuery(filters)
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize + 1

	rows, err := s.repo.Timeline(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

func windowQuery(filters TimelineFilters) WindowQuery {
	var q WindowQuery
	if !filters.From.IsZero() {
		from := filters.From
		q.From = &from
	}
	if !filters.To.IsZero() {
		to := filters.To
		q.To = &to
	}
	if filters.ActorID > 0 {
		actor := filters.ActorID
		q.ActorID = &actor
	}
	q.Entity = optionalText(filters.Entity)
	q.Action = optionalText(filters.Action)
	return q
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// endOfDay turns an inclusive date into the exclusive bound of the next day.
func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}

package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

const maxRangeDays = 366

// Service builds acknowledgment reports.
type Service struct {
	repo Repository
	loc  *time.Location
}

// NewService constructs a Service. Dates are interpreted in loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

// Acknowledgments returns every acknowledgment submitted between the two
// YYYY-MM-DD dates, both inclusive.
func (s *Service) Acknowledgments(ctx context.Context, fromRaw, toRaw string) (*Report, error) {
	from, err := shared.ParseDate(fromRaw, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %w", httpx.ErrValidation, err)
	}
	to, err := shared.ParseDate(toRaw, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %w", httpx.ErrValidation, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to must not be before from", httpx.ErrValidation)
	}
	end := to.AddDate(0, 0, 1)
	if end.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range must not exceed %d days", httpx.ErrValidation, maxRangeDays)
	}
	rows, err := s.repo.Acknowledgments(ctx, from, end)
	if err != nil {
		return nil, fmt.Errorf("report rows: %w", err)
	}
	report := &Report{From: fromRaw, To: toRaw, Rows: rows}
	for _, row := range rows {
		report.TotalCards += row.CardsSubmitted
	}
	return report, nil
}

// Location returns the time zone used to render dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

package nfc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/octane-tech/nfc-tracker/internal/events"
	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// CompanyChecker confirms a company exists before a submission references it.
type CompanyChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Options configures the Service.
type Options struct {
	Location         *time.Location
	Now              func() time.Time
	PurgeConcurrency int
	Events           events.Publisher
	Audit            shared.AuditRecorder
}

// Service implements balances, history, submissions, allocations and purges.
type Service struct {
	repo      Repository
	images    imagestore.Store
	companies CompanyChecker
	events    events.Publisher
	audit     shared.AuditRecorder
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
	fanOut    int
}

// NewService constructs a Service.
func NewService(repo Repository, images imagestore.Store, companies CompanyChecker, logger *slog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PurgeConcurrency <= 0 {
		opts.PurgeConcurrency = 8
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Audit == nil {
		opts.Audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		images:    images,
		companies: companies,
		events:    opts.Events,
		audit:     opts.Audit,
		logger:    logger,
		loc:       opts.Location,
		now:       opts.Now,
		fanOut:    opts.PurgeConcurrency,
	}
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Balance reports the current month's balance. Unknown accounts have a zero
// balance.
func (s *Service) Balance(ctx context.Context, userID int64) (*Balance, error) {
	now := s.today()
	totals, err := s.repo.Totals(ctx, userID, shared.MonthWindow(now))
	if err != nil {
		return nil, fmt.Errorf("balance totals: %w", err)
	}
	b := ComputeBalance(userID, shared.MonthLabel(now), totals)
	return &b, nil
}

// PeriodWindow resolves a history period keyword against today.
func PeriodWindow(period string, today time.Time) (shared.Window, error) {
	switch period {
	case PeriodDaily:
		return shared.DayWindow(today), nil
	case PeriodWeekly:
		return shared.TrailingDays(today, 7), nil
	case PeriodMonthly:
		return shared.Window{From: shared.MonthWindow(today).From, To: shared.DayWindow(today).To}, nil
	default:
		return shared.Window{}, fmt.Errorf("%w: period must be one of [daily weekly monthly]", httpx.ErrValidation)
	}
}

// History lists the account's acknowledgments within the period, newest first.
func (s *Service) History(ctx context.Context, userID int64, period string) (*History, error) {
	w, err := PeriodWindow(period, s.today())
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	s.stampDates(entries)
	return &History{UserID: userID, Period: period, From: &w.From, To: &w.To, Entries: entries}, nil
}

// HistorySinceAllocation lists every acknowledgment on or after the day of
// the account's most recent allocation. Accounts never allocated get an
// empty list.
func (s *Service) HistorySinceAllocation(ctx context.Context, userID int64) (*History, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %d", httpx.ErrNotFound, userID)
	}
	result := &History{UserID: userID, Period: "since_allocation", Entries: []HistoryEntry{}}
	latest, ok, err := s.repo.LatestAllocation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest allocation: %w", err)
	}
	if !ok {
		return result, nil
	}
	from := shared.StartOfDay(latest.In(s.loc))
	entries, err := s.repo.HistorySince(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("history since allocation: %w", err)
	}
	s.stampDates(entries)
	result.From = &from
	result.Entries = entries
	return result, nil
}

func (s *Service) stampDates(entries []HistoryEntry) {
	for i := range entries {
		entries[i].Date = shared.FormatDate(entries[i].SubmittedAt, s.loc)
	}
}

// Allocate grants cards to an account.
func (s *Service) Allocate(ctx context.Context, actor shared.Identity, userID int64, allocated int) (*Allocation, error) {
	if allocated < 0 {
		return nil, fmt.Errorf("%w: allocated must be at least 0", httpx.ErrValidation)
	}
	a, err := s.repo.InsertAllocation(ctx, userID, allocated)
	if err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   shared.AuditAllocate,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"allocated": allocated, "allocation_id": a.ID},
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", shared.AuditAllocate), slog.Any("error", err))
	}
	events.Emit(ctx, s.events, s.logger, events.New(events.AllocationCreated, a))
	return a, nil
}

// Submission is an acknowledgment request after boundary validation.
type Submission struct {
	CompanyID      int64
	CardsSubmitted int
	SubmissionType string
	DeliveryMethod string
	StateTime      string
	Image          imagestore.Upload
}

// Submit records an acknowledgment. The image is uploaded first; nothing is
// persisted if the upload fails.
func (s *Service) Submit(ctx context.Context, userID int64, sub Submission) (*Acknowledgment, error) {
	if sub.CardsSubmitted <= 0 {
		return nil, fmt.Errorf("%w: cards_submitted must be greater than 0", httpx.ErrValidation)
	}
	exists, err := s.companies.Exists(ctx, sub.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("check company: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: company %d", httpx.ErrNotFound, sub.CompanyID)
	}

	name := fmt.Sprintf("ack-%d-%s", userID, sub.Image.Name)
	url, err := s.images.Store(ctx, sub.Image.Data, name)
	if err != nil {
		return nil, err
	}
	ack, err := s.repo.InsertAcknowledgment(ctx, NewAcknowledgment{
		UserID:         userID,
		CompanyID:      sub.CompanyID,
		CardsSubmitted: sub.CardsSubmitted,
		SubmissionType: sub.SubmissionType,
		DeliveryMethod: sub.DeliveryMethod,
		StateTime:      sub.StateTime,
		Image:          url,
	})
	if err != nil {
		if _, derr := s.images.Delete(ctx, url); derr != nil {
			s.logger.Warn("remove orphaned acknowledgment image", slog.String("url", url), slog.Any("error", derr))
		}
		return nil, err
	}
	events.Emit(ctx, s.events, s.logger, events.New(events.AcknowledgmentSubmitted, ack))
	return ack, nil
}

package companies

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
	"github.com/octane-tech/nfc-tracker/internal/tabular"
)

// maxImportRows keeps an additive import within one statement's bind limit.
const maxImportRows = 20000

// Service implements company listing and bulk reconciliation.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns every company ordered by id.
func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.repo.List(ctx)
}

// Exists reports whether the company id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// ParseMode validates the import mode. Empty means add.
func ParseMode(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "", ModeAdd:
		return ModeAdd, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("%w: mode must be one of [add replace]", httpx.ErrValidation)
	}
}

// Import parses the spreadsheet and applies it in the given mode. Nothing is
// written unless at least one row has both a name and a code.
func (s *Service) Import(ctx context.Context, actor shared.Identity, filename string, r io.Reader, mode string) (*ImportResult, error) {
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	rows, err := tabular.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	entries, skipped := Extract(rows)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no rows with both a company name and code", httpx.ErrValidation)
	}
	if len(entries) > maxImportRows {
		return nil, fmt.Errorf("%w: at most %d rows per import", httpx.ErrValidation, maxImportRows)
	}

	result := &ImportResult{Mode: mode, Rows: len(rows), Skipped: skipped}
	switch mode {
	case ModeAdd:
		result.Imported, err = s.repo.AddBulk(ctx, entries)
	case ModeReplace:
		result.Imported, result.Removed, err = s.repo.UpsertBulk(ctx, entries)
	}
	if err != nil {
		return nil, fmt.Errorf("import companies: %w", err)
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   shared.AuditCompaniesImport,
		Entity:   "company",
		EntityID: mode,
		Meta: map[string]any{
			"file":     filename,
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"removed":  result.Removed,
		},
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", shared.AuditCompaniesImport), slog.Any("error", err))
	}
	s.logger.Info("companies imported",
		slog.String("mode", mode),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int64("duplicates_removed", result.Removed),
	)
	return result, nil
}

package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Service exposes account management use cases.
type Service struct {
	repo   Repository
	images imagestore.Store
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, images imagestore.Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, images: images, audit: audit, logger: logger}
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of accounts.
func (s *Service) List(ctx context.Context, page, perPage int) (*Page, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &Page{Users: users, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// Suspend blocks the account from logging in or using its token.
func (s *Service) Suspend(ctx context.Context, actor shared.Identity, id int64) (*StatusChange, error) {
	if actor.ID == id {
		return nil, fmt.Errorf("%w: admins cannot suspend themselves", httpx.ErrValidation)
	}
	return s.setStatus(ctx, actor, id, StatusSuspended, shared.AuditSuspend)
}

// Activate lifts a suspension.
func (s *Service) Activate(ctx context.Context, actor shared.Identity, id int64) (*StatusChange, error) {
	return s.setStatus(ctx, actor, id, StatusActive, shared.AuditActivate)
}

func (s *Service) setStatus(ctx context.Context, actor shared.Identity, id int64, status, action string) (*StatusChange, error) {
	changed, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if changed {
		s.record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   action,
			Entity:   "user",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"status": status},
		})
	}
	return &StatusChange{UserID: id, Status: status, Changed: changed}, nil
}

// UpdateAvatar uploads a new profile image and removes the previous one.
func (s *Service) UpdateAvatar(ctx context.Context, id int64, upload imagestore.Upload) (*User, error) {
	url, err := s.images.Store(ctx, upload.Data, fmt.Sprintf("avatar-%d-%s", id, upload.Name))
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.UpdateImage(ctx, id, url)
	if err != nil {
		if _, derr := s.images.Delete(ctx, url); derr != nil {
			s.logger.Warn("remove orphaned avatar", slog.String("url", url), slog.Any("error", derr))
		}
		return nil, err
	}
	if previous != nil && *previous != "" {
		if _, err := s.images.Delete(ctx, *previous); err != nil {
			s.logger.Warn("remove previous avatar", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

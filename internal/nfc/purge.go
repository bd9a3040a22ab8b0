package nfc

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/octane-tech/nfc-tracker/internal/events"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// PurgeMonth deletes every acknowledgment submitted in month (YYYY-MM).
// Each row's image gets exactly one delete attempt; image failures are
// logged and counted but never fail the purge. Only the rows selected with
// their images are deleted, so a submission arriving mid-purge keeps its image.
func (s *Service) PurgeMonth(ctx context.Context, actor shared.Identity, month string) (*PurgeResult, error) {
	w, err := shared.ParseMonth(month, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	targets, err := s.repo.PurgeTargets(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("purge select images: %w", err)
	}
	ids := make([]int64, len(targets))
	images := make([]string, len(targets))
	for i, t := range targets {
		ids[i], images[i] = t.ID, t.Image
	}

	outcomes := s.deleteImages(ctx, images)

	deleted, err := s.repo.DeleteAcknowledgments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("purge delete rows: %w", err)
	}

	result := &PurgeResult{Month: month, Deleted: deleted, ImagesAttempted: len(outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			result.ImagesFailed++
		case o.Deleted:
			result.ImagesDeleted++
		}
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   shared.AuditPurgeMonth,
		Entity:   "acknowledgment",
		EntityID: month,
		Meta: map[string]any{
			"deleted":          result.Deleted,
			"images_attempted": result.ImagesAttempted,
			"images_failed":    result.ImagesFailed,
		},
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", shared.AuditPurgeMonth), slog.Any("error", err))
	}
	events.Emit(ctx, s.events, s.logger, events.New(events.AcknowledgmentsPurged, result))
	s.logger.Info("acknowledgments purged",
		slog.String("month", month),
		slog.Int64("deleted", result.Deleted),
		slog.Int("images_attempted", result.ImagesAttempted),
		slog.Int("images_failed", result.ImagesFailed),
	)
	return result, nil
}

// deleteImages fans out one delete per image with bounded concurrency and
// collects every outcome. It never returns early on failure.
func (s *Service) deleteImages(ctx context.Context, images []string) []ImageDeletion {
	outcomes := make([]ImageDeletion, len(images))
	var g errgroup.Group
	g.SetLimit(s.fanOut)
	for i, url := range images {
		g.Go(func() error {
			deleted, err := s.images.Delete(ctx, url)
			outcomes[i] = ImageDeletion{URL: url, Deleted: deleted, Err: err}
			if err != nil {
				s.logger.Warn("purge image delete failed", slog.String("url", url), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

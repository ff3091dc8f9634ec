package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
)

// JanitorServiceConfig holds configuration for JanitorService.
type JanitorServiceConfig struct {
	// StaleAge is how old a non-publishing record may grow before the
	// reaper removes it.
	StaleAge time.Duration
	// ReaperInterval is the reaper tick.
	ReaperInterval time.Duration
	// ReminderInterval is the pending-reminder tick.
	ReminderInterval time.Duration
	// PendingAge is how long a record must wait before it is nagged about.
	PendingAge time.Duration
	// ChatID receives reminders and cleanup notes.
	ChatID int64
}

// DefaultJanitorServiceConfig returns the default configuration.
func DefaultJanitorServiceConfig() JanitorServiceConfig {
	return JanitorServiceConfig{
		StaleAge:         7 * 24 * time.Hour,
		ReaperInterval:   24 * time.Hour,
		ReminderInterval: time.Hour,
		PendingAge:       time.Hour,
	}
}

// JanitorService runs the periodic housekeeping loops.
type JanitorService interface {
	// RunReaper deletes stale records until ctx is cancelled.
	RunReaper(ctx context.Context) error

	// RunReminder nags about long-pending records until ctx is cancelled.
	RunReminder(ctx context.Context) error
}

type janitorService struct {
	registry  repository.VideoRegistry
	messenger repository.Messenger
	cfg       JanitorServiceConfig
}

// NewJanitorService creates a new JanitorService instance.
func NewJanitorService(
	registry repository.VideoRegistry,
	messenger repository.Messenger,
	cfg JanitorServiceConfig,
) JanitorService {
	return &janitorService{
		registry:  registry,
		messenger: messenger,
		cfg:       cfg,
	}
}

func (s *janitorService) RunReaper(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.reapOnce(ctx); err != nil {
				slog.Error("stale reap failed", "error", err)
			}
		}
	}
}

func (s *janitorService) reapOnce(ctx context.Context) error {
	records, err := s.registry.List(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-s.cfg.StaleAge)
	removed := 0
	for _, rec := range records {
		if rec.State == model.StatePublishing || rec.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := s.registry.Delete(ctx, rec.ID); err != nil {
			slog.Error("failed to reap stale video", "video_id", rec.ID, "error", err)
			continue
		}
		slog.Info("reaped stale video",
			"video_id", rec.ID,
			"filename", rec.Filename,
			"age", time.Since(rec.CreatedAt).Round(time.Hour),
		)
		removed++
	}

	if removed > 0 {
		s.send(ctx, fmt.Sprintf("Removed %d stale videos older than %s.", removed, s.cfg.StaleAge))
	}
	return nil
}

func (s *janitorService) RunReminder(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.remindOnce(ctx); err != nil {
				slog.Error("pending reminder failed", "error", err)
			}
		}
	}
}

func (s *janitorService) remindOnce(ctx context.Context) error {
	records, err := s.registry.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	var stuck []*model.VideoRecord
	for _, rec := range records {
		if rec.State == model.StatePublishing || !rec.IsLive() {
			continue
		}
		if now.Sub(rec.CreatedAt) >= s.cfg.PendingAge {
			stuck = append(stuck, rec)
		}
	}
	if len(stuck) == 0 {
		return nil
	}

	s.send(ctx, pendingSummary(stuck, now))
	return nil
}

func (s *janitorService) send(ctx context.Context, text string) {
	if s.messenger == nil || s.cfg.ChatID == 0 {
		return
	}
	if _, err := s.messenger.Send(ctx, s.cfg.ChatID, text, nil); err != nil {
		slog.Error("failed to send janitor message", "chat_id", s.cfg.ChatID, "error", err)
	}
}

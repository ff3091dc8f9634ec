package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/infrastructure/metrics"
	"github.com/vidgate/vidgate/internal/transcoder"
)

const (
	// maxFailReason bounds the error text stored on a failed record.
	maxFailReason = 256

	// progressMinDelta and progressMinInterval throttle progress edits so
	// the chat API is touched at most once per 5 points or 5 seconds.
	progressMinDelta    = 0.05
	progressMinInterval = 5 * time.Second
)

// PublishServiceConfig holds configuration for PublishService.
type PublishServiceConfig struct {
	// PollInterval is how often platform-side processing is checked after
	// the bytes are transferred.
	PollInterval time.Duration
	// PollTimeout caps the processing wait. Running out is treated as
	// success; the platform finishes on its own schedule.
	PollTimeout time.Duration
	// WatchURLBase prefixes the external id to form a shareable link.
	WatchURLBase string
	// AnnounceChatID optionally receives a note for long videos. 0 disables.
	AnnounceChatID int64
	// AnnounceMinDuration is the minimum video length that triggers the
	// announce note.
	AnnounceMinDuration time.Duration
	// CategoryID and Tags are platform metadata applied to every upload.
	CategoryID string
	Tags       []string
}

// DefaultPublishServiceConfig returns the default configuration.
func DefaultPublishServiceConfig() PublishServiceConfig {
	return PublishServiceConfig{
		PollInterval:        30 * time.Second,
		PollTimeout:         10 * time.Minute,
		WatchURLBase:        "https://youtu.be/",
		AnnounceMinDuration: 10 * time.Minute,
		CategoryID:          "22",
	}
}

// PublishService carries one confirmed video through the hosting platform.
type PublishService interface {
	// Process handles one publish task. It returns nil for every terminal
	// outcome including failure; a failed publish is recorded on the
	// video, never retried through the queue. Only context cancellation
	// propagates.
	Process(ctx context.Context, task repository.PublishTask) error
}

type publishService struct {
	registry   repository.VideoRegistry
	platform   repository.Platform
	messenger  repository.Messenger
	archiver   repository.Archiver
	transcoder transcoder.Transcoder
	cfg        PublishServiceConfig
}

// NewPublishService creates a new PublishService instance.
// archiver and tc may be nil when those stages are not configured.
func NewPublishService(
	registry repository.VideoRegistry,
	platform repository.Platform,
	messenger repository.Messenger,
	archiver repository.Archiver,
	tc transcoder.Transcoder,
	cfg PublishServiceConfig,
) PublishService {
	return &publishService{
		registry:   registry,
		platform:   platform,
		messenger:  messenger,
		archiver:   archiver,
		transcoder: tc,
		cfg:        cfg,
	}
}

func (s *publishService) Process(ctx context.Context, task repository.PublishTask) error {
	rec, err := s.registry.Get(ctx, task.VideoID)
	if errors.Is(err, repository.ErrVideoNotFound) {
		slog.Warn("publish task for unknown video", "video_id", task.VideoID)
		metrics.PublishOutcomesTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}
	if err != nil {
		return err
	}
	if rec.State != model.StatePublishing {
		slog.Info("skipping publish task for non-publishing video",
			"video_id", rec.ID, "state", rec.State)
		metrics.PublishOutcomesTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}

	start := time.Now()
	uploadPath := s.prepareFile(ctx, rec)
	if uploadPath != rec.StoragePath {
		defer os.Remove(uploadPath)
	}

	req := repository.PublishRequest{
		Path:        uploadPath,
		Title:       model.TruncateTitle(rec.DisplayTitle()),
		Description: buildDescription(rec),
		Tags:        s.cfg.Tags,
		CategoryID:  s.cfg.CategoryID,
		Privacy:     effectivePrivacy(rec),
	}

	externalID, err := s.platform.Upload(ctx, req, s.progressReporter(ctx, rec))
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-upload. The record stays PUBLISHING and is
			// converted to FAILED when the snapshot reloads.
			return ctx.Err()
		}
		s.fail(ctx, rec, metrics.OutcomeFailed, err.Error())
		return nil
	}

	if reason := s.checkRejection(ctx, externalID); reason != "" {
		s.fail(ctx, rec, metrics.OutcomeRejected, reason)
		return nil
	}

	processed, err := s.awaitProcessing(ctx, externalID)
	if err != nil {
		return err
	}

	outcome := metrics.OutcomePublished
	if !processed {
		// The clock ran out, not the platform. Treat it as published and
		// let the platform finish on its own.
		outcome = metrics.OutcomePublishedSoft
		slog.Warn("processing poll timed out, assuming success",
			"video_id", rec.ID, "external_id", externalID)
	}

	published, err := s.registry.Apply(ctx, rec.ID, func(r *model.VideoRecord) error {
		if err := r.TransitionTo(model.StatePublished); err != nil {
			return err
		}
		r.ExternalID = externalID
		return nil
	})
	if err != nil {
		slog.Error("failed to record publish result", "video_id", rec.ID, "error", err)
		return nil
	}

	metrics.PublishOutcomesTotal.WithLabelValues(outcome).Inc()
	metrics.PublishDurationSeconds.Observe(time.Since(start).Seconds())

	watchURL := s.cfg.WatchURLBase + externalID
	s.notify(ctx, published, fmt.Sprintf("Published %q\n%s", published.DisplayTitle(), watchURL))
	s.announce(ctx, published, watchURL)
	s.release(ctx, published)
	return nil
}

// prepareFile rotates portrait videos to landscape. Any failure falls
// back to the original file.
func (s *publishService) prepareFile(ctx context.Context, rec *model.VideoRecord) string {
	if s.transcoder == nil {
		return rec.StoragePath
	}

	portrait, err := s.transcoder.IsPortrait(ctx, rec.StoragePath)
	if err != nil {
		slog.Warn("orientation probe failed, uploading as is", "video_id", rec.ID, "error", err)
		return rec.StoragePath
	}
	if !portrait {
		return rec.StoragePath
	}

	rotated, err := s.transcoder.Rotate(ctx, rec.StoragePath)
	if err != nil {
		slog.Warn("rotation failed, uploading as is", "video_id", rec.ID, "error", err)
		return rec.StoragePath
	}
	slog.Info("rotated portrait video", "video_id", rec.ID, "path", rotated)
	return rotated
}

// progressReporter edits the confirmation message with upload progress,
// throttled so neither small increments nor rapid callbacks reach the
// chat API.
func (s *publishService) progressReporter(ctx context.Context, rec *model.VideoRecord) func(float64) {
	if s.messenger == nil || rec.Chat == nil {
		return func(float64) {}
	}

	chat := *rec.Chat
	title := rec.DisplayTitle()

	var mu sync.Mutex
	var lastFraction float64
	var lastEdit time.Time

	return func(fraction float64) {
		mu.Lock()
		// Edit when the fraction moved five points or five seconds passed,
		// whichever comes first.
		if fraction <= lastFraction ||
			(fraction-lastFraction < progressMinDelta && time.Since(lastEdit) < progressMinInterval) {
			mu.Unlock()
			return
		}
		lastFraction = fraction
		lastEdit = time.Now()
		mu.Unlock()

		text := fmt.Sprintf("Uploading %q\n%s %d%%", title, progressBar(fraction), int(fraction*100))
		if err := s.messenger.Edit(ctx, chat.ChatID, chat.MessageID, text, nil); err != nil {
			slog.Debug("progress edit failed", "video_id", rec.ID, "error", err)
		}
	}
}

// checkRejection asks the platform whether the finished upload was
// declined. A failed check is treated as acceptance; the poll loop still
// observes the terminal state.
func (s *publishService) checkRejection(ctx context.Context, externalID string) string {
	reason, err := s.platform.RejectionReason(ctx, externalID)
	if err != nil {
		slog.Warn("rejection check failed", "external_id", externalID, "error", err)
		return ""
	}
	return reason
}

// awaitProcessing polls the platform until processing succeeds or the
// timeout lapses. Returns false on timeout.
func (s *publishService) awaitProcessing(ctx context.Context, externalID string) (bool, error) {
	deadline := time.Now().Add(s.cfg.PollTimeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			done, err := s.platform.ProcessingSucceeded(ctx, externalID)
			if err != nil {
				slog.Warn("processing poll failed", "external_id", externalID, "error", err)
			} else if done {
				return true, nil
			}
			if time.Now().After(deadline) {
				return false, nil
			}
		}
	}
}

// fail records a terminal failure on the video. The queue never redelivers
// it; only a fresh confirmation publishes again.
func (s *publishService) fail(ctx context.Context, rec *model.VideoRecord, outcome, reason string) {
	reason = boundReason(reason)
	slog.Error("publish failed", "video_id", rec.ID, "outcome", outcome, "reason", reason)

	if _, err := s.registry.Apply(ctx, rec.ID, func(r *model.VideoRecord) error {
		if err := r.TransitionTo(model.StateFailed); err != nil {
			return err
		}
		r.FailReason = reason
		return nil
	}); err != nil {
		slog.Error("failed to record publish failure", "video_id", rec.ID, "error", err)
	}

	metrics.PublishOutcomesTotal.WithLabelValues(outcome).Inc()
	s.notify(ctx, rec, fmt.Sprintf("Publish of %q failed: %s", rec.DisplayTitle(), reason))
}

// release archives the local file when configured, then removes the record
// and its file. The registry is the single holder of live state; a
// published video no longer belongs in it.
func (s *publishService) release(ctx context.Context, rec *model.VideoRecord) {
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, rec.StoragePath, rec.Filename); err != nil {
			slog.Error("archive failed, keeping local file",
				"video_id", rec.ID, "path", rec.StoragePath, "error", err)
			return
		}
	}

	if _, err := s.registry.Delete(ctx, rec.ID); err != nil {
		slog.Error("failed to release published video", "video_id", rec.ID, "error", err)
	}
}

// announce posts a note to the secondary chat for videos at least
// AnnounceMinDuration long.
func (s *publishService) announce(ctx context.Context, rec *model.VideoRecord, watchURL string) {
	if s.messenger == nil || s.cfg.AnnounceChatID == 0 {
		return
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(rec.Duration), 64)
	if err != nil || time.Duration(seconds*float64(time.Second)) < s.cfg.AnnounceMinDuration {
		return
	}

	text := fmt.Sprintf("New video: %q\n%s", rec.DisplayTitle(), watchURL)
	if _, err := s.messenger.Send(ctx, s.cfg.AnnounceChatID, text, nil); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("announce failed", "video_id", rec.ID, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()
}

func (s *publishService) notify(ctx context.Context, rec *model.VideoRecord, text string) {
	if s.messenger == nil || rec.Chat == nil {
		return
	}
	if err := s.messenger.Edit(ctx, rec.Chat.ChatID, rec.Chat.MessageID, text, nil); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("failed to edit result message", "video_id", rec.ID, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()
}

func buildDescription(rec *model.VideoRecord) string {
	desc := "Original file: " + rec.Filename
	if rec.RecordedAt != "" {
		desc += "\nRecorded: " + rec.RecordedAt
	}
	return desc
}

func effectivePrivacy(rec *model.VideoRecord) model.Privacy {
	if rec.Privacy == "" {
		return model.PrivacyPrivate
	}
	return rec.Privacy
}

func boundReason(reason string) string {
	runes := []rune(reason)
	if len(runes) > maxFailReason {
		return string(runes[:maxFailReason])
	}
	return reason
}

// progressBar renders ten cells of upload progress.
func progressBar(fraction float64) string {
	const cells = 10
	filled := int(fraction * cells)
	if filled > cells {
		filled = cells
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", cells-filled)
}

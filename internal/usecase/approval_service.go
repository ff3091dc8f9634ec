package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/infrastructure/metrics"
)

// ChatMessage is an inbound text message from the approval chat.
type ChatMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	// ReplyTo is the id of the message this one replies to, 0 if none.
	ReplyTo int
}

// ChatCallback is an inbound button press from an inline keyboard.
type ChatCallback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

// ChatUpdate is one decoded webhook update. Exactly one of Message and
// Callback is set.
type ChatUpdate struct {
	UpdateID int64
	Message  *ChatMessage
	Callback *ChatCallback
}

// ApprovalService drives the chat-based approval flow. Every handler
// re-reads current state under the registry lock; stale and duplicate
// events fall out as invalid transitions and are absorbed.
type ApprovalService interface {
	// HandleUpdate routes one webhook update. It never returns an error
	// for stale, duplicate or malformed events; only infrastructure
	// failures propagate.
	HandleUpdate(ctx context.Context, u ChatUpdate) error

	// NotifyTitlePrompt re-sends the title prompt for a record still
	// awaiting one.
	NotifyTitlePrompt(ctx context.Context, videoID string) error

	// DeleteVideo removes a record and its file on an operator's request.
	DeleteVideo(ctx context.Context, videoID string) (*model.VideoRecord, error)

	// CleanupAll removes every record not currently publishing.
	CleanupAll(ctx context.Context) (int, error)

	// CleanupStale removes non-publishing records older than olderThan.
	CleanupStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type approvalService struct {
	registry  repository.VideoRegistry
	queue     repository.PublishQueue
	messenger repository.Messenger
	dedup     repository.UpdateDedup
	chatID    int64
}

// NewApprovalService creates a new ApprovalService instance.
// dedup may be nil when no duplicate-delivery guard is configured.
func NewApprovalService(
	registry repository.VideoRegistry,
	queue repository.PublishQueue,
	messenger repository.Messenger,
	dedup repository.UpdateDedup,
	chatID int64,
) ApprovalService {
	return &approvalService{
		registry:  registry,
		queue:     queue,
		messenger: messenger,
		dedup:     dedup,
		chatID:    chatID,
	}
}

func (s *approvalService) HandleUpdate(ctx context.Context, u ChatUpdate) error {
	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, u.UpdateID)
		if err != nil {
			// The registry's state checks are the idempotency backstop.
			slog.Error("update dedup check failed", "update_id", u.UpdateID, "error", err)
		} else if seen {
			slog.Debug("dropping duplicate update", "update_id", u.UpdateID)
			return nil
		}
	}

	switch {
	case u.Callback != nil:
		return s.handleCallback(ctx, u.Callback)
	case u.Message != nil:
		return s.handleMessage(ctx, u.Message)
	default:
		return nil
	}
}

// Callback payload layout: "<verb>:<video id>:<argument>". The cleanup
// verb carries no video id.
func (s *approvalService) handleCallback(ctx context.Context, cb *ChatCallback) error {
	verb, rest, _ := strings.Cut(cb.Data, ":")

	var ack string
	var err error
	switch verb {
	case "privacy":
		ack, err = s.onPrivacyChosen(ctx, cb, rest)
	case "action":
		ack, err = s.onAction(ctx, cb, rest)
	case "confirm":
		ack, err = s.onDeleteConfirm(ctx, cb, rest)
	case "cleanup":
		ack, err = s.onCleanup(ctx, cb, rest)
	default:
		slog.Warn("unknown callback verb", "data", cb.Data)
	}
	if err != nil {
		return err
	}

	if ansErr := s.messenger.AnswerCallback(ctx, cb.ID, ack); ansErr != nil {
		slog.Error("failed to answer callback", "callback_id", cb.ID, "error", ansErr)
	}
	return nil
}

// onPrivacyChosen handles "privacy:<id>:<level>".
func (s *approvalService) onPrivacyChosen(ctx context.Context, cb *ChatCallback, rest string) (string, error) {
	videoID, level, ok := strings.Cut(rest, ":")
	if !ok {
		return "", nil
	}

	privacy, err := model.ParsePrivacy(level)
	if err != nil {
		return "Unknown privacy level", nil
	}

	rec, err := s.registry.Apply(ctx, videoID, func(r *model.VideoRecord) error {
		return r.SetPrivacy(privacy)
	})
	if ack, handled := absorbStaleEvent(err, "set privacy", videoID); handled {
		return ack, nil
	}

	s.editPrompt(ctx, cb,
		fmt.Sprintf("Publish %q as %s?", rec.DisplayTitle(), privacy),
		uploadConfirmKeyboard(videoID))
	return "", nil
}

// onAction handles "action:<id>:upload" and "action:<id>:delete".
func (s *approvalService) onAction(ctx context.Context, cb *ChatCallback, rest string) (string, error) {
	videoID, action, ok := strings.Cut(rest, ":")
	if !ok {
		return "", nil
	}

	switch action {
	case "upload":
		return s.confirmPublish(ctx, cb, videoID)
	case "delete":
		rec, err := s.registry.Get(ctx, videoID)
		if err != nil {
			return "Video not found", nil
		}
		// Prompt only. The record stays READY_TO_UPLOAD until confirmed.
		s.editPrompt(ctx, cb,
			fmt.Sprintf("Delete %q? This cannot be undone.", rec.DisplayTitle()),
			deleteConfirmKeyboard(videoID))
		return "", nil
	default:
		return "", nil
	}
}

// confirmPublish transitions the record to its publishing state and
// enqueues the background task. The transition guard guarantees at most
// one enqueue per confirmation round.
func (s *approvalService) confirmPublish(ctx context.Context, cb *ChatCallback, videoID string) (string, error) {
	rec, err := s.registry.Apply(ctx, videoID, func(r *model.VideoRecord) error {
		if err := r.TransitionTo(model.StatePublishing); err != nil {
			return err
		}
		// The publish worker edits this message with progress.
		r.Chat = &model.ChatRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
		return nil
	})
	if ack, handled := absorbStaleEvent(err, "confirm publish", videoID); handled {
		return ack, nil
	}

	if err := s.queue.EnqueuePublish(ctx, repository.PublishTask{VideoID: videoID}); err != nil {
		slog.Error("failed to enqueue publish task", "video_id", videoID, "error", err)
		if _, failErr := s.registry.Apply(ctx, videoID, func(r *model.VideoRecord) error {
			if err := r.TransitionTo(model.StateFailed); err != nil {
				return err
			}
			r.FailReason = "could not schedule publish"
			return nil
		}); failErr != nil {
			slog.Error("failed to mark video as failed", "video_id", videoID, "error", failErr)
		}
		return "Could not schedule publish", nil
	}

	s.editPrompt(ctx, cb, fmt.Sprintf("Publishing %q...", rec.DisplayTitle()), nil)
	return "", nil
}

// onDeleteConfirm handles "confirm:<id>:delete" and "confirm:<id>:cancel".
func (s *approvalService) onDeleteConfirm(ctx context.Context, cb *ChatCallback, rest string) (string, error) {
	videoID, choice, ok := strings.Cut(rest, ":")
	if !ok {
		return "", nil
	}

	switch choice {
	case "delete":
		rec, err := s.DeleteVideo(ctx, videoID)
		switch {
		case errors.Is(err, repository.ErrPublishInProgress):
			return "Publish in progress, try again later", nil
		case errors.Is(err, repository.ErrVideoNotFound):
			return "Video not found", nil
		case err != nil:
			return "", err
		}
		s.editPrompt(ctx, cb, fmt.Sprintf("Deleted %q.", rec.DisplayTitle()), nil)
		return "", nil

	case "cancel":
		// Back out of the delete prompt to the privacy choice. The stored
		// privacy survives; choosing again simply overwrites it.
		rec, err := s.registry.Apply(ctx, videoID, func(r *model.VideoRecord) error {
			return r.TransitionTo(model.StateAwaitingPrivacy)
		})
		if ack, handled := absorbStaleEvent(err, "cancel delete", videoID); handled {
			return ack, nil
		}
		s.editPrompt(ctx, cb,
			fmt.Sprintf("Choose privacy for %q:", rec.DisplayTitle()),
			privacyKeyboard(videoID))
		return "", nil

	default:
		return "", nil
	}
}

// onCleanup handles "cleanup:confirm" and "cleanup:cancel".
func (s *approvalService) onCleanup(ctx context.Context, cb *ChatCallback, choice string) (string, error) {
	switch choice {
	case "confirm":
		removed, err := s.CleanupAll(ctx)
		if err != nil {
			return "", err
		}
		s.editPrompt(ctx, cb, fmt.Sprintf("Removed %d videos.", removed), nil)
	case "cancel":
		s.editPrompt(ctx, cb, "Cleanup cancelled.", nil)
	}
	return "", nil
}

func (s *approvalService) handleMessage(ctx context.Context, msg *ChatMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return s.handleCommand(ctx, msg, text)
	}
	return s.captureTitle(ctx, msg, text)
}

func (s *approvalService) handleCommand(ctx context.Context, msg *ChatMessage, text string) error {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		s.send(ctx, msg.ChatID,
			"Video gateway ready.\n"+
				"/check - service status\n"+
				"/pending - videos awaiting action\n"+
				"/cleanup - remove all pending videos")
	case "/check":
		records, err := s.registry.List(ctx)
		if err != nil {
			return err
		}
		s.send(ctx, msg.ChatID, statusSummary(records))
	case "/pending":
		records, err := s.registry.List(ctx)
		if err != nil {
			return err
		}
		s.send(ctx, msg.ChatID, pendingSummary(records, time.Now()))
	case "/cleanup":
		if _, err := s.messenger.Send(ctx, msg.ChatID,
			"Remove all pending videos and their files?", cleanupKeyboard()); err != nil {
			slog.Error("failed to send cleanup prompt", "error", err)
		}
	default:
		slog.Debug("ignoring unknown command", "command", cmd)
	}
	return nil
}

// captureTitle treats a plain message as the title for a video awaiting
// one. A reply targets the record whose prompt was replied to; a bare
// message is accepted only when exactly one record is waiting.
func (s *approvalService) captureTitle(ctx context.Context, msg *ChatMessage, title string) error {
	records, err := s.registry.List(ctx)
	if err != nil {
		return err
	}

	target := findTitleTarget(records, msg.ReplyTo)
	if target == nil {
		if countAwaitingTitle(records) > 1 {
			s.send(ctx, msg.ChatID, "Several videos are waiting for a title. Reply to the matching notification.")
		}
		return nil
	}

	rec, err := s.registry.Apply(ctx, target.ID, func(r *model.VideoRecord) error {
		return r.SetTitle(title)
	})
	if _, handled := absorbStaleEvent(err, "set title", target.ID); handled {
		return nil
	}

	messageID, err := s.messenger.Send(ctx, msg.ChatID,
		fmt.Sprintf("Choose privacy for %q:", rec.DisplayTitle()),
		privacyKeyboard(rec.ID))
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("failed to send privacy prompt", "video_id", rec.ID, "error", err)
		return nil
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()

	if _, err := s.registry.Apply(ctx, rec.ID, func(r *model.VideoRecord) error {
		r.Chat = &model.ChatRef{ChatID: msg.ChatID, MessageID: messageID}
		return nil
	}); err != nil {
		slog.Error("failed to attach chat reference", "video_id", rec.ID, "error", err)
	}
	return nil
}

func (s *approvalService) NotifyTitlePrompt(ctx context.Context, videoID string) error {
	rec, err := s.registry.Get(ctx, videoID)
	if err != nil {
		return err
	}
	if rec.State != model.StateAwaitingTitle {
		return model.ErrInvalidTransition
	}

	messageID, err := s.messenger.Send(ctx, s.chatID,
		fmt.Sprintf("Video %s is waiting for a title.\nReply to this message with one.", rec.Filename), nil)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		return fmt.Errorf("send title prompt: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()

	if _, err := s.registry.Apply(ctx, videoID, func(r *model.VideoRecord) error {
		r.Chat = &model.ChatRef{ChatID: s.chatID, MessageID: messageID}
		return nil
	}); err != nil {
		slog.Error("failed to attach chat reference", "video_id", videoID, "error", err)
	}
	return nil
}

func (s *approvalService) DeleteVideo(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	return s.registry.Delete(ctx, videoID)
}

func (s *approvalService) CleanupAll(ctx context.Context) (int, error) {
	return s.registry.DeleteAll(ctx)
}

func (s *approvalService) CleanupStale(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := s.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, rec := range records {
		if rec.State == model.StatePublishing || rec.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := s.registry.Delete(ctx, rec.ID); err != nil {
			slog.Error("failed to delete stale video", "video_id", rec.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// absorbStaleEvent classifies an Apply error. Stale or duplicate events
// (invalid transition, vanished record) are logged and answered, not
// propagated; anything else is an infrastructure failure the caller must
// wrap, which for the in-memory registry does not occur.
func absorbStaleEvent(err error, op, videoID string) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, model.ErrInvalidTransition):
		metrics.InvalidTransitionsTotal.Inc()
		slog.Info("ignoring stale event", "op", op, "video_id", videoID)
		return "Already handled", true
	case errors.Is(err, repository.ErrVideoNotFound):
		slog.Info("event for unknown video", "op", op, "video_id", videoID)
		return "Video not found", true
	default:
		slog.Error("event handling failed", "op", op, "video_id", videoID, "error", err)
		return "Something went wrong", true
	}
}

// editPrompt rewrites the keyboard message a callback came from.
func (s *approvalService) editPrompt(ctx context.Context, cb *ChatCallback, text string, kb repository.Keyboard) {
	if err := s.messenger.Edit(ctx, cb.ChatID, cb.MessageID, text, kb); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("failed to edit prompt", "chat_id", cb.ChatID, "message_id", cb.MessageID, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()
}

func (s *approvalService) send(ctx context.Context, chatID int64, text string) {
	if _, err := s.messenger.Send(ctx, chatID, text, nil); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()
}

func findTitleTarget(records []*model.VideoRecord, replyTo int) *model.VideoRecord {
	var sole *model.VideoRecord
	waiting := 0
	for _, rec := range records {
		if rec.State != model.StateAwaitingTitle {
			continue
		}
		if replyTo != 0 && rec.Chat != nil && rec.Chat.MessageID == replyTo {
			return rec
		}
		waiting++
		sole = rec
	}
	if replyTo == 0 && waiting == 1 {
		return sole
	}
	return nil
}

func countAwaitingTitle(records []*model.VideoRecord) int {
	n := 0
	for _, rec := range records {
		if rec.State == model.StateAwaitingTitle {
			n++
		}
	}
	return n
}

func statusSummary(records []*model.VideoRecord) string {
	counts := make(map[model.State]int)
	for _, rec := range records {
		counts[rec.State]++
	}
	if len(records) == 0 {
		return "No videos tracked. All clear."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d videos tracked:\n", len(records))
	for _, state := range []model.State{
		model.StateAwaitingTitle,
		model.StateAwaitingPrivacy,
		model.StateReadyToUpload,
		model.StatePublishing,
		model.StateFailed,
	} {
		if counts[state] > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", state, counts[state])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// pendingSummary lists videos stuck awaiting action, oldest first, capped
// at five names.
func pendingSummary(records []*model.VideoRecord, now time.Time) string {
	const maxNames = 5

	var pending []*model.VideoRecord
	for _, rec := range records {
		if rec.State == model.StatePublishing || !rec.IsLive() {
			continue
		}
		pending = append(pending, rec)
	}
	if len(pending) == 0 {
		return "Nothing pending."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d videos pending:\n", len(pending))
	for i, rec := range pending {
		if i == maxNames {
			fmt.Fprintf(&b, "  ...and %d more", len(pending)-maxNames)
			break
		}
		age := now.Sub(rec.CreatedAt).Round(time.Minute)
		fmt.Fprintf(&b, "  %s (%s, waiting %s)\n", rec.DisplayTitle(), rec.State, age)
	}
	return strings.TrimRight(b.String(), "\n")
}

func privacyKeyboard(videoID string) repository.Keyboard {
	return repository.Keyboard{
		{
			{Text: "Public", Data: "privacy:" + videoID + ":public"},
			{Text: "Unlisted", Data: "privacy:" + videoID + ":unlisted"},
			{Text: "Private", Data: "privacy:" + videoID + ":private"},
		},
	}
}

func uploadConfirmKeyboard(videoID string) repository.Keyboard {
	return repository.Keyboard{
		{
			{Text: "Upload", Data: "action:" + videoID + ":upload"},
			{Text: "Delete", Data: "action:" + videoID + ":delete"},
		},
	}
}

func deleteConfirmKeyboard(videoID string) repository.Keyboard {
	return repository.Keyboard{
		{
			{Text: "Yes, delete", Data: "confirm:" + videoID + ":delete"},
			{Text: "Cancel", Data: "confirm:" + videoID + ":cancel"},
		},
	}
}

func cleanupKeyboard() repository.Keyboard {
	return repository.Keyboard{
		{
			{Text: "Yes, remove all", Data: "cleanup:confirm"},
			{Text: "Cancel", Data: "cleanup:cancel"},
		},
	}
}

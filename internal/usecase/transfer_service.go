package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/infrastructure/metrics"
)

// SubmitChunkInput contains one chunk of an incoming transfer.
type SubmitChunkInput struct {
	Filename   string
	Offset     int64
	TotalSize  int64
	Data       []byte
	Duration   string
	RecordedAt string
}

// SubmitChunkOutput reports the result of a chunk submission.
type SubmitChunkOutput struct {
	// Complete is true once the final chunk of the file has been committed.
	Complete bool
	// Offset is the committed offset after this chunk (partial results).
	Offset int64
	// VideoID identifies the registered record (complete results).
	VideoID string
}

// TransferService defines the interface for the resumable-transfer flow.
type TransferService interface {
	// SubmitChunk validates and commits one chunk. The final chunk
	// registers the assembled file and prompts the approver for a title.
	SubmitChunk(ctx context.Context, input SubmitChunkInput) (*SubmitChunkOutput, error)

	// ResumeOffset returns the committed offset a sender must continue
	// from, 0 when the file must restart.
	ResumeOffset(filename string) int64
}

// TransferServiceConfig holds configuration for TransferService.
type TransferServiceConfig struct {
	// ApprovalChatID is the chat that receives title prompts for freshly
	// completed transfers.
	ApprovalChatID int64
}

type transferService struct {
	store     repository.ChunkStore
	registry  repository.VideoRegistry
	messenger repository.Messenger
	chatID    int64

	// mu guards locks; each per-filename lock serializes the
	// append-then-finalize sequence for that file.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(
	store repository.ChunkStore,
	registry repository.VideoRegistry,
	messenger repository.Messenger,
	cfg TransferServiceConfig,
) TransferService {
	return &transferService{
		store:     store,
		registry:  registry,
		messenger: messenger,
		chatID:    cfg.ApprovalChatID,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SubmitChunk commits one chunk under the file's lock. Concurrent
// submissions for the same filename are serialized; all but one then fail
// the offset check and learn the committed offset to reseek to.
func (s *transferService) SubmitChunk(ctx context.Context, input SubmitChunkInput) (*SubmitChunkOutput, error) {
	lock := s.fileLock(input.Filename)
	lock.Lock()
	defer lock.Unlock()

	newOffset, err := s.store.Append(input.Filename, input.Offset, input.TotalSize, input.Data)
	if err != nil {
		var mismatch *repository.OffsetMismatchError
		if errors.As(err, &mismatch) {
			metrics.ChunkSubmissionsTotal.WithLabelValues("offset_mismatch").Inc()
		} else {
			metrics.ChunkSubmissionsTotal.WithLabelValues("io_error").Inc()
		}
		return nil, err
	}
	metrics.ChunkBytesCommitted.Add(float64(len(input.Data)))

	if newOffset < input.TotalSize {
		metrics.ChunkSubmissionsTotal.WithLabelValues("partial").Inc()
		return &SubmitChunkOutput{Offset: newOffset}, nil
	}

	session, path, err := s.store.Finalize(input.Filename)
	if err != nil {
		return nil, fmt.Errorf("finalize transfer: %w", err)
	}

	rec, err := model.NewVideoRecord(session.Filename, path, session.Offset)
	if err != nil {
		return nil, err
	}
	rec.Duration = input.Duration
	rec.RecordedAt = input.RecordedAt

	registered, err := s.registry.CreateOrReplace(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("register video: %w", err)
	}

	metrics.ChunkSubmissionsTotal.WithLabelValues("complete").Inc()
	s.promptForTitle(ctx, registered)

	return &SubmitChunkOutput{
		Complete: true,
		Offset:   newOffset,
		VideoID:  registered.ID,
	}, nil
}

// ResumeOffset returns the committed offset for filename.
func (s *transferService) ResumeOffset(filename string) int64 {
	return s.store.Offset(filename)
}

// promptForTitle asks the approver to name the new video. Delivery is
// best-effort; the transfer result does not depend on it.
func (s *transferService) promptForTitle(ctx context.Context, rec *model.VideoRecord) {
	if s.messenger == nil || s.chatID == 0 {
		return
	}

	text := fmt.Sprintf("New video received: %s (%s)\nReply to this message with a title.",
		rec.Filename, formatSize(rec.SizeBytes))

	messageID, err := s.messenger.Send(ctx, s.chatID, text, nil)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.NotifyError).Inc()
		slog.Error("failed to send title prompt",
			"video_id", rec.ID,
			"filename", rec.Filename,
			"error", err,
		)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.NotifySuccess).Inc()

	// The prompt's message id is how a later reply finds this record.
	if _, err := s.registry.Apply(ctx, rec.ID, func(r *model.VideoRecord) error {
		r.Chat = &model.ChatRef{ChatID: s.chatID, MessageID: messageID}
		return nil
	}); err != nil {
		slog.Error("failed to attach chat reference", "video_id", rec.ID, "error", err)
	}
}

func (s *transferService) fileLock(filename string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filename]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[filename] = lock
	}
	return lock
}

// formatSize renders a byte count for chat messages.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

package usecase

import (
	"context"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
)

// mockVideoRegistry provides a configurable mock for VideoRegistry.
type mockVideoRegistry struct {
	createOrReplaceFn func(ctx context.Context, rec *model.VideoRecord) (*model.VideoRecord, error)
	getFn             func(ctx context.Context, id string) (*model.VideoRecord, error)
	listFn            func(ctx context.Context) ([]*model.VideoRecord, error)
	applyFn           func(ctx context.Context, id string, fn func(*model.VideoRecord) error) (*model.VideoRecord, error)
	deleteFn          func(ctx context.Context, id string) (*model.VideoRecord, error)
	deleteAllFn       func(ctx context.Context) (int, error)
}

func (m *mockVideoRegistry) CreateOrReplace(ctx context.Context, rec *model.VideoRecord) (*model.VideoRecord, error) {
	if m.createOrReplaceFn != nil {
		return m.createOrReplaceFn(ctx, rec)
	}
	return rec, nil
}

func (m *mockVideoRegistry) Get(ctx context.Context, id string) (*model.VideoRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRegistry) List(ctx context.Context) ([]*model.VideoRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoRegistry) Apply(ctx context.Context, id string, fn func(*model.VideoRecord) error) (*model.VideoRecord, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, id, fn)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRegistry) Delete(ctx context.Context, id string) (*model.VideoRecord, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRegistry) DeleteAll(ctx context.Context) (int, error) {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return 0, nil
}

// recordRegistry wires a mockVideoRegistry around a single live record,
// applying mutation functions the way the real store does.
func recordRegistry(rec *model.VideoRecord) *mockVideoRegistry {
	return &mockVideoRegistry{
		getFn: func(_ context.Context, id string) (*model.VideoRecord, error) {
			if id != rec.ID {
				return nil, repository.ErrVideoNotFound
			}
			return rec.Clone(), nil
		},
		listFn: func(context.Context) ([]*model.VideoRecord, error) {
			return []*model.VideoRecord{rec.Clone()}, nil
		},
		applyFn: func(_ context.Context, id string, fn func(*model.VideoRecord) error) (*model.VideoRecord, error) {
			if id != rec.ID {
				return nil, repository.ErrVideoNotFound
			}
			working := rec.Clone()
			if err := fn(working); err != nil {
				return nil, err
			}
			*rec = *working
			return rec.Clone(), nil
		},
	}
}

// mockChunkStore provides a configurable mock for ChunkStore.
type mockChunkStore struct {
	appendFn   func(filename string, offset, totalSize int64, data []byte) (int64, error)
	offsetFn   func(filename string) int64
	finalizeFn func(filename string) (model.ChunkSession, string, error)
	abandonFn  func(filename string) error
	sessionsFn func() []model.ChunkSession
	restoreFn  func(sessions []model.ChunkSession)
}

func (m *mockChunkStore) Append(filename string, offset, totalSize int64, data []byte) (int64, error) {
	if m.appendFn != nil {
		return m.appendFn(filename, offset, totalSize, data)
	}
	return offset + int64(len(data)), nil
}

func (m *mockChunkStore) Offset(filename string) int64 {
	if m.offsetFn != nil {
		return m.offsetFn(filename)
	}
	return 0
}

func (m *mockChunkStore) Finalize(filename string) (model.ChunkSession, string, error) {
	if m.finalizeFn != nil {
		return m.finalizeFn(filename)
	}
	return model.ChunkSession{}, "", nil
}

func (m *mockChunkStore) Abandon(filename string) error {
	if m.abandonFn != nil {
		return m.abandonFn(filename)
	}
	return nil
}

func (m *mockChunkStore) Sessions() []model.ChunkSession {
	if m.sessionsFn != nil {
		return m.sessionsFn()
	}
	return nil
}

func (m *mockChunkStore) Restore(sessions []model.ChunkSession) {
	if m.restoreFn != nil {
		m.restoreFn(sessions)
	}
}

// mockPublishQueue provides a configurable mock for PublishQueue.
type mockPublishQueue struct {
	enqueuePublishFn      func(ctx context.Context, task repository.PublishTask) error
	consumePublishTasksFn func(ctx context.Context, handler func(task repository.PublishTask) error) error
	closeFn               func() error
}

func (m *mockPublishQueue) EnqueuePublish(ctx context.Context, task repository.PublishTask) error {
	if m.enqueuePublishFn != nil {
		return m.enqueuePublishFn(ctx, task)
	}
	return nil
}

func (m *mockPublishQueue) ConsumePublishTasks(ctx context.Context, handler func(task repository.PublishTask) error) error {
	if m.consumePublishTasksFn != nil {
		return m.consumePublishTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockPublishQueue) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

// mockMessenger provides a configurable mock for Messenger.
type mockMessenger struct {
	sendFn           func(ctx context.Context, chatID int64, text string, kb repository.Keyboard) (int, error)
	editFn           func(ctx context.Context, chatID int64, messageID int, text string, kb repository.Keyboard) error
	editCaptionFn    func(ctx context.Context, chatID int64, messageID int, caption string, kb repository.Keyboard) error
	answerCallbackFn func(ctx context.Context, callbackID, text string) error
}

func (m *mockMessenger) Send(ctx context.Context, chatID int64, text string, kb repository.Keyboard) (int, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, chatID, text, kb)
	}
	return 1, nil
}

func (m *mockMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string, kb repository.Keyboard) error {
	if m.editFn != nil {
		return m.editFn(ctx, chatID, messageID, text, kb)
	}
	return nil
}

func (m *mockMessenger) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb repository.Keyboard) error {
	if m.editCaptionFn != nil {
		return m.editCaptionFn(ctx, chatID, messageID, caption, kb)
	}
	return nil
}

func (m *mockMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if m.answerCallbackFn != nil {
		return m.answerCallbackFn(ctx, callbackID, text)
	}
	return nil
}

// mockPlatform provides a configurable mock for Platform.
type mockPlatform struct {
	uploadFn              func(ctx context.Context, req repository.PublishRequest, progress func(float64)) (string, error)
	rejectionReasonFn     func(ctx context.Context, externalID string) (string, error)
	processingSucceededFn func(ctx context.Context, externalID string) (bool, error)
}

func (m *mockPlatform) Upload(ctx context.Context, req repository.PublishRequest, progress func(float64)) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, req, progress)
	}
	return "ext-1", nil
}

func (m *mockPlatform) RejectionReason(ctx context.Context, externalID string) (string, error) {
	if m.rejectionReasonFn != nil {
		return m.rejectionReasonFn(ctx, externalID)
	}
	return "", nil
}

func (m *mockPlatform) ProcessingSucceeded(ctx context.Context, externalID string) (bool, error) {
	if m.processingSucceededFn != nil {
		return m.processingSucceededFn(ctx, externalID)
	}
	return true, nil
}

// mockArchiver provides a configurable mock for Archiver.
type mockArchiver struct {
	archiveFn func(ctx context.Context, localPath, key string) error
}

func (m *mockArchiver) Archive(ctx context.Context, localPath, key string) error {
	if m.archiveFn != nil {
		return m.archiveFn(ctx, localPath, key)
	}
	return nil
}

// mockUpdateDedup provides a configurable mock for UpdateDedup.
type mockUpdateDedup struct {
	seenFn func(ctx context.Context, updateID int64) (bool, error)
}

func (m *mockUpdateDedup) Seen(ctx context.Context, updateID int64) (bool, error) {
	if m.seenFn != nil {
		return m.seenFn(ctx, updateID)
	}
	return false, nil
}

// mockTranscoder provides a configurable mock for transcoder.Transcoder.
type mockTranscoder struct {
	isPortraitFn func(ctx context.Context, inputPath string) (bool, error)
	rotateFn     func(ctx context.Context, inputPath string) (string, error)
}

func (m *mockTranscoder) IsPortrait(ctx context.Context, inputPath string) (bool, error) {
	if m.isPortraitFn != nil {
		return m.isPortraitFn(ctx, inputPath)
	}
	return false, nil
}

func (m *mockTranscoder) Rotate(ctx context.Context, inputPath string) (string, error) {
	if m.rotateFn != nil {
		return m.rotateFn(ctx, inputPath)
	}
	return inputPath, nil
}

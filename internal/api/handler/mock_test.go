package handler

import (
	"context"
	"time"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/usecase"
)

// mockTransferService provides a configurable mock for TransferService.
type mockTransferService struct {
	submitChunkFn  func(ctx context.Context, input usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error)
	resumeOffsetFn func(filename string) int64
}

func (m *mockTransferService) SubmitChunk(ctx context.Context, input usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error) {
	if m.submitChunkFn != nil {
		return m.submitChunkFn(ctx, input)
	}
	return &usecase.SubmitChunkOutput{}, nil
}

func (m *mockTransferService) ResumeOffset(filename string) int64 {
	if m.resumeOffsetFn != nil {
		return m.resumeOffsetFn(filename)
	}
	return 0
}

// mockApprovalService provides a configurable mock for ApprovalService.
type mockApprovalService struct {
	handleUpdateFn      func(ctx context.Context, u usecase.ChatUpdate) error
	notifyTitlePromptFn func(ctx context.Context, videoID string) error
	deleteVideoFn       func(ctx context.Context, videoID string) (*model.VideoRecord, error)
	cleanupAllFn        func(ctx context.Context) (int, error)
	cleanupStaleFn      func(ctx context.Context, olderThan time.Duration) (int, error)
}

func (m *mockApprovalService) HandleUpdate(ctx context.Context, u usecase.ChatUpdate) error {
	if m.handleUpdateFn != nil {
		return m.handleUpdateFn(ctx, u)
	}
	return nil
}

func (m *mockApprovalService) NotifyTitlePrompt(ctx context.Context, videoID string) error {
	if m.notifyTitlePromptFn != nil {
		return m.notifyTitlePromptFn(ctx, videoID)
	}
	return nil
}

func (m *mockApprovalService) DeleteVideo(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	if m.deleteVideoFn != nil {
		return m.deleteVideoFn(ctx, videoID)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockApprovalService) CleanupAll(ctx context.Context) (int, error) {
	if m.cleanupAllFn != nil {
		return m.cleanupAllFn(ctx)
	}
	return 0, nil
}

func (m *mockApprovalService) CleanupStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if m.cleanupStaleFn != nil {
		return m.cleanupStaleFn(ctx, olderThan)
	}
	return 0, nil
}

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

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/usecase"
)

type VideoResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Title      string `json:"title,omitempty"`
	Privacy    string `json:"privacy,omitempty"`
	State      string `json:"state"`
	SizeBytes  int64  `json:"size_bytes"`
	Duration   string `json:"duration,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type StatusResponse struct {
	Total  int            `json:"total"`
	States map[string]int `json:"states"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

// VideoHandler handles the video lifecycle endpoints.
type VideoHandler struct {
	registry repository.VideoRegistry
	approval usecase.ApprovalService
	staleAge time.Duration
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(registry repository.VideoRegistry, approval usecase.ApprovalService, staleAge time.Duration) *VideoHandler {
	return &VideoHandler{
		registry: registry,
		approval: approval,
		staleAge: staleAge,
	}
}

// List handles GET /v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]VideoResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toVideoResponse(rec))
	}
	JSON(w, http.StatusOK, out)
}

// Status handles GET /v1/status
func (h *VideoHandler) Status(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	states := make(map[string]int)
	for _, rec := range records {
		states[rec.State.String()]++
	}
	JSON(w, http.StatusOK, StatusResponse{Total: len(records), States: states})
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, err := h.approval.DeleteVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponse(rec))
}

// Notify handles POST /v1/videos/{id}/notify
func (h *VideoHandler) Notify(w http.ResponseWriter, r *http.Request) {
	if err := h.approval.NotifyTitlePrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Cleanup handles POST /v1/videos/cleanup
func (h *VideoHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.approval.CleanupAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}

// CleanupStale handles POST /v1/videos/cleanup/stale
func (h *VideoHandler) CleanupStale(w http.ResponseWriter, r *http.Request) {
	removed, err := h.approval.CleanupStale(r.Context(), h.staleAge)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, repository.ErrPublishInProgress):
		Error(w, http.StatusConflict, "publish_in_progress", "Publish must finish before deletion")
	case errors.Is(err, model.ErrInvalidTransition):
		Error(w, http.StatusConflict, "invalid_state", "Video is not in a state that allows this operation")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toVideoResponse(v *model.VideoRecord) VideoResponse {
	return VideoResponse{
		ID:         v.ID,
		Filename:   v.Filename,
		Title:      v.Title,
		Privacy:    string(v.Privacy),
		State:      v.State.String(),
		SizeBytes:  v.SizeBytes,
		Duration:   v.Duration,
		ExternalID: v.ExternalID,
		FailReason: v.FailReason,
		CreatedAt:  v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/usecase"
)

// Chunk uploads carry their metadata in headers; the body is raw bytes.
const (
	headerFilename     = "X-Filename"
	headerTotalSize    = "X-Total-Size"
	headerOffset       = "X-Offset"
	headerDuration     = "X-Video-Duration"
	headerCreationTime = "X-Video-Creation-Time"
)

type ChunkResponse struct {
	Status  string `json:"status"`
	Offset  int64  `json:"offset,omitempty"`
	VideoID string `json:"video_id,omitempty"`
}

type OffsetMismatchResponse struct {
	Error          string `json:"error"`
	ExpectedOffset int64  `json:"expected_offset"`
}

type ResumeResponse struct {
	Offset int64 `json:"offset"`
}

// UploadHandler handles the resumable chunk-transfer endpoints.
type UploadHandler struct {
	svc          usecase.TransferService
	maxChunkSize int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(svc usecase.TransferService, maxChunkSize int64) *UploadHandler {
	return &UploadHandler{svc: svc, maxChunkSize: maxChunkSize}
}

// SubmitChunk handles POST /upload/chunk
func (h *UploadHandler) SubmitChunk(w http.ResponseWriter, r *http.Request) {
	filename := r.Header.Get(headerFilename)
	if filename == "" {
		Error(w, http.StatusBadRequest, "missing_filename", "X-Filename header is required")
		return
	}

	totalSize, err := strconv.ParseInt(r.Header.Get(headerTotalSize), 10, 64)
	if err != nil || totalSize <= 0 {
		Error(w, http.StatusBadRequest, "invalid_total_size", "X-Total-Size must be a positive integer")
		return
	}

	offset, err := strconv.ParseInt(r.Header.Get(headerOffset), 10, 64)
	if err != nil || offset < 0 {
		Error(w, http.StatusBadRequest, "invalid_offset", "X-Offset must be a non-negative integer")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxChunkSize+1))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_body", "Could not read chunk body")
		return
	}
	if int64(len(data)) > h.maxChunkSize {
		Error(w, http.StatusRequestEntityTooLarge, "chunk_too_large", "Chunk exceeds the size limit")
		return
	}
	if len(data) == 0 {
		Error(w, http.StatusBadRequest, "empty_chunk", "Chunk body cannot be empty")
		return
	}

	out, err := h.svc.SubmitChunk(r.Context(), usecase.SubmitChunkInput{
		Filename:   filename,
		Offset:     offset,
		TotalSize:  totalSize,
		Data:       data,
		Duration:   r.Header.Get(headerDuration),
		RecordedAt: r.Header.Get(headerCreationTime),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if out.Complete {
		JSON(w, http.StatusOK, ChunkResponse{Status: "complete", VideoID: out.VideoID})
		return
	}
	JSON(w, http.StatusOK, ChunkResponse{Status: "partial", Offset: out.Offset})
}

// ResumeStatus handles GET /upload/status
func (h *UploadHandler) ResumeStatus(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		Error(w, http.StatusBadRequest, "missing_filename", "filename query parameter is required")
		return
	}

	JSON(w, http.StatusOK, ResumeResponse{Offset: h.svc.ResumeOffset(filename)})
}

func (h *UploadHandler) handleServiceError(w http.ResponseWriter, err error) {
	var mismatch *repository.OffsetMismatchError
	switch {
	case errors.As(err, &mismatch):
		JSON(w, http.StatusConflict, OffsetMismatchResponse{
			Error:          "offset_mismatch",
			ExpectedOffset: mismatch.Expected,
		})
	case errors.Is(err, repository.ErrTransferIO):
		Error(w, http.StatusInternalServerError, "storage_error", "Could not persist chunk")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

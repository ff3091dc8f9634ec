package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/usecase"
)

func chunkRequest(body []byte, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/upload/chunk", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestUploadHandler_SubmitChunk(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		headers        map[string]string
		setupMock      func(m *mockTransferService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "partial chunk",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "0",
			},
			setupMock: func(m *mockTransferService) {
				m.submitChunkFn = func(_ context.Context, input usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error) {
					return &usecase.SubmitChunkOutput{Offset: 100}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp ChunkResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Status != "partial" || resp.Offset != 100 {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name: "final chunk returns video id",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "200",
			},
			setupMock: func(m *mockTransferService) {
				m.submitChunkFn = func(context.Context, usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error) {
					return &usecase.SubmitChunkOutput{Complete: true, Offset: 300, VideoID: "vid-1"}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp ChunkResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Status != "complete" || resp.VideoID != "vid-1" {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name: "offset mismatch reports expected offset",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "100",
			},
			setupMock: func(m *mockTransferService) {
				m.submitChunkFn = func(context.Context, usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error) {
					return nil, &repository.OffsetMismatchError{Filename: "clip.mov", Expected: 200}
				}
			},
			wantStatusCode: http.StatusConflict,
			checkResponse: func(t *testing.T, body []byte) {
				var resp OffsetMismatchResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Error != "offset_mismatch" || resp.ExpectedOffset != 200 {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name: "storage failure",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "0",
			},
			setupMock: func(m *mockTransferService) {
				m.submitChunkFn = func(context.Context, usecase.SubmitChunkInput) (*usecase.SubmitChunkOutput, error) {
					return nil, repository.ErrTransferIO
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "missing filename",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Total-Size": "300",
				"X-Offset":     "0",
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "negative offset",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "-5",
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "non-numeric total size",
			body: make([]byte, 100),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "big",
				"X-Offset":     "0",
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "empty body",
			body: nil,
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "300",
				"X-Offset":     "0",
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "oversized chunk",
			body: make([]byte, 2048),
			headers: map[string]string{
				"X-Filename":   "clip.mov",
				"X-Total-Size": "4096",
				"X-Offset":     "0",
			},
			wantStatusCode: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTransferService{}
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			h := NewUploadHandler(svc, 1024)

			rr := httptest.NewRecorder()
			h.SubmitChunk(rr, chunkRequest(tt.body, tt.headers))

			if rr.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatusCode, rr.Code, rr.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rr.Body.Bytes())
			}
		})
	}
}

func TestUploadHandler_ResumeStatus(t *testing.T) {
	svc := &mockTransferService{
		resumeOffsetFn: func(filename string) int64 {
			if filename == "clip.mov" {
				return 200
			}
			return 0
		},
	}
	h := NewUploadHandler(svc, 1024)

	t.Run("known file returns committed offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/upload/status?filename=clip.mov", nil)
		rr := httptest.NewRecorder()
		h.ResumeStatus(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp ResumeResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if resp.Offset != 200 {
			t.Errorf("expected offset 200, got %d", resp.Offset)
		}
	})

	t.Run("unknown file returns zero", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/upload/status?filename=other.mov", nil)
		rr := httptest.NewRecorder()
		h.ResumeStatus(rr, req)

		var resp ResumeResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if resp.Offset != 0 {
			t.Errorf("expected offset 0, got %d", resp.Offset)
		}
	})

	t.Run("missing filename is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/upload/status", nil)
		rr := httptest.NewRecorder()
		h.ResumeStatus(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})
}

package handler

import (
	"net/http"

	"github.com/vidgate/vidgate/internal/domain/repository"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

// HealthHandler reports liveness plus the number of tracked videos.
type HealthHandler struct {
	registry repository.VideoRegistry
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(registry repository.VideoRegistry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	pending := 0
	if records, err := h.registry.List(r.Context()); err == nil {
		pending = len(records)
	}
	JSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Pending: pending,
	})
}

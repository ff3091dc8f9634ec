package repository

import (
	"context"

	"github.com/vidgate/vidgate/internal/domain/model"
)

// PublishRequest carries everything the hosting platform needs for one
// resumable upload.
type PublishRequest struct {
	Path        string
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     model.Privacy
}

// Platform models the hosting platform's resumable-upload and polling
// contract. The platform itself is an external collaborator.
type Platform interface {
	// Upload feeds the file to the platform in fixed-size segments and
	// returns the external video id. progress receives the platform's
	// fractional progress in [0, 1] and may be called from the transport's
	// goroutine.
	Upload(ctx context.Context, req PublishRequest, progress func(fraction float64)) (string, error)

	// RejectionReason reports why the platform declined the video, or ""
	// when it was accepted.
	RejectionReason(ctx context.Context, externalID string) (string, error)

	// ProcessingSucceeded reports whether platform-side processing has
	// finished successfully.
	ProcessingSucceeded(ctx context.Context, externalID string) (bool, error)
}

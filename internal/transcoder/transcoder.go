package transcoder

import (
	"context"
)

// Transcoder defines the interface for video orientation handling.
// Implementations inspect and rewrite video files before upload.
type Transcoder interface {
	// IsPortrait reports whether the video's display dimensions are taller
	// than wide, taking any rotation metadata into account.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - inputPath: Absolute path to the source video file
	//
	// Returns:
	//   - true when the effective orientation is portrait
	//   - error if the file cannot be probed
	IsPortrait(ctx context.Context, inputPath string) (bool, error)

	// Rotate rewrites the video rotated 90 degrees clockwise into a
	// landscape orientation and returns the path of the rotated file.
	//
	// The returned path is a sibling of the input; the caller decides
	// whether to replace the original.
	Rotate(ctx context.Context, inputPath string) (string, error)
}

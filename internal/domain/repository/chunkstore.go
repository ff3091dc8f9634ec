package repository

import (
	"github.com/vidgate/vidgate/internal/domain/model"
)

// ChunkStore assembles files from chunks on disk and tracks a single
// committed-offset counter per filename.
//
// Append contract: with no session for filename, offset 0 starts a new
// session (truncating any stale partial of the same name) and offset > 0
// fails with *OffsetMismatchError{Expected: 0}. With a session, the call
// succeeds only when offset equals the committed offset; on success the
// committed offset advances by len(data) and is returned. On mismatch the
// current committed offset is reported so the caller can reseek, which
// makes append idempotent under retry.
type ChunkStore interface {
	Append(filename string, offset, totalSize int64, data []byte) (int64, error)

	// Offset returns the committed offset for filename, 0 when no session
	// exists. Used by senders resuming after their own restart.
	Offset(filename string) int64

	// Finalize closes a complete session and returns it together with the
	// absolute path of the assembled file. The file itself is kept.
	// Returns ErrSessionIncomplete if bytes are still outstanding.
	Finalize(filename string) (model.ChunkSession, string, error)

	// Abandon drops a session and removes its partial file.
	Abandon(filename string) error

	// Sessions returns a snapshot of all in-flight sessions.
	Sessions() []model.ChunkSession

	// Restore re-seeds sessions from a persisted snapshot. Entries whose
	// recorded offset disagrees with the partial file on disk are dropped,
	// forcing that filename to restart from offset 0.
	Restore(sessions []model.ChunkSession)
}

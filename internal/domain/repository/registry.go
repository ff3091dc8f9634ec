package repository

import (
	"context"

	"github.com/vidgate/vidgate/internal/domain/model"
)

// VideoRegistry owns the live record set. All mutation funnels through its
// single-writer discipline: exactly one transition is applied per call, and
// callers must never assume read-then-write atomicity outside it.
// Implementations persist a snapshot after every mutating operation.
type VideoRegistry interface {
	// CreateOrReplace registers a completed transfer. If a live record
	// already holds the same filename, its storage fields are replaced in
	// place and its identity (video id) is preserved; the record returns to
	// AWAITING_TITLE. The returned copy carries the effective id.
	CreateOrReplace(ctx context.Context, rec *model.VideoRecord) (*model.VideoRecord, error)

	// Get returns a read snapshot of a record.
	// Returns ErrVideoNotFound if the id names no record.
	Get(ctx context.Context, id string) (*model.VideoRecord, error)

	// List returns read snapshots of every record.
	List(ctx context.Context) ([]*model.VideoRecord, error)

	// Apply runs fn against the record under the registry lock and persists
	// on success. fn returning an error leaves the record untouched.
	// Returns the updated snapshot, or ErrVideoNotFound.
	Apply(ctx context.Context, id string, fn func(*model.VideoRecord) error) (*model.VideoRecord, error)

	// Delete removes a record and unlinks its backing file.
	// Returns ErrPublishInProgress while the record is PUBLISHING and
	// ErrVideoNotFound for unknown ids. The removed snapshot is returned.
	Delete(ctx context.Context, id string) (*model.VideoRecord, error)

	// DeleteAll removes every record not currently PUBLISHING, unlinking
	// backing files. Returns the number of records removed.
	DeleteAll(ctx context.Context) (int, error)
}

// SessionJournal receives advisory chunk-session offsets for inclusion in
// the persisted snapshot. Recorded offsets are best-effort on reload: a
// restart is equivalent to session loss, not corruption.
type SessionJournal interface {
	RecordSession(s model.ChunkSession)
	ForgetSession(filename string)
}

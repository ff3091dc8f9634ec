// Package state persists the live video-record set and advisory
// chunk-session offsets as a single JSON snapshot on disk.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/infrastructure/metrics"
)

// snapshot is the on-disk layout. Session offsets are advisory on reload.
type snapshot struct {
	Videos   map[string]*model.VideoRecord `json:"videos"`
	Sessions map[string]model.ChunkSession `json:"sessions"`
}

// Store implements repository.VideoRegistry and repository.SessionJournal
// over one coarse mutex. Exactly one transition is applied per call; a
// snapshot is written after every mutating operation so a restart can
// reconstruct the registry.
type Store struct {
	path string

	mu       sync.Mutex
	videos   map[string]*model.VideoRecord
	sessions map[string]model.ChunkSession
}

// Compile-time verification of the registry and journal contracts.
var (
	_ repository.VideoRegistry  = (*Store)(nil)
	_ repository.SessionJournal = (*Store)(nil)
)

// NewStore creates an empty store persisting to path.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		videos:   make(map[string]*model.VideoRecord),
		sessions: make(map[string]model.ChunkSession),
	}
}

// Load reads the snapshot from disk, if one exists, and returns the
// recorded chunk sessions so the chunk store can validate and re-seed them.
// A missing snapshot is not an error.
func (s *Store) Load() ([]model.ChunkSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range snap.Videos {
		if rec == nil || !rec.State.IsValid() {
			slog.Warn("dropping malformed record from snapshot", slog.String("video_id", id))
			continue
		}
		// A publish interrupted by the restart never reached a terminal
		// state; surface it as FAILED so the approver can act on it.
		if rec.State == model.StatePublishing {
			rec.State = model.StateFailed
			rec.FailReason = "interrupted by restart"
		}
		s.videos[id] = rec
	}

	sessions := make([]model.ChunkSession, 0, len(snap.Sessions))
	for name, sess := range snap.Sessions {
		sess.Filename = name
		s.sessions[name] = sess
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// CreateOrReplace registers a completed transfer, replacing the storage
// fields of an existing live record for the same filename in place.
func (s *Store) CreateOrReplace(ctx context.Context, rec *model.VideoRecord) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.videos {
		if existing.Filename == rec.Filename && existing.IsLive() {
			kept := rec.Clone()
			kept.ID = existing.ID
			s.videos[kept.ID] = kept
			s.persistLocked()
			return kept.Clone(), nil
		}
	}

	stored := rec.Clone()
	s.videos[stored.ID] = stored
	s.persistLocked()
	return stored.Clone(), nil
}

// Get returns a read snapshot of one record.
func (s *Store) Get(ctx context.Context, id string) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.videos[id]
	if !ok {
		return nil, repository.ErrVideoNotFound
	}
	return rec.Clone(), nil
}

// List returns read snapshots of every record.
func (s *Store) List(ctx context.Context) ([]*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.VideoRecord, 0, len(s.videos))
	for _, rec := range s.videos {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Apply runs fn against the record under the store lock. fn failing leaves
// the record untouched; success persists and returns the updated snapshot.
func (s *Store) Apply(ctx context.Context, id string, fn func(*model.VideoRecord) error) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.videos[id]
	if !ok {
		return nil, repository.ErrVideoNotFound
	}

	updated := rec.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	if updated.State != rec.State {
		metrics.StateTransitionsTotal.WithLabelValues(rec.State.String(), updated.State.String()).Inc()
	}
	s.videos[id] = updated
	s.persistLocked()
	return updated.Clone(), nil
}

// Delete removes a record and unlinks its backing file. Rejected while a
// publish is in flight.
func (s *Store) Delete(ctx context.Context, id string) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.videos[id]
	if !ok {
		return nil, repository.ErrVideoNotFound
	}
	if rec.State == model.StatePublishing {
		return nil, repository.ErrPublishInProgress
	}

	s.removeLocked(rec)
	s.persistLocked()

	gone := rec.Clone()
	gone.State = model.StateDeleted
	return gone, nil
}

// DeleteAll removes every record not currently PUBLISHING.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, rec := range s.videos {
		if rec.State == model.StatePublishing {
			continue
		}
		s.removeLocked(rec)
		removed++
	}
	if removed > 0 {
		s.persistLocked()
	}
	return removed, nil
}

// RecordSession notes an advisory chunk-session offset in the snapshot.
func (s *Store) RecordSession(sess model.ChunkSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Filename] = sess
	s.persistLocked()
}

// ForgetSession drops a chunk session from the snapshot.
func (s *Store) ForgetSession(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, filename)
	s.persistLocked()
}

// removeLocked unlinks the backing file and drops the record. Callers hold
// the lock.
func (s *Store) removeLocked(rec *model.VideoRecord) {
	if rec.StoragePath != "" {
		if err := os.Remove(rec.StoragePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to unlink video file",
				slog.String("video_id", rec.ID),
				slog.String("path", rec.StoragePath),
				slog.String("error", err.Error()),
			)
		}
	}
	delete(s.videos, rec.ID)
}

// persistLocked writes the snapshot atomically (temp file + rename).
// Durability is flush-after-mutation, best-effort: a failed write is
// logged, not propagated, so a full disk cannot wedge the registry.
func (s *Store) persistLocked() {
	snap := snapshot{
		Videos:   s.videos,
		Sessions: s.sessions,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("failed to encode state snapshot", slog.String("error", err.Error()))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("failed to write state snapshot", slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("failed to replace state snapshot", slog.String("error", err.Error()))
	}
}

// Package chunkstore assembles uploaded files from offset-validated chunks
// on local disk.
package chunkstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vidgate/vidgate/internal/domain/model"
	"github.com/vidgate/vidgate/internal/domain/repository"
)

// Disk implements repository.ChunkStore backed by a single spool directory.
//
// The internal mutex guards only the session map; byte appends run outside
// it. Callers serialize appends per filename (the transfer coordinator
// holds a per-filename lock across each submission), so a given partial
// file never sees concurrent writers.
type Disk struct {
	dir     string
	journal repository.SessionJournal

	mu       sync.Mutex
	sessions map[string]*model.ChunkSession
}

// Compile-time verification that Disk implements repository.ChunkStore.
var _ repository.ChunkStore = (*Disk)(nil)

// NewDisk creates a chunk store rooted at dir, creating it if needed.
// journal may be nil when advisory session persistence is not wanted.
func NewDisk(dir string, journal repository.SessionJournal) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Disk{
		dir:      dir,
		journal:  journal,
		sessions: make(map[string]*model.ChunkSession),
	}, nil
}

// Append commits one chunk. See repository.ChunkStore for the offset
// contract.
func (d *Disk) Append(filename string, offset, totalSize int64, data []byte) (int64, error) {
	name := sanitize(filename)

	d.mu.Lock()
	sess, exists := d.sessions[name]
	if exists && offset != sess.Offset {
		expected := sess.Offset
		d.mu.Unlock()
		return 0, &repository.OffsetMismatchError{Filename: name, Expected: expected}
	}
	if !exists && offset != 0 {
		d.mu.Unlock()
		return 0, &repository.OffsetMismatchError{Filename: name, Expected: 0}
	}
	if !exists {
		sess = &model.ChunkSession{Filename: name, TotalSize: totalSize}
		d.sessions[name] = sess
	}
	d.mu.Unlock()

	if err := d.writeChunk(name, offset == 0, data); err != nil {
		return 0, err
	}

	d.mu.Lock()
	sess.Offset += int64(len(data))
	sess.TotalSize = totalSize
	committed := sess.Offset
	d.mu.Unlock()

	if d.journal != nil {
		d.journal.RecordSession(model.ChunkSession{Filename: name, Offset: committed, TotalSize: totalSize})
	}
	return committed, nil
}

// writeChunk appends bytes to the partial file, truncating first when the
// session starts over.
func (d *Disk) writeChunk(name string, truncate bool, data []byte) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	f, err := os.OpenFile(d.path(name), flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", repository.ErrTransferIO, name, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", repository.ErrTransferIO, name, err)
	}
	return nil
}

// Offset returns the committed offset for filename, 0 when no session exists.
func (d *Disk) Offset(filename string) int64 {
	name := sanitize(filename)

	d.mu.Lock()
	defer d.mu.Unlock()
	if sess, ok := d.sessions[name]; ok {
		return sess.Offset
	}
	return 0
}

// Finalize closes a complete session, keeping the assembled file.
func (d *Disk) Finalize(filename string) (model.ChunkSession, string, error) {
	name := sanitize(filename)

	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[name]
	if !ok || !sess.Complete() {
		return model.ChunkSession{}, "", repository.ErrSessionIncomplete
	}
	delete(d.sessions, name)

	if d.journal != nil {
		d.journal.ForgetSession(name)
	}
	return *sess, d.path(name), nil
}

// Abandon drops a session and removes its partial file.
func (d *Disk) Abandon(filename string) error {
	name := sanitize(filename)

	d.mu.Lock()
	delete(d.sessions, name)
	d.mu.Unlock()

	if d.journal != nil {
		d.journal.ForgetSession(name)
	}

	if err := os.Remove(d.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", repository.ErrTransferIO, name, err)
	}
	return nil
}

// Sessions returns a snapshot of all in-flight sessions.
func (d *Disk) Sessions() []model.ChunkSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.ChunkSession, 0, len(d.sessions))
	for _, sess := range d.sessions {
		out = append(out, *sess)
	}
	return out
}

// Restore re-seeds sessions from a persisted snapshot. Recorded offsets are
// advisory: an entry is kept only when the partial file on disk is exactly
// as long as the snapshot says, otherwise the filename restarts at 0.
func (d *Disk) Restore(sessions []model.ChunkSession) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sess := range sessions {
		name := sanitize(sess.Filename)
		info, err := os.Stat(d.path(name))
		if err != nil || info.Size() != sess.Offset {
			slog.Warn("dropping stale chunk session",
				slog.String("filename", name),
				slog.Int64("recorded_offset", sess.Offset),
			)
			continue
		}
		restored := sess
		restored.Filename = name
		d.sessions[name] = &restored
	}
}

func (d *Disk) path(name string) string {
	return filepath.Join(d.dir, name)
}

// sanitize strips any path components a sender might smuggle in.
func sanitize(filename string) string {
	return filepath.Base(filepath.Clean(filename))
}

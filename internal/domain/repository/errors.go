package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrVideoNotFound is returned when a video id names no known record.
	ErrVideoNotFound = errors.New("video not found")

	// ErrPublishInProgress is returned when a delete targets a record whose
	// publish is still running. The publish must reach a terminal state first.
	ErrPublishInProgress = errors.New("publish in progress")

	// ErrSessionIncomplete is returned when finalize is requested before
	// every declared byte has been committed.
	ErrSessionIncomplete = errors.New("chunk session incomplete")

	// ErrTransferIO wraps local disk failures while committing chunk bytes.
	// The chunk is rejected; the sender retries with backoff.
	ErrTransferIO = errors.New("transfer I/O failure")
)

// OffsetMismatchError is returned when a chunk arrives at an offset other
// than the committed one. Expected carries the offset the sender must
// reseek to before resubmitting.
type OffsetMismatchError struct {
	Filename string
	Expected int64
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("offset mismatch for %s: expected %d", e.Filename, e.Expected)
}

package repository

import "context"

// Archiver copies a published file to long-term object storage before the
// local copy is released.
type Archiver interface {
	Archive(ctx context.Context, localPath, key string) error
}

package repository

import "context"

// UpdateDedup remembers webhook update ids so retried deliveries of the
// same update are dropped before they reach the approval flow. State
// checks inside the registry remain the idempotency backstop; this guard
// only saves the duplicate from re-rendering chat prompts.
type UpdateDedup interface {
	// Seen records updateID and reports whether it was already present.
	Seen(ctx context.Context, updateID int64) (bool, error)
}

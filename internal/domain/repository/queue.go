package repository

import "context"

// PublishTask asks the publish worker to carry one PUBLISHING record
// through the hosting platform.
type PublishTask struct {
	VideoID string `json:"video_id"`
}

// PublishQueue decouples approval confirmation from the multi-minute
// publish operation. The triggering request returns as soon as the task is
// enqueued.
type PublishQueue interface {
	// EnqueuePublish submits a task for background processing.
	EnqueuePublish(ctx context.Context, task PublishTask) error

	// ConsumePublishTasks delivers tasks to handler until ctx is cancelled
	// or the underlying channel closes. A nil handler result acknowledges
	// the task; an error discards it (the worker never retries a publish,
	// a new confirmation re-enqueues).
	ConsumePublishTasks(ctx context.Context, handler func(task PublishTask) error) error

	Close() error
}

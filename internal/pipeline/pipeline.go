// Package pipeline moves ML tasks from story creation through the broker
// to the processors that run them, keeping one status row per task.
package pipeline

import (
	"context"
	"errors"
	"time"

	"commonthread/internal/domain/mltask"
)

var (
	// ErrNoContent means the story has neither audio nor text to process.
	ErrNoContent = errors.New("story has no audio or text content")
	// ErrEnqueueFailed wraps broker failures after the task rows committed.
	ErrEnqueueFailed = errors.New("failed to enqueue ml tasks")
	// ErrMalformedMessage marks a delivery that is left unacknowledged.
	ErrMalformedMessage = errors.New("malformed task message")
)

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type StatusStore interface {
	UpsertStatus(ctx context.Context, scope mltask.Scope, status mltask.Status) (*mltask.Task, error)
}

type StaleFailer interface {
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskProcessor runs one task to completion. A returned error marks the
// task failed; it is never retried automatically.
type TaskProcessor interface {
	Process(ctx context.Context, msg mltask.Message) error
}

const (
	errFailedInitTasksFmt = "failed to initialize ml tasks: %w"
	errFailedEncodeFmt    = "failed to encode %s message: %w"
	errFailedSendFmt      = "%s: %w"
	errFailedStatusFmt    = "failed to set %s task to %s: %w"
	errFailedAckFmt       = "failed to acknowledge %s: %w"
	errWrapFmt            = "%w: %w"
	msgTasksEnqueued      = "ml tasks enqueued"
	msgEnqueueFailed      = "ml task enqueue failed"
	msgMalformedMessage   = "dropping malformed task message"
	msgUnknownTaskType    = "acknowledging task with unknown type"
	msgTaskTargetGone     = "task target no longer exists"
	msgTaskStarted        = "ml task started"
	msgTaskCompleted      = "ml task completed"
	msgTaskFailed         = "ml task failed"
	msgHandleFailed       = "task message handling failed"
	msgReceiveFailed      = "receive failed"
	msgWorkerStarted      = "ml worker started"
	msgWorkerStopped      = "ml worker stopped"
	msgReaperFailed       = "stale task reap failed"
	msgReapedTasks        = "marked stale ml tasks failed"
	msgLambdaRecordFailed = "lambda record failed"
	defaultReceiveBackoff = 5 * time.Second
	defaultStaleAfter     = time.Hour
	defaultReapInterval   = 10 * time.Minute
)

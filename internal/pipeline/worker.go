package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/queue"
	apperrors "commonthread/pkg/errors"

	"github.com/rs/zerolog"
)

// Worker consumes task messages and dispatches them to the processor
// registered for their type.
type Worker struct {
	receiver   queue.Receiver
	tasks      StatusStore
	processors map[mltask.TaskType]TaskProcessor
	log        zerolog.Logger
	backoff    time.Duration
}

// NewWorker copies processors; later changes to the map are not seen.
func NewWorker(receiver queue.Receiver, tasks StatusStore, processors map[mltask.TaskType]TaskProcessor, log zerolog.Logger) *Worker {
	p := make(map[mltask.TaskType]TaskProcessor, len(processors))
	for k, v := range processors {
		p[k] = v
	}
	return &Worker{
		receiver:   receiver,
		tasks:      tasks,
		processors: p,
		log:        log,
		backoff:    defaultReceiveBackoff,
	}
}

// Run long-polls until ctx is canceled. Receive errors are logged and
// retried after a backoff.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg(msgWorkerStarted)
	defer w.log.Info().Msg(msgWorkerStopped)

	for {
		if ctx.Err() != nil {
			return nil
		}

		deliveries, err := w.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error().Err(err).Msg(msgReceiveFailed)
			if errors.Is(err, queue.ErrClosed) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
			continue
		}

		for _, d := range deliveries {
			if err := w.HandleMessage(ctx, d); err != nil {
				w.log.Error().Err(err).Str("message_id", d.ID).Msg(msgHandleFailed)
			}
		}
	}
}

// HandleMessage processes one delivery and acknowledges it unless the body
// is malformed or a status write failed.
func (w *Worker) HandleMessage(ctx context.Context, d queue.Delivery) error {
	if err := w.process(ctx, d.Body); err != nil {
		return err
	}
	if err := w.receiver.Ack(ctx, d); err != nil {
		return fmt.Errorf(errFailedAckFmt, d.ID, err)
	}
	return nil
}

// process returns nil when the message is done with, whatever the task
// outcome. A non-nil error means the broker should redeliver it.
func (w *Worker) process(ctx context.Context, body []byte) error {
	msg, err := mltask.DecodeMessage(body)
	if err != nil {
		w.log.Error().Err(err).Msg(msgMalformedMessage)
		return fmt.Errorf(errWrapFmt, ErrMalformedMessage, err)
	}

	log := w.log.With().Str("job_id", msg.JobID).Str("task_type", string(msg.TaskType)).Logger()

	processor, ok := w.processors[msg.TaskType]
	if !ok {
		log.Warn().Msg(msgUnknownTaskType)
		return nil
	}

	scope := msg.Scope()
	if err := scope.Validate(); err != nil {
		log.Error().Err(err).Msg(msgMalformedMessage)
		return fmt.Errorf(errWrapFmt, ErrMalformedMessage, err)
	}

	if _, err := w.tasks.UpsertStatus(ctx, scope, mltask.StatusProcessing); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Err(err).Msg(msgTaskTargetGone)
			return nil
		}
		return fmt.Errorf(errFailedStatusFmt, msg.TaskType, mltask.StatusProcessing, err)
	}
	log.Info().Msg(msgTaskStarted)

	final := mltask.StatusCompleted
	if err := processor.Process(ctx, msg); err != nil {
		final = mltask.StatusFailed
		log.Error().Err(err).Msg(msgTaskFailed)
	}

	if _, err := w.tasks.UpsertStatus(ctx, scope, final); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Err(err).Msg(msgTaskTargetGone)
			return nil
		}
		return fmt.Errorf(errFailedStatusFmt, msg.TaskType, final, err)
	}
	if final == mltask.StatusCompleted {
		log.Info().Msg(msgTaskCompleted)
	}
	return nil
}

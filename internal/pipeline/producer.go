package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/story"
	"commonthread/internal/queue"

	"github.com/rs/zerolog"
)

// EnqueueResult maps each submitted task type to its broker message id.
// Types whose send failed are absent.
type EnqueueResult struct {
	MessageIDs map[mltask.TaskType]string
}

type Producer struct {
	tx     TxRunner
	tasks  StatusStore
	sender queue.Sender
	log    zerolog.Logger
	now    func() time.Time
}

func NewProducer(tx TxRunner, tasks StatusStore, sender queue.Sender, log zerolog.Logger) *Producer {
	return &Producer{tx: tx, tasks: tasks, sender: sender, log: log, now: time.Now}
}

type plannedTask struct {
	scope   mltask.Scope
	message mltask.Message
}

func plan(st *story.Story, submittedAt time.Time) []plannedTask {
	types := make([]mltask.TaskType, 0, 3)
	if st.HasAudio() {
		types = append(types, mltask.TypeTranscription)
	}
	types = append(types, mltask.TypeTag, mltask.TypeSummarization)

	out := make([]plannedTask, 0, len(types))
	for _, t := range types {
		msg := mltask.Message{JobID: mltask.JobID(st.ID, t, submittedAt), TaskType: t}
		var scope mltask.Scope
		if t.ProjectScoped() {
			scope = mltask.ProjectScope(t, st.ProjectID)
			msg.ProjectID = scope.ProjectID
		} else {
			scope = mltask.StoryScope(t, st.ID)
			msg.StoryID = scope.StoryID
		}
		out = append(out, plannedTask{scope: scope, message: msg})
	}
	return out
}

// Enqueue initializes the story's task rows in one transaction and then
// publishes one message per task. Rows stay committed when the broker
// fails; every task is still attempted and the failures are joined.
func (p *Producer) Enqueue(ctx context.Context, st *story.Story) (*EnqueueResult, error) {
	if !st.HasAudio() && !st.HasText() {
		return nil, ErrNoContent
	}

	tasks := plan(st, p.now())

	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, t := range tasks {
			if _, err := p.tasks.UpsertStatus(ctx, t.scope, mltask.StatusInitialized); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf(errFailedInitTasksFmt, err)
	}

	result := &EnqueueResult{MessageIDs: make(map[mltask.TaskType]string, len(tasks))}
	group := strconv.FormatInt(st.ID, 10)
	var errs []error

	for _, t := range tasks {
		body, err := json.Marshal(t.message)
		if err != nil {
			errs = append(errs, fmt.Errorf(errFailedEncodeFmt, t.message.TaskType, err))
			continue
		}

		id, err := p.sender.Send(ctx, queue.Outgoing{
			Body:    body,
			GroupID: group,
			DedupID: mltask.DedupID(t.message.TaskType, t.message.JobID),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf(errFailedSendFmt, t.message.TaskType, err))
			continue
		}
		result.MessageIDs[t.message.TaskType] = id
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		p.log.Error().Err(joined).Int64("story_id", st.ID).Msg(msgEnqueueFailed)
		return result, fmt.Errorf(errWrapFmt, ErrEnqueueFailed, joined)
	}

	p.log.Info().Int64("story_id", st.ID).Int("tasks", len(result.MessageIDs)).Msg(msgTasksEnqueued)
	return result, nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/user"
	"commonthread/internal/queue"
	"commonthread/internal/repository"
	"commonthread/internal/repository/memory"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submittedAt = time.Unix(1714560000, 0)

type env struct {
	store   *memory.Store
	repos   *repository.Store
	broker  *queue.MemoryBroker
	project *project.Project
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repositories()

	u, err := repos.Users.Create(ctx, user.CreateUserInput{Username: "curator", PasswordHash: "x"})
	require.NoError(t, err)
	o, err := repos.Orgs.Create(ctx, org.CreateOrgInput{Name: "Archive", CreatorID: u.ID})
	require.NoError(t, err)
	p, err := repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: o.ID, Name: "River"})
	require.NoError(t, err)

	return env{store: s, repos: repos, broker: queue.NewMemoryBroker(10), project: p}
}

func (e env) story(t *testing.T, text string, audio *string) *story.Story {
	t.Helper()
	st, err := e.repos.Stories.Create(context.Background(), story.CreateStoryInput{
		ProjectID: e.project.ID, Storyteller: "Grace", TextContent: text, AudioKey: audio,
	})
	require.NoError(t, err)
	return st
}

func (e env) producer(sender queue.Sender) *Producer {
	p := NewProducer(e.repos.Tx, e.repos.Tasks, sender, zerolog.Nop())
	p.now = func() time.Time { return submittedAt }
	return p
}

func (e env) statuses(t *testing.T, st *story.Story) map[mltask.TaskType]mltask.Status {
	t.Helper()
	tasks, err := e.repos.Tasks.ListForStory(context.Background(), st.ID, st.ProjectID)
	require.NoError(t, err)
	out := make(map[mltask.TaskType]mltask.Status)
	for _, task := range tasks {
		out[task.Type] = task.Status
	}
	return out
}

type failingSender struct {
	fail map[string]bool
	sent []queue.Outgoing
}

func (f *failingSender) Send(_ context.Context, msg queue.Outgoing) (string, error) {
	var m mltask.Message
	_ = json.Unmarshal(msg.Body, &m)
	if f.fail[string(m.TaskType)] {
		return "", errors.New("broker down")
	}
	f.sent = append(f.sent, msg)
	return "id-" + string(m.TaskType), nil
}

type recordingProcessor struct {
	err  error
	seen []mltask.Message
}

func (r *recordingProcessor) Process(_ context.Context, msg mltask.Message) error {
	r.seen = append(r.seen, msg)
	return r.err
}

func TestEnqueueAudioStorySendsThreeTasks(t *testing.T) {
	e := newEnv(t)
	key := "a.mp3"
	st := e.story(t, "", &key)
	sender := &failingSender{}

	res, err := e.producer(sender).Enqueue(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, res.MessageIDs, 3)

	require.Len(t, sender.sent, 3)
	var first mltask.Message
	require.NoError(t, json.Unmarshal(sender.sent[0].Body, &first))
	assert.Equal(t, mltask.TypeTranscription, first.TaskType)
	assert.Equal(t, mltask.JobID(st.ID, mltask.TypeTranscription, submittedAt), first.JobID)
	assert.Equal(t, "0-"+first.JobID, sender.sent[0].DedupID)
	for _, out := range sender.sent {
		assert.Equal(t, strconv.FormatInt(st.ID, 10), out.GroupID)
	}

	var summary mltask.Message
	require.NoError(t, json.Unmarshal(sender.sent[2].Body, &summary))
	assert.Equal(t, mltask.TypeSummarization, summary.TaskType)
	assert.Nil(t, summary.StoryID)
	require.NotNil(t, summary.ProjectID)
	assert.Equal(t, e.project.ID, *summary.ProjectID)

	assert.Equal(t, map[mltask.TaskType]mltask.Status{
		mltask.TypeTranscription: mltask.StatusInitialized,
		mltask.TypeTag:           mltask.StatusInitialized,
		mltask.TypeSummarization: mltask.StatusInitialized,
	}, e.statuses(t, st))
}

func TestEnqueueTextStorySkipsTranscription(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "We farmed the valley.", nil)

	res, err := e.producer(e.broker).Enqueue(context.Background(), st)
	require.NoError(t, err)
	assert.NotContains(t, res.MessageIDs, mltask.TypeTranscription)
	assert.Len(t, res.MessageIDs, 2)
	assert.Equal(t, 2, e.broker.Pending())
}

func TestEnqueueNoContentWritesNothing(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "   ", nil)

	_, err := e.producer(e.broker).Enqueue(context.Background(), st)
	assert.ErrorIs(t, err, ErrNoContent)
	assert.Empty(t, e.statuses(t, st))
	assert.Equal(t, 0, e.broker.Pending())
}

func TestEnqueueBrokerFailureKeepsRows(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	sender := &failingSender{fail: map[string]bool{"tag": true}}

	res, err := e.producer(sender).Enqueue(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnqueueFailed)
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, map[mltask.TaskType]string{mltask.TypeSummarization: "id-summarization"}, res.MessageIDs)

	assert.Len(t, e.statuses(t, st), 2)
}

func TestEnqueueTwiceKeepsOneRowPerTask(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	p := e.producer(e.broker)

	_, err := p.Enqueue(context.Background(), st)
	require.NoError(t, err)
	p.now = func() time.Time { return submittedAt.Add(time.Minute) }
	_, err = p.Enqueue(context.Background(), st)
	require.NoError(t, err)

	tasks, err := e.repos.Tasks.ListForStory(context.Background(), st.ID, st.ProjectID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 4, e.broker.Pending())
}

func newWorker(e env, tag, summary TaskProcessor) *Worker {
	return NewWorker(e.broker, e.repos.Tasks, map[mltask.TaskType]TaskProcessor{
		mltask.TypeTag:           tag,
		mltask.TypeSummarization: summary,
	}, zerolog.Nop())
}

func receiveOne(t *testing.T, b *queue.MemoryBroker) queue.Delivery {
	t.Helper()
	ds, err := b.Receive(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, ds)
	return ds[0]
}

func TestWorkerCompletesAndFailsTasks(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	_, err := e.producer(e.broker).Enqueue(context.Background(), st)
	require.NoError(t, err)

	tag := &recordingProcessor{}
	summary := &recordingProcessor{err: errors.New("no backend")}
	w := newWorker(e, tag, summary)

	ds, err := e.broker.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	for _, d := range ds {
		require.NoError(t, w.HandleMessage(context.Background(), d))
	}

	assert.Equal(t, 0, e.broker.InFlight())
	require.Len(t, tag.seen, 1)
	assert.Equal(t, st.ID, *tag.seen[0].StoryID)
	assert.Equal(t, map[mltask.TaskType]mltask.Status{
		mltask.TypeTag:           mltask.StatusCompleted,
		mltask.TypeSummarization: mltask.StatusFailed,
	}, e.statuses(t, st))
}

func TestWorkerLeavesMalformedUnacked(t *testing.T) {
	e := newEnv(t)
	w := newWorker(e, &recordingProcessor{}, &recordingProcessor{})

	_, err := e.broker.Send(context.Background(), queue.Outgoing{Body: []byte("{not json")})
	require.NoError(t, err)
	d := receiveOne(t, e.broker)

	err = w.HandleMessage(context.Background(), d)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Equal(t, 1, e.broker.InFlight())

	_, err = e.broker.Send(context.Background(), queue.Outgoing{Body: []byte(`{"job_id":"1_tag_1","task_type":"tag","project_id":1}`)})
	require.NoError(t, err)
	d = receiveOne(t, e.broker)
	assert.ErrorIs(t, w.HandleMessage(context.Background(), d), ErrMalformedMessage)
}

func TestWorkerAcksUnknownType(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	w := newWorker(e, &recordingProcessor{}, &recordingProcessor{})

	_, err := e.broker.Send(context.Background(), queue.Outgoing{Body: []byte(`{"job_id":"x","task_type":"translate","story_id":1}`)})
	require.NoError(t, err)

	require.NoError(t, w.HandleMessage(context.Background(), receiveOne(t, e.broker)))
	assert.Equal(t, 0, e.broker.InFlight())
	assert.Empty(t, e.statuses(t, st))
}

func TestWorkerAcksTaskForDeletedStory(t *testing.T) {
	e := newEnv(t)
	tag := &recordingProcessor{}
	w := newWorker(e, tag, &recordingProcessor{})

	_, err := e.broker.Send(context.Background(), queue.Outgoing{Body: []byte(`{"job_id":"99_tag_1","task_type":"tag","story_id":99}`)})
	require.NoError(t, err)

	require.NoError(t, w.HandleMessage(context.Background(), receiveOne(t, e.broker)))
	assert.Empty(t, tag.seen)
	assert.Equal(t, 0, e.broker.InFlight())
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	_, err := e.producer(e.broker).Enqueue(context.Background(), st)
	require.NoError(t, err)

	done := make(chan struct{})
	tag := &recordingProcessor{}
	summary := processorFunc(func(context.Context, mltask.Message) error {
		close(done)
		return nil
	})
	w := newWorker(e, tag, summary)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not process messages")
	}
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, mltask.StatusCompleted, e.statuses(t, st)[mltask.TypeSummarization])
}

type processorFunc func(context.Context, mltask.Message) error

func (f processorFunc) Process(ctx context.Context, msg mltask.Message) error {
	return f(ctx, msg)
}

func TestHandleSQSEventReportsRedeliveries(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	w := newWorker(e, &recordingProcessor{err: errors.New("tagger down")}, &recordingProcessor{})

	good, err := json.Marshal(mltask.Message{JobID: "j", TaskType: mltask.TypeTag, StoryID: &st.ID})
	require.NoError(t, err)

	resp, err := w.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: string(good)},
		{MessageId: "m2", Body: "garbage"},
		{MessageId: "m3", Body: `{"job_id":"x","task_type":"translate"}`},
	}})
	require.NoError(t, err)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
	assert.Equal(t, mltask.StatusFailed, e.statuses(t, st)[mltask.TypeTag])
}

func TestReaperFailsStaleTasks(t *testing.T) {
	e := newEnv(t)
	st := e.story(t, "text", nil)
	ctx := context.Background()

	now := submittedAt
	e.store.SetClock(func() time.Time { return now })
	_, err := e.repos.Tasks.UpsertStatus(ctx, mltask.StoryScope(mltask.TypeTag, st.ID), mltask.StatusProcessing)
	require.NoError(t, err)
	_, err = e.repos.Tasks.UpsertStatus(ctx, mltask.ProjectScope(mltask.TypeSummarization, st.ProjectID), mltask.StatusCompleted)
	require.NoError(t, err)

	r := NewReaper(e.repos.Tasks, time.Hour, time.Minute, zerolog.Nop())
	r.now = func() time.Time { return submittedAt.Add(30 * time.Minute) }
	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	r.now = func() time.Time { return submittedAt.Add(2 * time.Hour) }
	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, mltask.StatusFailed, e.statuses(t, st)[mltask.TypeTag])
	assert.Equal(t, mltask.StatusCompleted, e.statuses(t, st)[mltask.TypeSummarization])
}

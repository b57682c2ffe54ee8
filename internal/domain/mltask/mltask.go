package mltask

import (
	"encoding/json"
	"fmt"
	"time"
)

type TaskType string

const (
	TypeTranscription TaskType = "transcription"
	TypeTag           TaskType = "tag"
	TypeSummarization TaskType = "summarization"
)

// Known reports whether the consumer has a handler for t.
func (t TaskType) Known() bool {
	switch t {
	case TypeTranscription, TypeTag, TypeSummarization:
		return true
	default:
		return false
	}
}

// ProjectScoped reports whether tasks of this type aggregate a whole project.
func (t TaskType) ProjectScoped() bool {
	return t == TypeSummarization
}

// OrderHint sequences transcription ahead of the tasks that read its output
// when the broker honors FIFO groups.
func (t TaskType) OrderHint() int {
	switch t {
	case TypeTranscription:
		return 0
	case TypeTag:
		return 1
	default:
		return 2
	}
}

type Status string

const (
	StatusInitialized Status = "initialized"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Scope identifies the single task row for a type. Exactly one of StoryID
// and ProjectID is set.
type Scope struct {
	Type      TaskType
	StoryID   *int64
	ProjectID *int64
}

func StoryScope(t TaskType, storyID int64) Scope {
	return Scope{Type: t, StoryID: &storyID}
}

func ProjectScope(t TaskType, projectID int64) Scope {
	return Scope{Type: t, ProjectID: &projectID}
}

func (s Scope) Validate() error {
	if (s.StoryID == nil) == (s.ProjectID == nil) {
		return fmt.Errorf(errScopeExactlyOne, s.Type)
	}
	if s.Type.ProjectScoped() != (s.ProjectID != nil) {
		return fmt.Errorf(errScopeMismatchFmt, s.Type)
	}
	return nil
}

type Task struct {
	ID        int64
	Type      TaskType
	StoryID   *int64
	ProjectID *int64
	Status    Status
	UpdatedAt time.Time
}

func (t *Task) Scope() Scope {
	return Scope{Type: t.Type, StoryID: t.StoryID, ProjectID: t.ProjectID}
}

// Message is the broker payload for one unit of work.
type Message struct {
	JobID     string   `json:"job_id"`
	TaskType  TaskType `json:"task_type"`
	StoryID   *int64   `json:"story_id,omitempty"`
	ProjectID *int64   `json:"project_id,omitempty"`
}

func (m Message) Scope() Scope {
	return Scope{Type: m.TaskType, StoryID: m.StoryID, ProjectID: m.ProjectID}
}

// JobID builds the deterministic job identifier {story_id}_{task_type}_{unix}.
func JobID(storyID int64, t TaskType, submittedAt time.Time) string {
	return fmt.Sprintf("%d_%s_%d", storyID, t, submittedAt.Unix())
}

// DedupID prefixes the job id with the task order hint.
func DedupID(t TaskType, jobID string) string {
	return fmt.Sprintf("%d-%s", t.OrderHint(), jobID)
}

const (
	errScopeExactlyOne  = "task %s must reference exactly one of story or project"
	errScopeMismatchFmt = "task %s has the wrong scope"
	errDecodeMessageFmt = "failed to decode task message: %w"
	errMissingJobID     = "task message has no job_id"
	errMissingTaskType  = "task message has no task_type"
)

// DecodeMessage parses a broker body. Unknown task types decode successfully
// so the consumer can acknowledge and drop them.
func DecodeMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf(errDecodeMessageFmt, err)
	}
	if m.JobID == "" {
		return Message{}, fmt.Errorf(errMissingJobID)
	}
	if m.TaskType == "" {
		return Message{}, fmt.Errorf(errMissingTaskType)
	}
	return m, nil
}

package story

import (
	"strings"
	"time"
)

type Story struct {
	ID          int64
	ProjectID   int64
	Storyteller string
	CuratorID   *int64
	Date        time.Time
	TextContent string
	AudioKey    *string
	ImageKey    *string
	Summary     *string
}

func (s *Story) HasAudio() bool {
	return s.AudioKey != nil && *s.AudioKey != ""
}

func (s *Story) HasText() bool {
	return strings.TrimSpace(s.TextContent) != ""
}

type CreateStoryInput struct {
	ProjectID   int64
	Storyteller string
	CuratorID   *int64
	Date        time.Time
	TextContent string
	AudioKey    *string
	ImageKey    *string
}

type UpdateStoryInput struct {
	Storyteller *string
	CuratorID   *int64
	Date        *time.Time
	TextContent *string
	Summary     *string
}

// Filter selects stories by exactly one owner.
type Filter struct {
	OrgID     *int64
	ProjectID *int64
	StoryID   *int64
	CuratorID *int64
}

package ml

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/tag"
	"commonthread/internal/storage/s3"
)

// Audio links handed to the transcriber only need to outlive one fetch.
const audioURLExpiration = 5 * time.Minute

type StoryStore interface {
	GetByID(ctx context.Context, id int64) (*story.Story, error)
	List(ctx context.Context, filter story.Filter) ([]*story.Story, error)
	Update(ctx context.Context, id int64, input story.UpdateStoryInput) error
}

type TagStore interface {
	GetOrCreate(ctx context.Context, key tag.Key) (*tag.Tag, error)
	AttachToStory(ctx context.Context, storyID, tagID int64) error
}

type InsightWriter interface {
	SetInsight(ctx context.Context, id int64, insight string) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Presigner interface {
	Presign(ctx context.Context, in s3.PresignInput) (*s3.Presigned, error)
}

// TranscriptionService replaces a story's text with the transcript of its
// audio.
type TranscriptionService struct {
	stories     StoryStore
	presigner   Presigner
	transcriber Transcriber
	audioBucket string
}

func NewTranscriptionService(stories StoryStore, presigner Presigner, transcriber Transcriber, audioBucket string) *TranscriptionService {
	return &TranscriptionService{
		stories:     stories,
		presigner:   presigner,
		transcriber: transcriber,
		audioBucket: audioBucket,
	}
}

func (s *TranscriptionService) Process(ctx context.Context, msg mltask.Message) error {
	if msg.StoryID == nil {
		return fmt.Errorf(errMissingScopeFmt, ErrBadInput, msg.TaskType, "story")
	}
	id := *msg.StoryID

	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf(errFailedLoadStoryFmt, id, err)
	}
	if !st.HasAudio() {
		return fmt.Errorf(errNoAudioFmt, ErrBadInput, id)
	}

	link, err := s.presigner.Presign(ctx, s3.PresignInput{
		Bucket:     s.audioBucket,
		Key:        *st.AudioKey,
		Op:         s3.OpDownload,
		Expiration: audioURLExpiration,
	})
	if err != nil {
		return fmt.Errorf(errFailedPresignAudioFmt, id, err)
	}

	transcript, err := s.transcriber.Transcribe(ctx, AudioInput{URL: link.URL})
	if err != nil {
		return err
	}

	if err := s.stories.Update(ctx, id, story.UpdateStoryInput{TextContent: &transcript}); err != nil {
		return fmt.Errorf(errFailedSaveStoryFmt, id, err)
	}
	return nil
}

// TaggingService attaches machine-extracted tags to a story. All tags of
// one run are attached in a single transaction.
type TaggingService struct {
	tx      TxRunner
	stories StoryStore
	tags    TagStore
	tagger  Tagger
}

func NewTaggingService(tx TxRunner, stories StoryStore, tags TagStore, tagger Tagger) *TaggingService {
	return &TaggingService{tx: tx, stories: stories, tags: tags, tagger: tagger}
}

func (s *TaggingService) Process(ctx context.Context, msg mltask.Message) error {
	if msg.StoryID == nil {
		return fmt.Errorf(errMissingScopeFmt, ErrBadInput, msg.TaskType, "story")
	}
	id := *msg.StoryID

	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf(errFailedLoadStoryFmt, id, err)
	}
	if !st.HasText() {
		return fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}

	extracted, err := s.tagger.ExtractTags(ctx, st.TextContent)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, t := range extracted {
			row, err := s.tags.GetOrCreate(ctx, tag.Key{
				Name:      t.Name,
				Value:     t.Label,
				Required:  false,
				CreatedBy: tag.CreatedByComputer,
			})
			if err != nil {
				return err
			}
			if err := s.tags.AttachToStory(ctx, id, row.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf(errFailedAttachTagsFmt, id, err)
	}
	return nil
}

// SummarizationService fills in missing per-story summaries with the local
// summarizer and then writes one collective insight onto the project.
type SummarizationService struct {
	stories    StoryStore
	projects   InsightWriter
	local      Summarizer
	collective Summarizer
}

func NewSummarizationService(stories StoryStore, projects InsightWriter, local, collective Summarizer) *SummarizationService {
	return &SummarizationService{stories: stories, projects: projects, local: local, collective: collective}
}

func (s *SummarizationService) Process(ctx context.Context, msg mltask.Message) error {
	if msg.ProjectID == nil {
		return fmt.Errorf(errMissingScopeFmt, ErrBadInput, msg.TaskType, "project")
	}
	projectID := *msg.ProjectID

	stories, err := s.stories.List(ctx, story.Filter{ProjectID: &projectID})
	if err != nil {
		return fmt.Errorf(errFailedLoadStoriesFmt, projectID, err)
	}
	if len(stories) == 0 {
		return fmt.Errorf(errNoStoriesFmt, ErrBadInput, projectID)
	}

	summaries, err := s.storySummaries(ctx, stories)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return fmt.Errorf(errNoStoriesFmt, ErrBadInput, projectID)
	}

	insight, err := s.collective.SummarizeMany(ctx, summaries)
	if err != nil {
		return err
	}

	if err := s.projects.SetInsight(ctx, projectID, insight); err != nil {
		return fmt.Errorf(errFailedSaveInsightFmt, projectID, err)
	}
	return nil
}

func (s *SummarizationService) storySummaries(ctx context.Context, stories []*story.Story) ([]string, error) {
	summaries := make([]string, 0, len(stories))
	for _, st := range stories {
		if st.Summary != nil && strings.TrimSpace(*st.Summary) != "" {
			summaries = append(summaries, *st.Summary)
			continue
		}
		if !st.HasText() {
			continue
		}

		summary, err := s.local.Summarize(ctx, st.TextContent)
		if err != nil {
			return nil, err
		}
		if err := s.stories.Update(ctx, st.ID, story.UpdateStoryInput{Summary: &summary}); err != nil {
			return nil, fmt.Errorf(errFailedSaveStoryFmt, st.ID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/rbac"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/validator"

	"github.com/labstack/echo/v4"
)

type StoryHandler struct {
	tx        TxRunner
	stories   StoryRepository
	projects  ProjectGetter
	tags      TagRepository
	users     UserLookup
	tasks     TaskLister
	producer  Enqueuer
	presigner Presigner
	buckets   Buckets
	now       func() time.Time
}

func NewStoryHandler(tx TxRunner, stories StoryRepository, projects ProjectGetter, tags TagRepository, users UserLookup, tasks TaskLister, producer Enqueuer, presigner Presigner, buckets Buckets) *StoryHandler {
	return &StoryHandler{
		tx:        tx,
		stories:   stories,
		projects:  projects,
		tags:      tags,
		users:     users,
		tasks:     tasks,
		producer:  producer,
		presigner: presigner,
		buckets:   buckets,
		now:       time.Now,
	}
}

type CreateStoryRequest struct {
	ProjectID flexibleID `json:"project_id"`
	// ProjID is the legacy spelling of project_id.
	ProjID       flexibleID   `json:"proj_id"`
	Storyteller  string       `json:"storyteller"`
	Curator      flexibleID   `json:"curator"`
	Date         string       `json:"date"`
	TextContent  string       `json:"text_content"`
	AudioContent *string      `json:"audio_content"`
	ImageContent *string      `json:"image_content"`
	RequiredTags []TagRequest `json:"required_tags"`
	OptionalTags []TagRequest `json:"optional_tags"`
}

func (r CreateStoryRequest) projectID() int64 {
	if r.ProjectID.value() > 0 {
		return r.ProjectID.value()
	}
	return r.ProjID.value()
}

type EditStoryRequest struct {
	Storyteller *string     `json:"storyteller"`
	Curator     *flexibleID `json:"curator"`
	Date        *string     `json:"date"`
	TextContent *string     `json:"text_content"`
	Summary     *string     `json:"summary"`
}

type StoryResponse struct {
	StoryID     int64         `json:"story_id"`
	Storyteller string        `json:"storyteller"`
	ProjectID   int64         `json:"project_id"`
	ProjectName string        `json:"project_name"`
	CuratorID   *int64        `json:"curator_id"`
	Curator     *string       `json:"curator"`
	Date        string        `json:"date"`
	Summary     *string       `json:"summary"`
	AudioPath   string        `json:"audio_path"`
	ImagePath   string        `json:"image_path"`
	TextContent string        `json:"text_content"`
	Tags        []TagResponse `json:"tags"`
}

type StoriesResponse struct {
	IDType  []string        `json:"id_type"`
	IDValue []string        `json:"id_value"`
	Stories []StoryResponse `json:"stories"`
}

type TaskResponse struct {
	TaskID    int64  `json:"task_id"`
	TaskType  string `json:"task_type"`
	Status    string `json:"status"`
	StoryID   *int64 `json:"story_id"`
	ProjectID *int64 `json:"project_id"`
	UpdatedAt string `json:"updated_at"`
}

type MLStatusResponse struct {
	StoryID   int64          `json:"story_id"`
	ProjectID int64          `json:"project_id"`
	Tasks     []TaskResponse `json:"tasks"`
}

// Create stores a story with its tags in one transaction, then submits its
// ML tasks. Submission failures are logged and do not fail the request; the
// task rows show what was queued.
func (h *StoryHandler) Create(c echo.Context) error {
	var req CreateStoryRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}

	projectID, err := authorizedID(c, rbac.KindProject, paramProjectID, req.projectID())
	if err != nil {
		return handleError(c, err)
	}
	req.Storyteller = strings.TrimSpace(req.Storyteller)
	if err := validator.Storyteller(req.Storyteller); err != nil {
		return handleError(c, apperrors.Validation(apperrors.CodeMissingField, err.Error()))
	}
	date, err := parseDate(req.Date, h.now())
	if err != nil {
		return handleError(c, err)
	}
	keys, err := tagKeys(req.RequiredTags, req.OptionalTags)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	var created *story.Story
	err = h.tx.RunInTx(ctx, func(ctx context.Context) error {
		st, err := h.stories.Create(ctx, story.CreateStoryInput{
			ProjectID:   projectID,
			Storyteller: req.Storyteller,
			CuratorID:   req.Curator.ptr(),
			Date:        date,
			TextContent: req.TextContent,
			AudioKey:    nonEmpty(req.AudioContent),
			ImageKey:    nonEmpty(req.ImageContent),
		})
		if err != nil {
			return err
		}
		if err := attachTags(ctx, h.tags, keys, func(ctx context.Context, tagID int64) error {
			return h.tags.AttachToStory(ctx, st.ID, tagID)
		}); err != nil {
			return err
		}
		created = st
		return nil
	})
	if err != nil {
		return handleError(c, err)
	}

	if _, err := h.producer.Enqueue(ctx, created); err != nil {
		c.Logger().Errorf(logEnqueueFailedFmt, created.ID, err)
	}

	return respondSuccess(c, http.StatusCreated, map[string]interface{}{paramStoryID: created.ID})
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

func (h *StoryHandler) Get(c echo.Context) error {
	storyID, err := pathID(c, paramStoryID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	st, err := h.stories.GetByID(ctx, storyID)
	if err != nil {
		return handleError(c, err)
	}

	views, err := h.views(c, []*story.Story{st})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, views[0])
}

// List answers GET /stories/ filtered by exactly one of org_id, project_id,
// story_id or user_id (stories curated by that user).
func (h *StoryHandler) List(c echo.Context) error {
	filters := []struct {
		key   string
		apply func(f *story.Filter, id int64)
	}{
		{queryOrgID, func(f *story.Filter, id int64) { f.OrgID = &id }},
		{queryProjectID, func(f *story.Filter, id int64) { f.ProjectID = &id }},
		{queryStoryID, func(f *story.Filter, id int64) { f.StoryID = &id }},
		{queryUserID, func(f *story.Filter, id int64) { f.CuratorID = &id }},
	}

	var (
		filter  story.Filter
		idType  string
		idValue string
		active  int
	)
	for _, entry := range filters {
		raw := c.QueryParam(entry.key)
		if raw == "" {
			continue
		}
		active++
		id, err := parseID(entry.key, raw)
		if err != nil {
			return handleError(c, err)
		}
		entry.apply(&filter, id)
		idType, idValue = entry.key, raw
	}
	if active != 1 {
		return respondError(c, http.StatusBadRequest, apperrors.CodeBadRequest, msgExactlyOneFilter)
	}

	stories, err := h.stories.List(c.Request().Context(), filter)
	if err != nil {
		return handleError(c, err)
	}

	views, err := h.views(c, stories)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, StoriesResponse{
		IDType:  []string{idType},
		IDValue: []string{idValue},
		Stories: views,
	})
}

// views joins stories with their projects, curators, tags and presigned
// media links.
func (h *StoryHandler) views(c echo.Context, stories []*story.Story) ([]StoryResponse, error) {
	ctx := c.Request().Context()

	curators := make([]*int64, 0, len(stories))
	for _, st := range stories {
		curators = append(curators, st.CuratorID)
	}
	names, err := curatorNames(ctx, h.users, curators)
	if err != nil {
		return nil, err
	}

	projects := make(map[int64]*project.Project)
	out := make([]StoryResponse, 0, len(stories))
	for _, st := range stories {
		p, ok := projects[st.ProjectID]
		if !ok {
			if p, err = h.projects.GetByID(ctx, st.ProjectID); err != nil {
				return nil, err
			}
			projects[st.ProjectID] = p
		}

		tags, err := h.tags.ListForStory(ctx, st.ID)
		if err != nil {
			return nil, err
		}

		out = append(out, StoryResponse{
			StoryID:     st.ID,
			Storyteller: st.Storyteller,
			ProjectID:   st.ProjectID,
			ProjectName: p.Name,
			CuratorID:   st.CuratorID,
			Curator:     nameFor(names, st.CuratorID),
			Date:        formatDate(st.Date),
			Summary:     st.Summary,
			AudioPath:   downloadURL(c, h.presigner, h.buckets.StoryAudio, st.AudioKey),
			ImagePath:   downloadURL(c, h.presigner, h.buckets.StoryImages, st.ImageKey),
			TextContent: st.TextContent,
			Tags:        tagResponses(tags),
		})
	}
	return out, nil
}

func (h *StoryHandler) Edit(c echo.Context) error {
	storyID, err := pathID(c, paramStoryID)
	if err != nil {
		return handleError(c, err)
	}

	var req EditStoryRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.Storyteller == nil && req.Curator == nil && req.Date == nil && req.TextContent == nil && req.Summary == nil {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgNoUpdates)
	}

	input := story.UpdateStoryInput{
		CuratorID:   req.Curator.ptr(),
		TextContent: req.TextContent,
		Summary:     req.Summary,
	}
	if req.Storyteller != nil {
		name := strings.TrimSpace(*req.Storyteller)
		if err := validator.Storyteller(name); err != nil {
			return handleError(c, invalidField(err))
		}
		input.Storyteller = &name
	}
	if input.Date, err = parseOptionalDate(req.Date); err != nil {
		return handleError(c, err)
	}

	if err := h.stories.Update(c.Request().Context(), storyID, input); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

func (h *StoryHandler) Delete(c echo.Context) error {
	storyID, err := pathID(c, paramStoryID)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.stories.Delete(c.Request().Context(), storyID); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

// MLStatus lists the story's own task rows and its project's rows.
func (h *StoryHandler) MLStatus(c echo.Context) error {
	storyID, err := pathID(c, paramStoryID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	st, err := h.stories.GetByID(ctx, storyID)
	if err != nil {
		return handleError(c, err)
	}

	tasks, err := h.tasks.ListForStory(ctx, st.ID, st.ProjectID)
	if err != nil {
		return handleError(c, err)
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskResponse{
			TaskID:    t.ID,
			TaskType:  string(t.Type),
			Status:    string(t.Status),
			StoryID:   t.StoryID,
			ProjectID: t.ProjectID,
			UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, MLStatusResponse{StoryID: st.ID, ProjectID: st.ProjectID, Tasks: out})
}

// Requeue re-submits the story's ML tasks. Unlike Create, queue failures are
// reported to the caller.
func (h *StoryHandler) Requeue(c echo.Context) error {
	storyID, err := pathID(c, paramStoryID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	st, err := h.stories.GetByID(ctx, storyID)
	if err != nil {
		return handleError(c, err)
	}

	result, err := h.producer.Enqueue(ctx, st)
	if err != nil {
		return handleError(c, err)
	}

	ids := make(map[string]string, len(result.MessageIDs))
	for t, id := range result.MessageIDs {
		ids[string(t)] = id
	}
	return respondSuccess(c, http.StatusOK, map[string]interface{}{
		paramStoryID:  st.ID,
		"message_ids": ids,
	})
}

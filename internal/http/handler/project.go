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

type ProjectHandler struct {
	tx       TxRunner
	projects ProjectRepository
	orgs     OrgGetter
	stories  StoryRepository
	tags     TagRepository
	users    UserLookup
	chatter  Chatter
	now      func() time.Time
}

func NewProjectHandler(tx TxRunner, projects ProjectRepository, orgs OrgGetter, stories StoryRepository, tags TagRepository, users UserLookup, chatter Chatter) *ProjectHandler {
	return &ProjectHandler{
		tx:       tx,
		projects: projects,
		orgs:     orgs,
		stories:  stories,
		tags:     tags,
		users:    users,
		chatter:  chatter,
		now:      time.Now,
	}
}

type CreateProjectRequest struct {
	OrgID        flexibleID   `json:"org_id"`
	Name         string       `json:"name"`
	Curator      flexibleID   `json:"curator"`
	Date         string       `json:"date"`
	RequiredTags []TagRequest `json:"required_tags"`
	OptionalTags []TagRequest `json:"optional_tags"`
	// Tags holds bare tag names from older clients; they become optional tags.
	Tags []string `json:"tags"`
}

type EditProjectRequest struct {
	Name    *string     `json:"name"`
	Curator *flexibleID `json:"curator"`
	Date    *string     `json:"date"`
}

type ChatRequest struct {
	UserMessage string `json:"user_message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ProjectResponse struct {
	ProjectID    int64         `json:"project_id"`
	ProjectName  string        `json:"project_name"`
	OrgID        int64         `json:"org_id"`
	OrgName      string        `json:"org_name"`
	Date         string        `json:"date"`
	Insight      *string       `json:"insight"`
	CuratorID    *int64        `json:"curator_id"`
	Curator      *string       `json:"curator"`
	RequiredTags []TagResponse `json:"required_tags"`
	OptionalTags []TagResponse `json:"optional_tags"`
	Stories      int           `json:"stories"`
}

// Create adds a project and its tags in one transaction.
func (h *ProjectHandler) Create(c echo.Context) error {
	var req CreateProjectRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}

	orgID, err := authorizedID(c, rbac.KindOrg, paramOrgID, req.OrgID.value())
	if err != nil {
		return handleError(c, err)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.ProjectName(req.Name); err != nil {
		return handleError(c, apperrors.Validation(apperrors.CodeMissingField, err.Error()))
	}
	date, err := parseDate(req.Date, h.now())
	if err != nil {
		return handleError(c, err)
	}

	optional := req.OptionalTags
	for _, name := range req.Tags {
		optional = append(optional, TagRequest{Name: name})
	}
	keys, err := tagKeys(req.RequiredTags, optional)
	if err != nil {
		return handleError(c, err)
	}

	var created *project.Project
	err = h.tx.RunInTx(c.Request().Context(), func(ctx context.Context) error {
		p, err := h.projects.Create(ctx, project.CreateProjectInput{
			OrgID:     orgID,
			Name:      req.Name,
			CuratorID: req.Curator.ptr(),
			Date:      date,
		})
		if err != nil {
			return err
		}
		if err := attachTags(ctx, h.tags, keys, func(ctx context.Context, tagID int64) error {
			return h.tags.AttachToProject(ctx, p.ID, tagID)
		}); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return handleError(c, err)
	}

	return respondSuccess(c, http.StatusCreated, map[string]interface{}{paramProjectID: created.ID})
}

func (h *ProjectHandler) Get(c echo.Context) error {
	projectID, err := pathID(c, paramProjectID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	p, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		return handleError(c, err)
	}

	o, err := h.orgs.GetByID(ctx, p.OrgID)
	if err != nil {
		return handleError(c, err)
	}

	tags, err := h.tags.ListForProject(ctx, p.ID)
	if err != nil {
		return handleError(c, err)
	}

	stories, err := h.stories.List(ctx, story.Filter{ProjectID: &p.ID})
	if err != nil {
		return handleError(c, err)
	}

	names, err := curatorNames(ctx, h.users, []*int64{p.CuratorID})
	if err != nil {
		return handleError(c, err)
	}

	required, optional := splitRequired(tags)
	return c.JSON(http.StatusOK, ProjectResponse{
		ProjectID:    p.ID,
		ProjectName:  p.Name,
		OrgID:        o.ID,
		OrgName:      o.Name,
		Date:         formatDate(p.Date),
		Insight:      p.Insight,
		CuratorID:    p.CuratorID,
		Curator:      nameFor(names, p.CuratorID),
		RequiredTags: required,
		OptionalTags: optional,
		Stories:      len(stories),
	})
}

// scoped loads the path's project and checks it belongs to the path's org.
func (h *ProjectHandler) scoped(c echo.Context) (*project.Project, error) {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return nil, err
	}
	projectID, err := pathID(c, paramProjectID)
	if err != nil {
		return nil, err
	}

	p, err := h.projects.GetByID(c.Request().Context(), projectID)
	if err != nil {
		return nil, err
	}
	if p.OrgID != orgID {
		return nil, apperrors.BadRequest(msgOrgMismatch)
	}
	return p, nil
}

func (h *ProjectHandler) Edit(c echo.Context) error {
	p, err := h.scoped(c)
	if err != nil {
		return handleError(c, err)
	}

	var req EditProjectRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.Name == nil && req.Curator == nil && req.Date == nil {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgNoUpdates)
	}

	input := project.UpdateProjectInput{CuratorID: req.Curator.ptr()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validator.ProjectName(name); err != nil {
			return handleError(c, invalidField(err))
		}
		input.Name = &name
	}
	if input.Date, err = parseOptionalDate(req.Date); err != nil {
		return handleError(c, err)
	}

	if err := h.projects.Update(c.Request().Context(), p.ID, input); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	p, err := h.scoped(c)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.projects.Delete(c.Request().Context(), p.ID); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

// Chat answers a question about the project using its stories' text as
// background. A project without stories is answered with no background.
func (h *ProjectHandler) Chat(c echo.Context) error {
	projectID, err := pathID(c, paramProjectID)
	if err != nil {
		return handleError(c, err)
	}

	var req ChatRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	message := strings.TrimSpace(req.UserMessage)
	if message == "" {
		return handleError(c, missingField(fieldUserMessage))
	}

	ctx := c.Request().Context()
	stories, err := h.stories.List(ctx, story.Filter{ProjectID: &projectID})
	if err != nil {
		return handleError(c, err)
	}
	texts := make([]string, 0, len(stories))
	for _, st := range stories {
		if st.HasText() {
			texts = append(texts, st.TextContent)
		}
	}

	reply, err := h.chatter.Chat(ctx, strings.Join(texts, chatStorySeparator), message)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

package memory

import (
	"context"
	"sort"

	"commonthread/internal/domain/story"
	apperrors "commonthread/pkg/errors"
)

type StoryRepository struct {
	s *Store
}

func NewStoryRepository(s *Store) *StoryRepository {
	return &StoryRepository{s: s}
}

func (r *StoryRepository) Create(ctx context.Context, input story.CreateStoryInput) (*story.Story, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.projects[input.ProjectID]; !ok {
		return nil, apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	if err := r.s.checkCuratorLocked(input.CuratorID); err != nil {
		return nil, err
	}

	st := story.Story{
		ID:          r.s.id(),
		ProjectID:   input.ProjectID,
		Storyteller: input.Storyteller,
		CuratorID:   copyID(input.CuratorID),
		Date:        input.Date,
		TextContent: input.TextContent,
		AudioKey:    copyString(input.AudioKey),
		ImageKey:    copyString(input.ImageKey),
	}
	r.s.data.stories[st.ID] = st
	return &st, nil
}

func (r *StoryRepository) GetByID(ctx context.Context, id int64) (*story.Story, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.data.stories[id]
	if !ok {
		return nil, apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	return &st, nil
}

func (r *StoryRepository) List(ctx context.Context, filter story.Filter) ([]*story.Story, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*story.Story
	for _, st := range r.s.data.stories {
		if !r.matches(st, filter) {
			continue
		}
		cp := st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StoryRepository) matches(st story.Story, f story.Filter) bool {
	switch {
	case f.StoryID != nil:
		return st.ID == *f.StoryID
	case f.ProjectID != nil:
		return st.ProjectID == *f.ProjectID
	case f.OrgID != nil:
		p, ok := r.s.data.projects[st.ProjectID]
		return ok && p.OrgID == *f.OrgID
	case f.CuratorID != nil:
		return st.CuratorID != nil && *st.CuratorID == *f.CuratorID
	default:
		return true
	}
}

func (r *StoryRepository) Update(ctx context.Context, id int64, input story.UpdateStoryInput) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.data.stories[id]
	if !ok {
		return apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	if input.CuratorID != nil {
		if err := r.s.checkCuratorLocked(input.CuratorID); err != nil {
			return err
		}
		st.CuratorID = copyID(input.CuratorID)
	}
	setString(&st.Storyteller, input.Storyteller)
	setString(&st.TextContent, input.TextContent)
	if input.Date != nil {
		st.Date = *input.Date
	}
	if input.Summary != nil {
		st.Summary = copyString(input.Summary)
	}
	r.s.data.stories[id] = st
	return nil
}

func (r *StoryRepository) Delete(ctx context.Context, id int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.stories[id]; !ok {
		return apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	r.s.deleteStoryLocked(id)
	return nil
}

func (s *Store) deleteStoryLocked(id int64) {
	delete(s.data.stories, id)
	for k := range s.data.storyTags {
		if k.ownerID == id {
			delete(s.data.storyTags, k)
		}
	}
	for k := range s.data.tasks {
		if k.storyID == id {
			delete(s.data.tasks, k)
		}
	}
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

package memory

import (
	"context"
	"sort"

	"commonthread/internal/domain/tag"
	apperrors "commonthread/pkg/errors"
)

type TagRepository struct {
	s *Store
}

func NewTagRepository(s *Store) *TagRepository {
	return &TagRepository{s: s}
}

func (r *TagRepository) GetOrCreate(ctx context.Context, key tag.Key) (*tag.Tag, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.data.tags {
		if t.Key() == key {
			cp := t
			return &cp, nil
		}
	}

	t := tag.Tag{
		ID:        r.s.id(),
		Name:      key.Name,
		Value:     key.Value,
		Required:  key.Required,
		CreatedBy: key.CreatedBy,
	}
	r.s.data.tags[t.ID] = t
	return &t, nil
}

func (r *TagRepository) AttachToStory(ctx context.Context, storyID, tagID int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.stories[storyID]; !ok {
		return apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	if _, ok := r.s.data.tags[tagID]; !ok {
		return apperrors.NotFound(errTagNotFound)
	}
	r.s.data.storyTags[pairKey{ownerID: storyID, tagID: tagID}] = struct{}{}
	return nil
}

func (r *TagRepository) AttachToProject(ctx context.Context, projectID, tagID int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.projects[projectID]; !ok {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	if _, ok := r.s.data.tags[tagID]; !ok {
		return apperrors.NotFound(errTagNotFound)
	}
	r.s.data.projectTags[pairKey{ownerID: projectID, tagID: tagID}] = struct{}{}
	return nil
}

func (r *TagRepository) ListForStory(ctx context.Context, storyID int64) ([]tag.Tag, error) {
	return r.list(ctx, storyID, func(s *Store) map[pairKey]struct{} { return s.data.storyTags })
}

func (r *TagRepository) ListForProject(ctx context.Context, projectID int64) ([]tag.Tag, error) {
	return r.list(ctx, projectID, func(s *Store) map[pairKey]struct{} { return s.data.projectTags })
}

func (r *TagRepository) list(ctx context.Context, ownerID int64, links func(*Store) map[pairKey]struct{}) ([]tag.Tag, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []tag.Tag
	for k := range links(r.s) {
		if k.ownerID != ownerID {
			continue
		}
		if t, ok := r.s.data.tags[k.tagID]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

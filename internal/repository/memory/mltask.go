package memory

import (
	"context"
	"sort"
	"time"

	"commonthread/internal/domain/mltask"
	apperrors "commonthread/pkg/errors"
)

type MLTaskRepository struct {
	s *Store
}

func NewMLTaskRepository(s *Store) *MLTaskRepository {
	return &MLTaskRepository{s: s}
}

func keyFor(scope mltask.Scope) taskKey {
	k := taskKey{taskType: scope.Type}
	if scope.StoryID != nil {
		k.storyID = *scope.StoryID
	}
	if scope.ProjectID != nil {
		k.projectID = *scope.ProjectID
	}
	return k
}

func (r *MLTaskRepository) UpsertStatus(ctx context.Context, scope mltask.Scope, status mltask.Status) (*mltask.Task, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if err := scope.Validate(); err != nil {
		return nil, apperrors.BadRequest(errTaskScopeInvalid + ": " + err.Error())
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if scope.StoryID != nil {
		if _, ok := r.s.data.stories[*scope.StoryID]; !ok {
			return nil, apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
		}
	}
	if scope.ProjectID != nil {
		if _, ok := r.s.data.projects[*scope.ProjectID]; !ok {
			return nil, apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
		}
	}

	key := keyFor(scope)
	t, ok := r.s.data.tasks[key]
	if !ok {
		t = mltask.Task{
			ID:        r.s.id(),
			Type:      scope.Type,
			StoryID:   copyID(scope.StoryID),
			ProjectID: copyID(scope.ProjectID),
		}
	}
	t.Status = status
	t.UpdatedAt = r.s.now()
	r.s.data.tasks[key] = t
	return &t, nil
}

func (r *MLTaskRepository) ListForStory(ctx context.Context, storyID, projectID int64) ([]*mltask.Task, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*mltask.Task
	for k, t := range r.s.data.tasks {
		if (k.storyID != 0 && k.storyID == storyID) || (k.projectID != 0 && k.projectID == projectID) {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MLTaskRepository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := r.s.now()
	for k, t := range r.s.data.tasks {
		if t.Status == mltask.StatusProcessing && t.UpdatedAt.Before(cutoff) {
			t.Status = mltask.StatusFailed
			t.UpdatedAt = now
			r.s.data.tasks[k] = t
			n++
		}
	}
	return n, nil
}

package memory

import (
	"context"
	"sort"

	"commonthread/internal/domain/project"
	apperrors "commonthread/pkg/errors"
)

type ProjectRepository struct {
	s *Store
}

func NewProjectRepository(s *Store) *ProjectRepository {
	return &ProjectRepository{s: s}
}

func (r *ProjectRepository) Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.orgs[input.OrgID]; !ok {
		return nil, apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	if err := r.s.checkCuratorLocked(input.CuratorID); err != nil {
		return nil, err
	}

	p := project.Project{
		ID:        r.s.id(),
		OrgID:     input.OrgID,
		Name:      input.Name,
		CuratorID: copyID(input.CuratorID),
		Date:      input.Date,
	}
	r.s.data.projects[p.ID] = p
	return &p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.data.projects[id]
	if !ok {
		return nil, apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	return &p, nil
}

func (r *ProjectRepository) ListByOrg(ctx context.Context, orgID int64) ([]project.Listing, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[int64]int)
	for _, st := range r.s.data.stories {
		counts[st.ProjectID]++
	}

	var out []project.Listing
	for _, p := range r.s.data.projects {
		if p.OrgID == orgID {
			out = append(out, project.Listing{Project: p, StoryCount: counts[p.ID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project.ID < out[j].Project.ID })
	return out, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, input project.UpdateProjectInput) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.data.projects[id]
	if !ok {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	if input.CuratorID != nil {
		if err := r.s.checkCuratorLocked(input.CuratorID); err != nil {
			return err
		}
		p.CuratorID = copyID(input.CuratorID)
	}
	setString(&p.Name, input.Name)
	if input.Date != nil {
		p.Date = *input.Date
	}
	r.s.data.projects[id] = p
	return nil
}

func (r *ProjectRepository) SetInsight(ctx context.Context, id int64, insight string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.data.projects[id]
	if !ok {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	p.Insight = &insight
	r.s.data.projects[id] = p
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.projects[id]; !ok {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	r.s.deleteProjectLocked(id)
	return nil
}

// deleteProjectLocked removes a project with its stories, tag links and
// tasks. The caller must hold mu.
func (s *Store) deleteProjectLocked(id int64) {
	delete(s.data.projects, id)
	for sid, st := range s.data.stories {
		if st.ProjectID == id {
			s.deleteStoryLocked(sid)
		}
	}
	for k := range s.data.projectTags {
		if k.ownerID == id {
			delete(s.data.projectTags, k)
		}
	}
	for k := range s.data.tasks {
		if k.projectID == id {
			delete(s.data.tasks, k)
		}
	}
}

func (s *Store) checkCuratorLocked(curatorID *int64) error {
	if curatorID == nil {
		return nil
	}
	if _, ok := s.data.users[*curatorID]; !ok {
		return apperrors.NotFound(errCuratorNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

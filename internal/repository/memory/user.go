package memory

import (
	"context"
	"sort"
	"strings"

	"commonthread/internal/domain/user"
	apperrors "commonthread/pkg/errors"
)

const (
	errUserNotFound     = "user not found"
	errUsernameTaken    = "username already exists"
	errOrgNotFound      = "organization not found"
	errOrgNameTaken     = "organization already exists"
	errMemberNotFound   = "membership not found"
	errMemberExists     = "user is already a member of this organization"
	errProjectNotFound  = "project not found"
	errStoryNotFound    = "story not found"
	errTagNotFound      = "tag not found"
	errCuratorNotFound  = "curator not found"
	errTaskScopeInvalid = "invalid task scope"
)

type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (*user.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Username, input.Username) {
			return nil, apperrors.Conflict(errUsernameTaken).WithCode(apperrors.CodeDuplicateUser)
		}
	}

	u := user.User{
		ID:           r.s.id(),
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Name:         input.Name,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		City:         input.City,
		Bio:          input.Bio,
		Position:     input.Position,
		CreatedAt:    r.s.now(),
	}
	r.s.data.users[u.ID] = u
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Username, username) {
			cp := u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
}

func (r *UserRepository) GetMany(ctx context.Context, ids []int64) ([]*user.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []*user.User
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := r.s.data.users[id]; ok {
			cp := u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, input user.UpdateUserInput) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}

	if input.Username != nil {
		for otherID, other := range r.s.data.users {
			if otherID != id && strings.EqualFold(other.Username, *input.Username) {
				return apperrors.Conflict(errUsernameTaken).WithCode(apperrors.CodeDuplicateUser)
			}
		}
		u.Username = *input.Username
	}
	setString(&u.PasswordHash, input.PasswordHash)
	setString(&u.Name, input.Name)
	setString(&u.FirstName, input.FirstName)
	setString(&u.LastName, input.LastName)
	setString(&u.Email, input.Email)
	setString(&u.City, input.City)
	setString(&u.Bio, input.Bio)
	setString(&u.Position, input.Position)
	if input.ProfileKey != nil {
		key := *input.ProfileKey
		u.ProfileKey = &key
	}

	r.s.data.users[id] = u
	return nil
}

// Delete removes the user and their memberships; curated projects and
// stories lose their curator.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.users[id]; !ok {
		return apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	delete(r.s.data.users, id)

	for k := range r.s.data.memberships {
		if k.userID == id {
			delete(r.s.data.memberships, k)
		}
	}
	for pid, p := range r.s.data.projects {
		if p.CuratorID != nil && *p.CuratorID == id {
			p.CuratorID = nil
			r.s.data.projects[pid] = p
		}
	}
	for sid, st := range r.s.data.stories {
		if st.CuratorID != nil && *st.CuratorID == id {
			st.CuratorID = nil
			r.s.data.stories[sid] = st
		}
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

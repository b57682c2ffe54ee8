package memory

import (
	"context"
	"sort"
	"strings"

	"commonthread/internal/domain/org"
	apperrors "commonthread/pkg/errors"
)

type OrgRepository struct {
	s *Store
}

func NewOrgRepository(s *Store) *OrgRepository {
	return &OrgRepository{s: s}
}

func (r *OrgRepository) Create(ctx context.Context, input org.CreateOrgInput) (*org.Organization, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(0, input.Name) {
		return nil, apperrors.Conflict(errOrgNameTaken).WithCode(apperrors.CodeDuplicateOrg)
	}

	o := org.Organization{
		ID:          r.s.id(),
		Name:        input.Name,
		Description: input.Description,
	}
	r.s.data.orgs[o.ID] = o
	return &o, nil
}

func (r *OrgRepository) nameTaken(exceptID int64, name string) bool {
	for id, o := range r.s.data.orgs {
		if id != exceptID && strings.EqualFold(o.Name, name) {
			return true
		}
	}
	return false
}

func (r *OrgRepository) GetByID(ctx context.Context, id int64) (*org.Organization, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.data.orgs[id]
	if !ok {
		return nil, apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	return &o, nil
}

func (r *OrgRepository) ListForUser(ctx context.Context, userID int64) ([]org.Summary, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []org.Summary
	for k, tier := range r.s.data.memberships {
		if k.userID != userID {
			continue
		}
		o, ok := r.s.data.orgs[k.orgID]
		if !ok {
			continue
		}
		out = append(out, org.Summary{ID: o.ID, Name: o.Name, ProfileKey: o.ProfileKey, Tier: tier})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *OrgRepository) Update(ctx context.Context, id int64, input org.UpdateOrgInput) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.data.orgs[id]
	if !ok {
		return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	if input.Name != nil {
		if r.nameTaken(id, *input.Name) {
			return apperrors.Conflict(errOrgNameTaken).WithCode(apperrors.CodeDuplicateOrg)
		}
		o.Name = *input.Name
	}
	setString(&o.Description, input.Description)
	if input.ProfileKey != nil {
		key := *input.ProfileKey
		o.ProfileKey = &key
	}
	r.s.data.orgs[id] = o
	return nil
}

// Delete cascades to memberships, projects, stories and their tasks.
func (r *OrgRepository) Delete(ctx context.Context, id int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.orgs[id]; !ok {
		return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	delete(r.s.data.orgs, id)

	for k := range r.s.data.memberships {
		if k.orgID == id {
			delete(r.s.data.memberships, k)
		}
	}
	for pid, p := range r.s.data.projects {
		if p.OrgID == id {
			r.s.deleteProjectLocked(pid)
		}
	}
	return nil
}

type MembershipRepository struct {
	s *Store
}

func NewMembershipRepository(s *Store) *MembershipRepository {
	return &MembershipRepository{s: s}
}

func (r *MembershipRepository) Add(ctx context.Context, m org.Membership) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.orgs[m.OrgID]; !ok {
		return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	if _, ok := r.s.data.users[m.UserID]; !ok {
		return apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	key := membershipKey{orgID: m.OrgID, userID: m.UserID}
	if _, exists := r.s.data.memberships[key]; exists {
		return apperrors.Conflict(errMemberExists)
	}
	r.s.data.memberships[key] = m.Tier
	return nil
}

func (r *MembershipRepository) Get(ctx context.Context, orgID, userID int64) (*org.Membership, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tier, ok := r.s.data.memberships[membershipKey{orgID: orgID, userID: userID}]
	if !ok {
		return nil, apperrors.NotFound(errMemberNotFound)
	}
	return &org.Membership{OrgID: orgID, UserID: userID, Tier: tier}, nil
}

func (r *MembershipRepository) ListMembers(ctx context.Context, orgID int64) ([]org.Member, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var members []org.Member
	for k, tier := range r.s.data.memberships {
		if k.orgID != orgID {
			continue
		}
		members = append(members, org.Member{
			UserID:   k.userID,
			UserName: r.s.data.users[k.userID].Name,
			Tier:     tier,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (r *MembershipRepository) UpdateTier(ctx context.Context, orgID, userID int64, tier org.Tier) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := membershipKey{orgID: orgID, userID: userID}
	if _, ok := r.s.data.memberships[key]; !ok {
		return apperrors.NotFound(errMemberNotFound)
	}
	r.s.data.memberships[key] = tier
	return nil
}

func (r *MembershipRepository) Remove(ctx context.Context, orgID, userID int64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := membershipKey{orgID: orgID, userID: userID}
	if _, ok := r.s.data.memberships[key]; !ok {
		return apperrors.NotFound(errMemberNotFound)
	}
	delete(r.s.data.memberships, key)
	return nil
}

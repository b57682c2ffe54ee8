package rbac

import (
	"context"
	"errors"
	"fmt"

	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	apperrors "commonthread/pkg/errors"
)

// Lookups the resolver needs from persistence. Missing rows must yield an
// error matching apperrors.ErrNotFound.

type StoryFinder interface {
	GetByID(ctx context.Context, id int64) (*story.Story, error)
}

type ProjectFinder interface {
	GetByID(ctx context.Context, id int64) (*project.Project, error)
}

type OrgFinder interface {
	GetByID(ctx context.Context, id int64) (*org.Organization, error)
}

type MembershipFinder interface {
	Get(ctx context.Context, orgID, userID int64) (*org.Membership, error)
}

// Resolver walks Story -> Project -> Organization -> Membership to find the
// tier a principal holds for a resource. It never writes.
type Resolver struct {
	checker     *Checker
	stories     StoryFinder
	projects    ProjectFinder
	orgs        OrgFinder
	memberships MembershipFinder
}

func NewResolver(checker *Checker, stories StoryFinder, projects ProjectFinder, orgs OrgFinder, memberships MembershipFinder) *Resolver {
	return &Resolver{
		checker:     checker,
		stories:     stories,
		projects:    projects,
		orgs:        orgs,
		memberships: memberships,
	}
}

func (r *Resolver) Checker() *Checker {
	return r.checker
}

// Resolve returns the principal's tier for res. Errors are *NotFoundError,
// ErrNotMember or an infrastructure failure.
//
// A SelfUser descriptor for the caller's own id resolves to the default
// tier without a graph walk, but only when required is no higher than the
// default; otherwise it is ErrDenied. Any other id yields ErrNotMember.
func (r *Resolver) Resolve(ctx context.Context, principalID int64, res Resource, required org.Tier) (org.Tier, error) {
	switch res.Kind {
	case KindNone:
		return r.checker.Default(), nil
	case KindSelfUser:
		if res.ID != principalID {
			return "", ErrNotMember
		}
		if !r.checker.AtLeast(r.checker.Default(), required) {
			return "", fmt.Errorf(errSelfUserTierFmt, ErrDenied, required)
		}
		return r.checker.Default(), nil
	case KindStory:
		s, err := r.stories.GetByID(ctx, res.ID)
		if err != nil {
			return "", lookupErr(KindStory, err)
		}
		return r.resolveProject(ctx, principalID, s.ProjectID)
	case KindProject:
		return r.resolveProject(ctx, principalID, res.ID)
	case KindOrg:
		return r.resolveOrg(ctx, principalID, res.ID)
	default:
		return "", fmt.Errorf(errResolveFmt, res, ErrDenied)
	}
}

func (r *Resolver) resolveProject(ctx context.Context, principalID, projectID int64) (org.Tier, error) {
	p, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", lookupErr(KindProject, err)
	}
	return r.resolveOrg(ctx, principalID, p.OrgID)
}

func (r *Resolver) resolveOrg(ctx context.Context, principalID, orgID int64) (org.Tier, error) {
	if _, err := r.orgs.GetByID(ctx, orgID); err != nil {
		return "", lookupErr(KindOrg, err)
	}

	m, err := r.memberships.Get(ctx, orgID, principalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf(errResolveFmt, "membership", err)
	}
	return m.Tier, nil
}

// Authorize resolves res and checks the result against required.
func (r *Resolver) Authorize(ctx context.Context, principalID int64, res Resource, required org.Tier) (org.Tier, error) {
	tier, err := r.Resolve(ctx, principalID, res, required)
	if err != nil {
		return "", err
	}
	if err := r.checker.RequireTier(tier, required); err != nil {
		return tier, err
	}
	return tier, nil
}

func lookupErr(kind ResourceKind, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return &NotFoundError{Kind: kind}
	}
	return fmt.Errorf(errResolveFmt, kind, err)
}

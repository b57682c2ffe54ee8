package rbac_test

import (
	"context"
	"errors"
	"testing"

	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/user"
	"commonthread/internal/rbac"
	"commonthread/internal/repository"
	"commonthread/internal/repository/memory"
	apperrors "commonthread/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graph struct {
	repos    *repository.Store
	resolver *rbac.Resolver
	orgID    int64
	project  int64
	story    int64
	users    map[org.Tier]int64
	outsider int64
}

func newGraph(t *testing.T) graph {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewStore().Repositories()

	g := graph{repos: repos, users: map[org.Tier]int64{}}
	mk := func(name string) int64 {
		u, err := repos.Users.Create(ctx, user.CreateUserInput{Username: name, Name: name})
		require.NoError(t, err)
		return u.ID
	}

	o, err := repos.Orgs.Create(ctx, org.CreateOrgInput{Name: "Archive"})
	require.NoError(t, err)
	g.orgID = o.ID

	for _, tier := range []org.Tier{org.TierVisitor, org.TierUser, org.TierAdmin, org.TierCreator} {
		id := mk(string(tier))
		require.NoError(t, repos.Memberships.Add(ctx, org.Membership{UserID: id, OrgID: o.ID, Tier: tier}))
		g.users[tier] = id
	}
	g.outsider = mk("outsider")

	p, err := repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: o.ID, Name: "Oral history"})
	require.NoError(t, err)
	g.project = p.ID

	s, err := repos.Stories.Create(ctx, story.CreateStoryInput{ProjectID: p.ID, Storyteller: "Grace"})
	require.NoError(t, err)
	g.story = s.ID

	g.resolver = rbac.NewResolver(rbac.MustNew(rbac.DefaultConfig()), repos.Stories, repos.Projects, repos.Orgs, repos.Memberships)
	return g
}

func TestResolve_WalksChain(t *testing.T) {
	g := newGraph(t)
	ctx := context.Background()

	for tier, userID := range g.users {
		for _, res := range []rbac.Resource{rbac.Org(g.orgID), rbac.Project(g.project), rbac.Story(g.story)} {
			got, err := g.resolver.Resolve(ctx, userID, res, org.TierVisitor)
			require.NoError(t, err, res.String())
			assert.Equal(t, tier, got, res.String())
		}
	}
}

func TestResolve_NoneGrantsDefault(t *testing.T) {
	g := newGraph(t)

	tier, err := g.resolver.Resolve(context.Background(), g.outsider, rbac.None(), org.TierUser)
	require.NoError(t, err)
	assert.Equal(t, org.TierUser, tier)
}

func TestResolve_NotFoundKinds(t *testing.T) {
	g := newGraph(t)
	ctx := context.Background()
	creator := g.users[org.TierCreator]

	tests := []struct {
		res  rbac.Resource
		kind rbac.ResourceKind
		code string
	}{
		{rbac.Story(999), rbac.KindStory, "STORY_NOT_FOUND"},
		{rbac.Project(999), rbac.KindProject, "PROJECT_NOT_FOUND"},
		{rbac.Org(999), rbac.KindOrg, "ORG_NOT_FOUND"},
	}
	for _, tt := range tests {
		_, err := g.resolver.Resolve(ctx, creator, tt.res, org.TierVisitor)
		var nf *rbac.NotFoundError
		require.True(t, errors.As(err, &nf), tt.res.String())
		assert.Equal(t, tt.kind, nf.Kind)
		assert.Equal(t, tt.code, nf.Code())
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	}
}

func TestResolve_MissingOrgBeforeMembership(t *testing.T) {
	g := newGraph(t)

	_, err := g.resolver.Resolve(context.Background(), g.outsider, rbac.Org(12345), org.TierVisitor)
	var nf *rbac.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, rbac.KindOrg, nf.Kind)
}

func TestResolve_NotMember(t *testing.T) {
	g := newGraph(t)

	_, err := g.resolver.Resolve(context.Background(), g.outsider, rbac.Story(g.story), org.TierVisitor)
	assert.ErrorIs(t, err, rbac.ErrNotMember)
}

func TestResolve_SelfUser(t *testing.T) {
	g := newGraph(t)
	ctx := context.Background()
	me := g.outsider

	tier, err := g.resolver.Authorize(ctx, me, rbac.SelfUser(me), org.TierUser)
	require.NoError(t, err)
	assert.Equal(t, org.TierUser, tier)

	_, err = g.resolver.Authorize(ctx, me, rbac.SelfUser(me), org.TierAdmin)
	assert.ErrorIs(t, err, rbac.ErrDenied)

	_, err = g.resolver.Authorize(ctx, me, rbac.SelfUser(me+1), org.TierUser)
	assert.ErrorIs(t, err, rbac.ErrNotMember)
}

func TestAuthorize_TierThresholds(t *testing.T) {
	g := newGraph(t)
	ctx := context.Background()

	_, err := g.resolver.Authorize(ctx, g.users[org.TierVisitor], rbac.Story(g.story), org.TierAdmin)
	assert.ErrorIs(t, err, rbac.ErrDenied)

	_, err = g.resolver.Authorize(ctx, g.users[org.TierAdmin], rbac.Story(g.story), org.TierAdmin)
	assert.NoError(t, err)

	_, err = g.resolver.Authorize(ctx, g.users[org.TierAdmin], rbac.Org(g.orgID), org.TierCreator)
	assert.ErrorIs(t, err, rbac.ErrDenied)
}

type failingMemberships struct{}

func (failingMemberships) Get(context.Context, int64, int64) (*org.Membership, error) {
	return nil, errors.New("connection reset")
}

func TestResolve_InfrastructureError(t *testing.T) {
	g := newGraph(t)
	resolver := rbac.NewResolver(rbac.MustNew(rbac.DefaultConfig()), g.repos.Stories, g.repos.Projects, g.repos.Orgs, failingMemberships{})

	_, err := resolver.Resolve(context.Background(), g.outsider, rbac.Org(g.orgID), org.TierVisitor)
	require.Error(t, err)
	assert.False(t, errors.Is(err, rbac.ErrNotMember))
	var nf *rbac.NotFoundError
	assert.False(t, errors.As(err, &nf))
}

func TestResolve_SelfUserHonorsRequiredTier(t *testing.T) {
	g := newGraph(t)
	ctx := context.Background()
	me := g.outsider

	for _, required := range []org.Tier{org.TierVisitor, org.TierUser} {
		tier, err := g.resolver.Resolve(ctx, me, rbac.SelfUser(me), required)
		require.NoError(t, err, required)
		assert.Equal(t, org.TierUser, tier)
	}

	for _, required := range []org.Tier{org.TierAdmin, org.TierCreator} {
		tier, err := g.resolver.Resolve(ctx, me, rbac.SelfUser(me), required)
		assert.ErrorIs(t, err, rbac.ErrDenied, required)
		assert.Empty(t, tier)
	}
}

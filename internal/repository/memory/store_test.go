package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/tag"
	"commonthread/internal/domain/user"
	apperrors "commonthread/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *Store
	user    *user.User
	org     *org.Organization
	project *project.Project
	story   *story.Story
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()

	u, err := repos.Users.Create(ctx, user.CreateUserInput{Username: "ada", PasswordHash: "x", Name: "Ada"})
	require.NoError(t, err)
	o, err := repos.Orgs.Create(ctx, org.CreateOrgInput{Name: "Archive", CreatorID: u.ID})
	require.NoError(t, err)
	require.NoError(t, repos.Memberships.Add(ctx, org.Membership{UserID: u.ID, OrgID: o.ID, Tier: org.TierCreator}))
	p, err := repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: o.ID, Name: "Oral history", CuratorID: &u.ID})
	require.NoError(t, err)
	st, err := repos.Stories.Create(ctx, story.CreateStoryInput{ProjectID: p.ID, Storyteller: "Grace", CuratorID: &u.ID, TextContent: "hello"})
	require.NoError(t, err)

	return fixture{store: s, user: u, org: o, project: p, story: st}
}

func TestUsers_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	repos := f.store.Repositories()

	_, err := repos.Users.Create(context.Background(), user.CreateUserInput{Username: "ADA"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, apperrors.CodeDuplicateUser, apperrors.CodeOf(err, ""))
}

func TestUsers_GetManySkipsMissing(t *testing.T) {
	f := newFixture(t)
	users, err := f.store.Repositories().Users.GetMany(context.Background(), []int64{f.user.ID, f.user.ID, 999})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestUsers_DeleteClearsCurator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	require.NoError(t, repos.Users.Delete(ctx, f.user.ID))

	p, err := repos.Projects.GetByID(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Nil(t, p.CuratorID)

	st, err := repos.Stories.GetByID(ctx, f.story.ID)
	require.NoError(t, err)
	assert.Nil(t, st.CuratorID)

	_, err = repos.Memberships.Get(ctx, f.org.ID, f.user.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestOrgs_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	_, err := repos.Tasks.UpsertStatus(ctx, mltask.StoryScope(mltask.TypeTag, f.story.ID), mltask.StatusInitialized)
	require.NoError(t, err)

	require.NoError(t, repos.Orgs.Delete(ctx, f.org.ID))

	_, err = repos.Projects.GetByID(ctx, f.project.ID)
	assert.Equal(t, apperrors.CodeProjectNotFound, apperrors.CodeOf(err, ""))
	_, err = repos.Stories.GetByID(ctx, f.story.ID)
	assert.Equal(t, apperrors.CodeStoryNotFound, apperrors.CodeOf(err, ""))

	tasks, err := repos.Tasks.ListForStory(ctx, f.story.ID, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	other, err := repos.Users.Create(ctx, user.CreateUserInput{Username: "bob", Name: "Bob"})
	require.NoError(t, err)

	require.NoError(t, repos.Memberships.Add(ctx, org.Membership{UserID: other.ID, OrgID: f.org.ID, Tier: org.TierVisitor}))
	err = repos.Memberships.Add(ctx, org.Membership{UserID: other.ID, OrgID: f.org.ID, Tier: org.TierAdmin})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, repos.Memberships.UpdateTier(ctx, f.org.ID, other.ID, org.TierAdmin))
	m, err := repos.Memberships.Get(ctx, f.org.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, org.TierAdmin, m.Tier)

	members, err := repos.Memberships.ListMembers(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Bob", members[1].UserName)

	summaries, err := repos.Orgs.ListForUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, org.TierAdmin, summaries[0].Tier)

	require.NoError(t, repos.Memberships.Remove(ctx, f.org.ID, other.ID))
	assert.Error(t, repos.Memberships.Remove(ctx, f.org.ID, other.ID))
}

func TestStories_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	p2, err := repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: f.org.ID, Name: "Second"})
	require.NoError(t, err)
	_, err = repos.Stories.Create(ctx, story.CreateStoryInput{ProjectID: p2.ID, Storyteller: "Linus"})
	require.NoError(t, err)

	byOrg, err := repos.Stories.List(ctx, story.Filter{OrgID: &f.org.ID})
	require.NoError(t, err)
	assert.Len(t, byOrg, 2)

	byProject, err := repos.Stories.List(ctx, story.Filter{ProjectID: &p2.ID})
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	byCurator, err := repos.Stories.List(ctx, story.Filter{CuratorID: &f.user.ID})
	require.NoError(t, err)
	require.Len(t, byCurator, 1)
	assert.Equal(t, f.story.ID, byCurator[0].ID)

	listings, err := repos.Projects.ListByOrg(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 1, listings[0].StoryCount)
}

func TestTags_GetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	key := tag.Key{Name: "place", Value: "Lisbon", CreatedBy: tag.CreatedByComputer}
	a, err := repos.Tags.GetOrCreate(ctx, key)
	require.NoError(t, err)
	b, err := repos.Tags.GetOrCreate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	require.NoError(t, repos.Tags.AttachToStory(ctx, f.story.ID, a.ID))
	require.NoError(t, repos.Tags.AttachToStory(ctx, f.story.ID, a.ID))

	tags, err := repos.Tags.ListForStory(ctx, f.story.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestTasks_UpsertKeepsOneRowPerScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	scope := mltask.StoryScope(mltask.TypeTag, f.story.ID)
	first, err := repos.Tasks.UpsertStatus(ctx, scope, mltask.StatusInitialized)
	require.NoError(t, err)
	second, err := repos.Tasks.UpsertStatus(ctx, scope, mltask.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = repos.Tasks.UpsertStatus(ctx, mltask.ProjectScope(mltask.TypeSummarization, f.project.ID), mltask.StatusInitialized)
	require.NoError(t, err)

	tasks, err := repos.Tasks.ListForStory(ctx, f.story.ID, f.project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, mltask.StatusProcessing, tasks[0].Status)

	_, err = repos.Tasks.UpsertStatus(ctx, mltask.ProjectScope(mltask.TypeTag, f.project.ID), mltask.StatusInitialized)
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
}

func TestTasks_FailStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return base })

	_, err := repos.Tasks.UpsertStatus(ctx, mltask.StoryScope(mltask.TypeTag, f.story.ID), mltask.StatusProcessing)
	require.NoError(t, err)
	_, err = repos.Tasks.UpsertStatus(ctx, mltask.StoryScope(mltask.TypeTranscription, f.story.ID), mltask.StatusCompleted)
	require.NoError(t, err)

	n, err := repos.Tasks.FailStale(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repos.Tasks.FailStale(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tasks, err := repos.Tasks.ListForStory(ctx, f.story.ID, f.project.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.Type == mltask.TypeTag {
			assert.Equal(t, mltask.StatusFailed, task.Status)
		} else {
			assert.Equal(t, mltask.StatusCompleted, task.Status)
		}
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()
	boom := errors.New("boom")

	err := repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := repos.Stories.Create(ctx, story.CreateStoryInput{ProjectID: f.project.ID, Storyteller: "tmp"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stories, err := repos.Stories.List(ctx, story.Filter{ProjectID: &f.project.ID})
	require.NoError(t, err)
	assert.Len(t, stories, 1)
}

func TestRunInTx_RollsBackOnPanic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	assert.Panics(t, func() {
		_ = repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
			_, _ = repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: f.org.ID, Name: "tmp"})
			panic("boom")
		})
	})

	listings, err := repos.Projects.ListByOrg(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestRunInTx_Nested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repositories()

	err := repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
			_, err := repos.Projects.Create(ctx, project.CreateProjectInput{OrgID: f.org.ID, Name: "nested"})
			return err
		})
	})
	require.NoError(t, err)

	listings, err := repos.Projects.ListByOrg(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestCanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Repositories().Users.GetByID(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

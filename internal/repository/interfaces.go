package repository

import (
	"context"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/tag"
	"commonthread/internal/domain/user"
)

// Provider-side interfaces satisfied by the postgres and memory backends.
// Lookups of missing rows return an error wrapping errors.ErrNotFound;
// unique violations return one wrapping errors.ErrConflict.

// TxManager runs fn inside one transaction. Repositories called with the
// ctx passed to fn join that transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetMany(ctx context.Context, ids []int64) ([]*user.User, error)
	Update(ctx context.Context, id int64, input user.UpdateUserInput) error
	Delete(ctx context.Context, id int64) error
}

type OrgRepository interface {
	Create(ctx context.Context, input org.CreateOrgInput) (*org.Organization, error)
	GetByID(ctx context.Context, id int64) (*org.Organization, error)
	ListForUser(ctx context.Context, userID int64) ([]org.Summary, error)
	Update(ctx context.Context, id int64, input org.UpdateOrgInput) error
	Delete(ctx context.Context, id int64) error
}

type MembershipRepository interface {
	Add(ctx context.Context, m org.Membership) error
	Get(ctx context.Context, orgID, userID int64) (*org.Membership, error)
	ListMembers(ctx context.Context, orgID int64) ([]org.Member, error)
	UpdateTier(ctx context.Context, orgID, userID int64, tier org.Tier) error
	Remove(ctx context.Context, orgID, userID int64) error
}

type ProjectRepository interface {
	Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error)
	GetByID(ctx context.Context, id int64) (*project.Project, error)
	ListByOrg(ctx context.Context, orgID int64) ([]project.Listing, error)
	Update(ctx context.Context, id int64, input project.UpdateProjectInput) error
	SetInsight(ctx context.Context, id int64, insight string) error
	Delete(ctx context.Context, id int64) error
}

type StoryRepository interface {
	Create(ctx context.Context, input story.CreateStoryInput) (*story.Story, error)
	GetByID(ctx context.Context, id int64) (*story.Story, error)
	List(ctx context.Context, filter story.Filter) ([]*story.Story, error)
	Update(ctx context.Context, id int64, input story.UpdateStoryInput) error
	Delete(ctx context.Context, id int64) error
}

type TagRepository interface {
	// GetOrCreate returns the tag matching key, inserting it when absent.
	GetOrCreate(ctx context.Context, key tag.Key) (*tag.Tag, error)
	// AttachToStory is a no-op when the pair already exists.
	AttachToStory(ctx context.Context, storyID, tagID int64) error
	AttachToProject(ctx context.Context, projectID, tagID int64) error
	ListForStory(ctx context.Context, storyID int64) ([]tag.Tag, error)
	ListForProject(ctx context.Context, projectID int64) ([]tag.Tag, error)
}

type MLTaskRepository interface {
	// UpsertStatus creates or updates the single row for scope.
	UpsertStatus(ctx context.Context, scope mltask.Scope, status mltask.Status) (*mltask.Task, error)
	// ListForStory returns the story's own tasks plus its project's tasks.
	ListForStory(ctx context.Context, storyID, projectID int64) ([]*mltask.Task, error)
	// FailStale moves tasks stuck in processing since before cutoff to failed.
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Tx          TxManager
	Users       UserRepository
	Orgs        OrgRepository
	Memberships MembershipRepository
	Projects    ProjectRepository
	Stories     StoryRepository
	Tags        TagRepository
	Tasks       MLTaskRepository
	Close       func()
}

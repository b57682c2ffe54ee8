package handler

import (
	"context"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/tag"
	"commonthread/internal/domain/user"
	"commonthread/internal/pipeline"
	"commonthread/internal/storage/s3"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuthHandler interfaces
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

type TokenIssuer interface {
	Pair(principalID int64) (access, refresh string, err error)
	Refresh(refreshToken string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// UserHandler interfaces
type UserRepository interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, input user.UpdateUserInput) error
	Delete(ctx context.Context, id int64) error
}

type UserLookup interface {
	GetMany(ctx context.Context, ids []int64) ([]*user.User, error)
}

type OrgLister interface {
	ListForUser(ctx context.Context, userID int64) ([]org.Summary, error)
}

// OrgHandler interfaces
type OrgRepository interface {
	Create(ctx context.Context, input org.CreateOrgInput) (*org.Organization, error)
	GetByID(ctx context.Context, id int64) (*org.Organization, error)
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

type TierParser interface {
	ParseTier(value string) (org.Tier, error)
}

// ProjectHandler interfaces
type ProjectRepository interface {
	Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error)
	GetByID(ctx context.Context, id int64) (*project.Project, error)
	ListByOrg(ctx context.Context, orgID int64) ([]project.Listing, error)
	Update(ctx context.Context, id int64, input project.UpdateProjectInput) error
	Delete(ctx context.Context, id int64) error
}

type Chatter interface {
	Chat(ctx context.Context, background, message string) (string, error)
}

type ProjectGetter interface {
	GetByID(ctx context.Context, id int64) (*project.Project, error)
}

type OrgGetter interface {
	GetByID(ctx context.Context, id int64) (*org.Organization, error)
}

// StoryHandler interfaces
type StoryRepository interface {
	Create(ctx context.Context, input story.CreateStoryInput) (*story.Story, error)
	GetByID(ctx context.Context, id int64) (*story.Story, error)
	List(ctx context.Context, filter story.Filter) ([]*story.Story, error)
	Update(ctx context.Context, id int64, input story.UpdateStoryInput) error
	Delete(ctx context.Context, id int64) error
}

type TagRepository interface {
	GetOrCreate(ctx context.Context, key tag.Key) (*tag.Tag, error)
	AttachToStory(ctx context.Context, storyID, tagID int64) error
	AttachToProject(ctx context.Context, projectID, tagID int64) error
	ListForStory(ctx context.Context, storyID int64) ([]tag.Tag, error)
	ListForProject(ctx context.Context, projectID int64) ([]tag.Tag, error)
}

type TaskLister interface {
	ListForStory(ctx context.Context, storyID, projectID int64) ([]*mltask.Task, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, st *story.Story) (*pipeline.EnqueueResult, error)
}

// Storage interfaces (used by multiple handlers)
type Presigner interface {
	Presign(ctx context.Context, in s3.PresignInput) (*s3.Presigned, error)
}

// Buckets names the object storage buckets handlers presign against.
type Buckets struct {
	StoryAudio   string
	StoryImages  string
	UserProfiles string
	OrgProfiles  string
}

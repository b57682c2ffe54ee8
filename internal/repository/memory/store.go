// Package memory is an in-process repository backend for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/project"
	"commonthread/internal/domain/story"
	"commonthread/internal/domain/tag"
	"commonthread/internal/domain/user"
	"commonthread/internal/repository"
)

type membershipKey struct {
	orgID, userID int64
}

type pairKey struct {
	ownerID, tagID int64
}

type taskKey struct {
	taskType  mltask.TaskType
	storyID   int64
	projectID int64
}

type state struct {
	nextID      int64
	users       map[int64]user.User
	orgs        map[int64]org.Organization
	memberships map[membershipKey]org.Tier
	projects    map[int64]project.Project
	stories     map[int64]story.Story
	tags        map[int64]tag.Tag
	storyTags   map[pairKey]struct{}
	projectTags map[pairKey]struct{}
	tasks       map[taskKey]mltask.Task
}

func newState() state {
	return state{
		users:       make(map[int64]user.User),
		orgs:        make(map[int64]org.Organization),
		memberships: make(map[membershipKey]org.Tier),
		projects:    make(map[int64]project.Project),
		stories:     make(map[int64]story.Story),
		tags:        make(map[int64]tag.Tag),
		storyTags:   make(map[pairKey]struct{}),
		projectTags: make(map[pairKey]struct{}),
		tasks:       make(map[taskKey]mltask.Task),
	}
}

func (s state) clone() state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.stories {
		c.stories[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k := range s.storyTags {
		c.storyTags[k] = struct{}{}
	}
	for k := range s.projectTags {
		c.projectTags[k] = struct{}{}
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	return c
}

// Store holds every table behind one lock. Transactions are serialized and
// roll back by restoring a snapshot, so writes made outside RunInTx while a
// transaction is open are lost if it fails.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

// SetClock overrides the time source used for task timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

type txKey struct{}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		} else if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Repositories returns the store wired as a repository.Store.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Tx:          s,
		Users:       &UserRepository{s: s},
		Orgs:        &OrgRepository{s: s},
		Memberships: &MembershipRepository{s: s},
		Projects:    &ProjectRepository{s: s},
		Stories:     &StoryRepository{s: s},
		Tags:        &TagRepository{s: s},
		Tasks:       &MLTaskRepository{s: s},
		Close:       func() {},
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commonthread/internal/auth"
	"commonthread/internal/config"
	"commonthread/internal/domain/mltask"
	"commonthread/internal/domain/story"
	"commonthread/internal/ml"
	"commonthread/internal/pipeline"
	"commonthread/internal/rbac"
	"commonthread/internal/repository/memory"
	"commonthread/internal/storage/s3"
	"commonthread/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubPresigner struct{}

func (stubPresigner) Presign(_ context.Context, in s3.PresignInput) (*s3.Presigned, error) {
	return &s3.Presigned{
		URL:       "https://objects.test/" + in.Bucket + "/" + in.Key,
		Method:    stdhttp.MethodGet,
		ExpiresAt: time.Now().Add(in.Expiration),
	}, nil
}

type countingEnqueuer struct {
	stories []int64
}

func (e *countingEnqueuer) Enqueue(_ context.Context, st *story.Story) (*pipeline.EnqueueResult, error) {
	e.stories = append(e.stories, st.ID)
	return &pipeline.EnqueueResult{MessageIDs: map[mltask.TaskType]string{mltask.TypeTag: "m-1"}}, nil
}

type scriptedChatter struct {
	reply      string
	err        error
	background string
	message    string
}

func (c *scriptedChatter) Chat(_ context.Context, background, message string) (string, error) {
	c.background, c.message = background, message
	return c.reply, c.err
}

type testServer struct {
	t        *testing.T
	handler  stdhttp.Handler
	enqueuer *countingEnqueuer
	chatter  *scriptedChatter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
		Buckets: config.BucketConfig{
			StoryAudio:   "audio",
			StoryImages:  "images",
			UserProfiles: "users",
			OrgProfiles:  "orgs",
		},
		JWT: config.JWTConfig{
			AccessSecret:  "q7Rw2Ty9Ui4Op1As6Df3Gh8Jk5Lz0Xc2V",
			RefreshSecret: "M4nB7vC1xZ9lK3jH6gF0dS5aP8oI2uY4T",
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
		},
		Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost},
	}

	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	store := memory.NewStore().Repositories()
	checker := rbac.MustNew(rbac.DefaultConfig())
	resolver := rbac.NewResolver(checker, store.Stories, store.Projects, store.Orgs, store.Memberships)
	tokens := auth.NewTokenService(&cfg.JWT)
	enqueuer := &countingEnqueuer{}
	chatter := &scriptedChatter{reply: "They worked the docks."}

	srv := NewServer(&ServerDependencies{
		Config:    cfg,
		Store:     store,
		Tokens:    tokens,
		Guard:     auth.NewGuard(tokens, resolver, false),
		Checker:   checker,
		Hasher:    hasher,
		Presigner: stubPresigner{},
		Producer:  enqueuer,
		Chatter:   chatter,
	})
	return &testServer{t: t, handler: srv.Handler(), enqueuer: enqueuer, chatter: chatter}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	creds := map[string]string{"username": username, "password": "plum-orchard-lantern"}

	status, _ := s.do(stdhttp.MethodPost, "/user/create", "", creds)
	require.Equal(s.t, stdhttp.StatusCreated, status)

	status, body := s.do(stdhttp.MethodPost, "/login", "", creds)
	require.Equal(s.t, stdhttp.StatusOK, status)
	return body["access_token"].(string)
}

func (s *testServer) project(token, orgName string) int64 {
	s.t.Helper()

	status, body := s.do(stdhttp.MethodPost, "/org/create", token, map[string]string{"name": orgName})
	require.Equal(s.t, stdhttp.StatusCreated, status)

	status, body = s.do(stdhttp.MethodPost, "/project/create", token, map[string]interface{}{
		"org_id": body["org_id"],
		"name":   "Dockworkers",
	})
	require.Equal(s.t, stdhttp.StatusCreated, status)
	return int64(body["project_id"].(float64))
}

func TestHealthAndRouterErrors(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(stdhttp.MethodGet, "/health", "", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = s.do(stdhttp.MethodGet, "/login", "", nil)
	assert.Equal(t, stdhttp.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.login("marta")

	status, body := s.do(stdhttp.MethodPost, "/login", "", map[string]string{"username": "marta", "password": "wrong-password-here"})
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "BAD_CREDENTIALS", body["code"])

	status, body = s.do(stdhttp.MethodPost, "/login", "", map[string]string{"username": "nobody", "password": "wrong-password-here"})
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "BAD_CREDENTIALS", body["code"])

	status, body = s.do(stdhttp.MethodPost, "/login", "", map[string]string{"username": "marta"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "MISSING_FIELD", body["code"])
}

func TestProtectedRouteNeedsToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(stdhttp.MethodGet, "/user", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
	assert.Equal(t, "NO_TOKEN", body["code"])

	status, body = s.do(stdhttp.MethodGet, "/user", "not-a-jwt", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
	assert.Equal(t, "MALFORMED_TOKEN", body["code"])
}

func TestStoryCreate(t *testing.T) {
	s := newTestServer(t)
	token := s.login("ines")
	projectID := s.project(token, "Harbor Voices")

	status, body := s.do(stdhttp.MethodPost, "/story/create", token, map[string]interface{}{
		"project_id":   projectID,
		"storyteller":  "Tomas",
		"date":         "14/10/2026",
		"text_content": "We unloaded the ships at dawn.",
	})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "BAD_DATE_FORMAT", body["code"])
	assert.Empty(t, s.enqueuer.stories)

	status, body = s.do(stdhttp.MethodPost, "/story/create", token, map[string]interface{}{
		"proj_id":      projectID,
		"storyteller":  "Tomas",
		"date":         "2026-10-14",
		"text_content": "We unloaded the ships at dawn.",
	})
	require.Equal(t, stdhttp.StatusCreated, status)
	storyID := int64(body["story_id"].(float64))
	assert.Equal(t, []int64{storyID}, s.enqueuer.stories)

	outsider := s.login("pavel")
	status, body = s.do(stdhttp.MethodPost, "/story/create", outsider, map[string]interface{}{
		"project_id":   projectID,
		"storyteller":  "Pavel",
		"text_content": "Not my project.",
	})
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "NOT_MEMBER", body["code"])
	assert.Len(t, s.enqueuer.stories, 1)
}

func TestRequestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(stdhttp.MethodGet, "/health", "", nil)
	s.do(stdhttp.MethodGet, "/user", "", nil)

	status, body := s.do(stdhttp.MethodGet, "/metrics/requests", "", nil)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.EqualValues(t, 2, body["total_requests"])
	assert.EqualValues(t, 1, body["denied"])
}

func TestCreateUsesTheAuthorizedResource(t *testing.T) {
	s := newTestServer(t)
	owner := s.login("ada")
	ownerProject := s.project(owner, "Harbor Voices")

	outsider := s.login("ivo")
	outsiderProject := s.project(outsider, "Quarry Letters")

	status, body := s.do(stdhttp.MethodGet, fmt.Sprintf("/project/%d", ownerProject), owner, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	ownerOrg := int64(body["org_id"].(float64))

	status, body = s.do(stdhttp.MethodGet, fmt.Sprintf("/project/%d", outsiderProject), outsider, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	outsiderOrg := int64(body["org_id"].(float64))

	status, body = s.do(stdhttp.MethodPost, fmt.Sprintf("/project/create?org_id=%d", outsiderOrg), outsider, map[string]interface{}{
		"org_id": ownerOrg,
		"name":   "Planted",
	})
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "NOT_MEMBER", body["code"])

	status, body = s.do(stdhttp.MethodPost, fmt.Sprintf("/story/create?project_id=%d", outsiderProject), outsider, map[string]interface{}{
		"project_id":   ownerProject,
		"storyteller":  "Ivo",
		"text_content": "Planted story.",
	})
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "NOT_MEMBER", body["code"])

	status, body = s.do(stdhttp.MethodPost, fmt.Sprintf("/story/create?project_id=%d", ownerProject), outsider, map[string]interface{}{
		"storyteller":  "Ivo",
		"text_content": "No project in the body.",
	})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "MISSING_FIELD", body["code"])

	status, body = s.do(stdhttp.MethodPost, "/story/create", outsider, map[string]interface{}{
		"project_id":   outsiderProject,
		"proj_id":      ownerProject,
		"storyteller":  "Ivo",
		"text_content": "Mixed keys.",
	})
	require.Equal(t, stdhttp.StatusCreated, status)
	status, body = s.do(stdhttp.MethodGet, fmt.Sprintf("/story/%.0f", body["story_id"].(float64)), outsider, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.EqualValues(t, outsiderProject, body["project_id"])

	assert.Empty(t, storiesIn(t, s, owner, ownerProject))
}

func storiesIn(t *testing.T, s *testServer, token string, projectID int64) []interface{} {
	t.Helper()
	status, body := s.do(stdhttp.MethodGet, fmt.Sprintf("/stories?project_id=%d", projectID), token, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	stories, _ := body["stories"].([]interface{})
	return stories
}

func TestProjectChat(t *testing.T) {
	s := newTestServer(t)
	token := s.login("lena")
	projectID := s.project(token, "Harbor Voices")
	chatPath := fmt.Sprintf("/project/%d/chat", projectID)
	question := map[string]string{"user_message": "What work did they do?"}

	status, body := s.do(stdhttp.MethodPost, chatPath, "", question)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
	assert.Equal(t, "NO_TOKEN", body["code"])

	status, body = s.do(stdhttp.MethodPost, chatPath, token, map[string]string{})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "MISSING_FIELD", body["code"])

	status, body = s.do(stdhttp.MethodPost, chatPath, token, question)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "They worked the docks.", body["reply"])
	assert.Empty(t, s.chatter.background)

	for _, text := range []string{"We unloaded the ships at dawn.", "", "The cranes were loud."} {
		status, _ = s.do(stdhttp.MethodPost, "/story/create", token, map[string]interface{}{
			"project_id":   projectID,
			"storyteller":  "Tomas",
			"text_content": text,
		})
		require.Equal(t, stdhttp.StatusCreated, status)
	}

	status, _ = s.do(stdhttp.MethodPost, chatPath, token, question)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "We unloaded the ships at dawn.\n\nThe cranes were loud.", s.chatter.background)
	assert.Equal(t, "What work did they do?", s.chatter.message)

	s.chatter.err = fmt.Errorf("%w: perplexity returned 502", ml.ErrBackendUnavailable)
	status, body = s.do(stdhttp.MethodPost, chatPath, token, question)
	assert.Equal(t, stdhttp.StatusServiceUnavailable, status)
	assert.Equal(t, "ML_BACKEND_UNREACHABLE", body["code"])

	status, body = s.do(stdhttp.MethodPost, "/project/9999/chat", token, question)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "PROJECT_NOT_FOUND", body["code"])
}

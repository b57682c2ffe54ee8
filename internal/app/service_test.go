package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commonthread/internal/config"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            "0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
		AWS:   config.AWSConfig{Region: "us-east-1"},
		Buckets: config.BucketConfig{
			StoryAudio:   "audio",
			StoryImages:  "images",
			UserProfiles: "users",
			OrgProfiles:  "orgs",
		},
		JWT: config.JWTConfig{
			AccessSecret:  "k3J9xQ2mV8pL5wR1tY7uZ4aB6cD0eF2gH",
			RefreshSecret: "Zp8Lq3Wm6Xn1Vb4Rc7Ts0Yd2Ue5If9OgJ",
			AccessTTL:     2 * time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Queue: config.QueueConfig{
			Driver:      config.QueueDriverMemory,
			WaitTime:    time.Second,
			MaxMessages: 10,
		},
		ML: config.MLConfig{
			Summarizer:  config.MLDriverLocal,
			Tagger:      config.MLDriverLocal,
			Chat:        config.MLDriverLocal,
			HTTPTimeout: time.Second,
		},
		Worker: config.WorkerConfig{StaleAfter: time.Hour, ReapInterval: time.Hour},
	}
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (c client) register(username string) string {
	c.t.Helper()
	creds := map[string]string{"username": username, "password": "correct-horse-battery"}

	status, _ := c.do(http.MethodPost, "/user/create", "", creds)
	require.Equal(c.t, http.StatusCreated, status)

	status, body := c.do(http.MethodPost, "/login", "", creds)
	require.Equal(c.t, http.StatusOK, status)
	return body["access_token"].(string)
}

func idOf(t *testing.T, body map[string]interface{}, key string) int64 {
	t.Helper()
	v, ok := body[key].(float64)
	require.True(t, ok, "missing %s in %v", key, body)
	return int64(v)
}

func TestAPI_StoryLifecycleThroughWorker(t *testing.T) {
	api, err := NewAPI(memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer api.parts.close()
	require.NotNil(t, api.worker)

	c := client{t: t, h: api.Handler()}
	alice := c.register("alice")
	bob := c.register("bob")

	status, body := c.do(http.MethodPost, "/org/create", alice, map[string]string{"name": "River Archive"})
	require.Equal(t, http.StatusCreated, status)
	orgID := idOf(t, body, "org_id")

	status, body = c.do(http.MethodPost, "/project/create", alice, map[string]interface{}{
		"org_id": orgID,
		"name":   "Oral histories",
	})
	require.Equal(t, http.StatusCreated, status)
	projectID := idOf(t, body, "project_id")

	status, body = c.do(http.MethodPost, "/story/create", alice, map[string]interface{}{
		"project_id":   projectID,
		"storyteller":  "Grandma Rose",
		"text_content": "The river flooded the valley in spring. Every family rebuilt their farms along the river.",
	})
	require.Equal(t, http.StatusCreated, status)
	storyID := idOf(t, body, "story_id")
	statusPath := fmt.Sprintf("/story/%d/ml-status", storyID)

	status, body = c.do(http.MethodGet, statusPath, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"tag": "initialized", "summarization": "initialized"}, taskStatuses(body))

	status, body = c.do(http.MethodPost, fmt.Sprintf("/project/%d/chat", projectID), alice, map[string]string{
		"user_message": "What happened to the river?",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["reply"], "The river flooded the valley in spring.")

	status, body = c.do(http.MethodGet, fmt.Sprintf("/story/%d", storyID), bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_MEMBER", body["code"])

	status, body = c.do(http.MethodGet, "/story/9999", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "STORY_NOT_FOUND", body["code"])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = api.worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, body := c.do(http.MethodGet, statusPath, alice, nil)
		s := taskStatuses(body)
		return s["tag"] == "completed" && s["summarization"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	status, body = c.do(http.MethodGet, fmt.Sprintf("/project/%d", projectID), alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["insight"])
}

func TestAPI_RejectsWeakSecrets(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWT.AccessSecret = "short"

	_, err := NewAPI(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWorker_UnknownTaskTypeIsAcknowledged(t *testing.T) {
	w, err := NewWorker(memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	resp, err := w.HandleSQSEvent(context.Background(), sqsEvent(
		record("m-1", `{"job_id":"1_bogus_1","task_type":"bogus","story_id":1}`),
		record("m-2", `not json`),
	))
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m-2", resp.BatchItemFailures[0].ItemIdentifier)
}

func taskStatuses(body map[string]interface{}) map[string]string {
	out := map[string]string{}
	tasks, _ := body["tasks"].([]interface{})
	for _, raw := range tasks {
		task, _ := raw.(map[string]interface{})
		out[fmt.Sprint(task["task_type"])] = fmt.Sprint(task["status"])
	}
	return out
}

func record(id, body string) events.SQSMessage {
	return events.SQSMessage{MessageId: id, Body: body}
}

func sqsEvent(records ...events.SQSMessage) events.SQSEvent {
	return events.SQSEvent{Records: records}
}

package s3

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"commonthread/internal/config"
	awsinfra "commonthread/internal/infra/aws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	sess, err := awsinfra.NewSession(&config.AWSConfig{
		Region:          "us-east-2",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Endpoint:        "http://localhost:4566",
	})
	require.NoError(t, err)

	c := NewClient(sess)
	c.now = func() time.Time { return time.Unix(1714560000, 0) }
	return c
}

func TestPresignDownload(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Presign(context.Background(), PresignInput{
		Bucket:     "ct-story-audio",
		Key:        "stories/7/a.mp3",
		Op:         OpDownload,
		Expiration: 5 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, out.Method)
	assert.Empty(t, out.Fields)
	assert.Equal(t, time.Unix(1714560300, 0), out.ExpiresAt)

	u, err := url.Parse(out.URL)
	require.NoError(t, err)
	assert.Equal(t, "/ct-story-audio/stories/7/a.mp3", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignUploadCarriesContentType(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Presign(context.Background(), PresignInput{
		Bucket:      "ct-story-images",
		Key:         "k.png",
		Op:          OpUpload,
		ContentType: "image/png",
		Expiration:  time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, out.Method)
	assert.Equal(t, map[string]string{"key": "k.png", "Content-Type": "image/png"}, out.Fields)
	assert.Contains(t, strings.ToLower(out.URL), "content-type")
}

func TestPresignRejectsBadInput(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Presign(context.Background(), PresignInput{Bucket: "b", Key: "k", Op: "copy"})
	assert.Error(t, err)

	_, err = c.Presign(context.Background(), PresignInput{Bucket: "", Key: "k", Op: OpDownload})
	assert.Error(t, err)
}

func TestBuildObjectKey(t *testing.T) {
	assert.Equal(t, "a.txt", BuildObjectKey("", "a.txt"))
	assert.Equal(t, "stories/1/a.txt", BuildObjectKey("stories/1", "a.txt"))
	assert.Equal(t, "stories/1/a.txt", BuildObjectKey("stories/1/", "a.txt"))

	key := NewObjectKey("profiles", "me.JPG")
	assert.True(t, strings.HasPrefix(key, "profiles/"))
	assert.True(t, strings.HasSuffix(key, ".JPG"))
}

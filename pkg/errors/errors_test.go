package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("story not found").WithCode(CodeStoryNotFound))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeStoryNotFound, CodeOf(err, CodeInternal))
	assert.Equal(t, "lookup: story not found: resource not found", err.Error())
}

func TestCodeOf_Fallback(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom"), CodeInternal))
}

func TestUnavailable_WrapsBoth(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Unavailable(CodeBrokerUnreachable, "queue unreachable", cause)

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeBrokerUnreachable, err.Code)
}

func TestNewResponse(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	resp := NewResponse(CodeNoToken, "token missing")

	assert.False(t, resp.Success)
	assert.Equal(t, "token missing", resp.Error)
	assert.Equal(t, CodeNoToken, resp.Code)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.Timestamp)
}

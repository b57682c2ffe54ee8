package mltask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobIDAndDedupID(t *testing.T) {
	at := time.Unix(1714560000, 0)

	job := JobID(42, TypeTranscription, at)
	assert.Equal(t, "42_transcription_1714560000", job)
	assert.Equal(t, "0-42_transcription_1714560000", DedupID(TypeTranscription, job))
	assert.Equal(t, "1-x", DedupID(TypeTag, "x"))
	assert.Equal(t, "2-x", DedupID(TypeSummarization, "x"))
}

func TestScopeValidate(t *testing.T) {
	assert.NoError(t, StoryScope(TypeTag, 1).Validate())
	assert.NoError(t, ProjectScope(TypeSummarization, 1).Validate())

	assert.Error(t, ProjectScope(TypeTag, 1).Validate())
	assert.Error(t, StoryScope(TypeSummarization, 1).Validate())

	storyID, projectID := int64(1), int64(2)
	assert.Error(t, Scope{Type: TypeTag, StoryID: &storyID, ProjectID: &projectID}.Validate())
	assert.Error(t, Scope{Type: TypeTag}.Validate())
}

func TestDecodeMessage(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"job_id":"7_tag_1","task_type":"tag","story_id":7}`))
	require.NoError(t, err)
	assert.Equal(t, TypeTag, m.TaskType)
	require.NotNil(t, m.StoryID)
	assert.Equal(t, int64(7), *m.StoryID)
	assert.Nil(t, m.ProjectID)

	m, err = DecodeMessage([]byte(`{"job_id":"7_bogus_1","task_type":"bogus"}`))
	require.NoError(t, err)
	assert.False(t, m.TaskType.Known())

	_, err = DecodeMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"task_type":"tag"}`))
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusInitialized.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

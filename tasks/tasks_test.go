package tasks

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTaskStatus(t *testing.T) {
	complete := []TaskStatus{TaskStatusCompletedSuccess, TaskStatusCompletedFailure, TaskStatusCanceled}
	submitted := []TaskStatus{TaskStatusSubmitted, TaskStatusStarted, TaskStatusProcessing}
	for _, s := range complete {
		assert.True(t, s.Complete(), s)
		assert.False(t, s.Submitted(), s)
	}
	for _, s := range submitted {
		assert.False(t, s.Complete(), s)
		assert.True(t, s.Submitted(), s)
	}
	assert.False(t, TaskStatusFailed.Complete())
	assert.False(t, TaskStatusFailed.Submitted())
}

func TestCachedDocumentPatch(t *testing.T) {
	t.Run("Failed tasks are mirrored", func(t *testing.T) {
		patch, ok, err := cachedDocumentPatch([]byte(`{"failed_tasks":["ctc_decode"],"failed_chunks":{"k":["ctc_decode"]}}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"failed_tasks":["ctc_decode"]}`, string(patch))
	})
	t.Run("Other fields are not", func(t *testing.T) {
		_, ok, err := cachedDocumentPatch([]byte(`{"failed_chunks":{"k":["ctc_decode"]}}`))
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("Invalid patch", func(t *testing.T) {
		_, _, err := cachedDocumentPatch([]byte(`[`))
		assert.Error(t, err)
	})
}

func TestCachedPropertiesKey(t *testing.T) {
	assert.Equal(t, "doc-1-cached-properties", cachedPropertiesKey("doc-1"))
}

package redis

import (
	"encoding/json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"testing"
)

type status struct {
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	Errors   []string `json:"error_messages"`
}

type doc struct {
	JobID    string            `json:"job_id"`
	Statuses map[string]status `json:"task_statuses"`
}

func asMap(t *testing.T, raw []byte) map[string]interface{} {
	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestApplyUpdatePreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"job_id": "job-1",
		"owner": "sequencer",
		"task_statuses": {
			"ctc_decode": {"status": "submitted", "attempts": 0, "error_messages": null},
			"ocr": {"status": "completed - success", "attempts": 1, "error_messages": null}
		}
	}`)
	var d doc
	merged, patch, err := applyUpdate(raw, &d, func() {
		s := d.Statuses["ctc_decode"]
		s.Status = "started"
		s.Attempts++
		d.Statuses["ctc_decode"] = s
	})
	require.NoError(t, err)

	expected := asMap(t, []byte(`{
		"job_id": "job-1",
		"owner": "sequencer",
		"task_statuses": {
			"ctc_decode": {"status": "started", "attempts": 1, "error_messages": null},
			"ocr": {"status": "completed - success", "attempts": 1, "error_messages": null}
		}
	}`))
	if diff := cmp.Diff(expected, asMap(t, merged)); diff != "" {
		t.Errorf("merged document mismatch (-want +got):\n%s", diff)
	}
	expectedPatch := asMap(t, []byte(`{"task_statuses": {"ctc_decode": {"status": "started", "attempts": 1}}}`))
	if diff := cmp.Diff(expectedPatch, asMap(t, patch)); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyUpdateNoChange(t *testing.T) {
	raw := []byte(`{"job_id": "job-1", "extra": [1, 2]}`)
	var d doc
	merged, patch, err := applyUpdate(raw, &d, func() {})
	require.NoError(t, err)
	if diff := cmp.Diff(asMap(t, raw), asMap(t, merged)); diff != "" {
		t.Errorf("document changed (-want +got):\n%s", diff)
	}
	require.JSONEq(t, `{}`, string(patch))
}

func TestApplyUpdateInvalidDocument(t *testing.T) {
	var d doc
	_, _, err := applyUpdate([]byte(`not json`), &d, func() {})
	require.Error(t, err)
}

func TestMergePatchCreatesFields(t *testing.T) {
	merged, err := mergePatch([]byte(`{}`), []byte(`{"failed_tasks": ["ctc_decode"]}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"failed_tasks": ["ctc_decode"]}`, string(merged))
}

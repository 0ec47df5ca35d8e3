package tasks

import (
	"encoding/json"
	"text2phenotype.com/ctcdecode/redis"
)

const DocumentsDB redis.DB = 0

type DocumentTask struct {
	FailedTasks  []string            `json:"failed_tasks"`
	FailedChunks map[string][]string `json:"failed_chunks"`
}

type DocumentTaskCached struct {
	DocInfo     map[string]interface{} `json:"document_info"`
	FailedTasks []string               `json:"failed_tasks"`
	JobID       string                 `json:"job_id"`
	WorkType    string                 `json:"work_type"`
}

type DocumentTasks struct {
	client redis.Client
}

func (tasks DocumentTasks) Get(redisKey string) (*DocumentTask, error) {
	var task DocumentTask
	if err := tasks.client.GetDocument(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) GetCached(redisKey string) (*DocumentTaskCached, error) {
	var task DocumentTaskCached
	if err := tasks.client.GetDocument(cachedPropertiesKey(redisKey), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update changes the document and mirrors failed_tasks into its cached properties.
func (tasks DocumentTasks) Update(redisKey string, updateFunc func(task *DocumentTask)) error {
	var task DocumentTask
	patch, err := tasks.client.UpdateDocument(redisKey, &task, func() {
		if task.FailedChunks == nil {
			task.FailedChunks = map[string][]string{}
		}
		updateFunc(&task)
	})
	if err != nil {
		return err
	}
	cachedPatch, ok, err := cachedDocumentPatch(patch)
	if err != nil || !ok {
		return err
	}
	return tasks.client.PatchDocument(cachedPropertiesKey(redisKey), cachedPatch)
}

// cachedDocumentPatch keeps the part of a document patch that the cached
// properties document shares with it.
func cachedDocumentPatch(patch []byte) ([]byte, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, false, err
	}
	failedTasks, ok := fields["failed_tasks"]
	if !ok {
		return nil, false, nil
	}
	b, err := json.Marshal(map[string]json.RawMessage{"failed_tasks": failedTasks})
	return b, true, err
}

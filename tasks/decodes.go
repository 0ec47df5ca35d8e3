package tasks

import (
	"text2phenotype.com/ctcdecode/redis"
)

const DecodesDB redis.DB = 2

// DecodeTaskName identifies this worker in task statuses and failure lists.
const DecodeTaskName = "ctc_decode"

type DecodeTask struct {
	DocID            string             `json:"document_id"`
	JobID            string             `json:"job_id"`
	EmissionsFileKey string             `json:"emissions_file_key"`
	DecoderConfig    string             `json:"decoder_config"`
	TaskStatuses     DecodeTaskStatuses `json:"task_statuses"`
}

type DecodeTaskStatuses struct {
	Decode TaskInfo `json:"ctc_decode"`
}

type DecodeTasks struct {
	client redis.Client
}

func (tasks DecodeTasks) Get(redisKey string) (*DecodeTask, error) {
	var task DecodeTask
	if err := tasks.client.GetDocument(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DecodeTasks) Update(redisKey string, updateFunc func(task *DecodeTask)) error {
	var task DecodeTask
	_, err := tasks.client.UpdateDocument(redisKey, &task, func() { updateFunc(&task) })
	return err
}

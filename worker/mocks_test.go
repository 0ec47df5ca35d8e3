package worker

import (
	"errors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/ctcdecode/pipeline"
	"text2phenotype.com/ctcdecode/tasks"
)

// callLog records the order in which the worker reaches its collaborators.
type callLog struct {
	calls []string
}

func (log *callLog) record(call string) {
	log.calls = append(log.calls, call)
}

// mockConfig lists the calls that fail and the values the mocks return.
type mockConfig struct {
	failing       map[string]bool
	decodeTask    *tasks.DecodeTask
	jobTask       *tasks.JobTask
	docTask       *tasks.DocumentTaskCached
	emissions     []byte
	pipelineReply string
	pipelineFails bool
}

func (config mockConfig) fails(call string) error {
	if config.failing[call] {
		return errors.New("mock: " + call + " failed")
	}
	return nil
}

type redisMock struct {
	*callLog
	config        mockConfig
	errorMessages []string
}

type rmqMock struct {
	*callLog
	config mockConfig
	pinged *Message
}

type s3Mock struct {
	*callLog
	config     mockConfig
	resultKey  string
	resultBody string
}

type pipelineMock struct {
	*callLog
	config   mockConfig
	requests []pipeline.Request
}

func (mock *pipelineMock) pipeline(request pipeline.Request) <-chan string {
	mock.record("pipeline")
	mock.requests = append(mock.requests, request)
	ch := make(chan string, 1)
	if !mock.config.pipelineFails {
		ch <- mock.config.pipelineReply
	}
	close(ch)
	return ch
}

func (mock *redisMock) close() {}

func (mock *redisMock) getDecodeTask(redisKey string) (*tasks.DecodeTask, error) {
	mock.record("redis.getDecodeTask")
	if err := mock.config.fails("redis.getDecodeTask"); err != nil {
		return nil, err
	}
	if mock.config.decodeTask == nil {
		return &tasks.DecodeTask{}, nil
	}
	task := *mock.config.decodeTask
	return &task, nil
}

func (mock *redisMock) getJobTask(task *Task) (*tasks.JobTask, error) {
	mock.record("redis.getJobTask")
	if err := mock.config.fails("redis.getJobTask"); err != nil {
		return nil, err
	}
	if mock.config.jobTask == nil {
		return &tasks.JobTask{}, nil
	}
	jobTask := *mock.config.jobTask
	return &jobTask, nil
}

func (mock *redisMock) getDocTask(task *Task) (*tasks.DocumentTaskCached, error) {
	mock.record("redis.getDocTask")
	if err := mock.config.fails("redis.getDocTask"); err != nil {
		return nil, err
	}
	if mock.config.docTask == nil {
		return &tasks.DocumentTaskCached{}, nil
	}
	docTask := *mock.config.docTask
	return &docTask, nil
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.record("redis.onTaskStarted")
	return mock.config.fails("redis.onTaskStarted")
}

func (mock *redisMock) onTaskCancelled(task *Task, errorMessages ...string) error {
	mock.record("redis.onTaskCancelled")
	mock.errorMessages = append(mock.errorMessages, errorMessages...)
	return mock.config.fails("redis.onTaskCancelled")
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.record("redis.onTaskExceededRetries")
	return mock.config.fails("redis.onTaskExceededRetries")
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.record("redis.onTaskFailedWithError")
	mock.errorMessages = append(mock.errorMessages, err.Error())
	return mock.config.fails("redis.onTaskFailedWithError")
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.record("redis.onTaskComplete")
	return mock.config.fails("redis.onTaskComplete")
}

func (mock *rmqMock) close() {}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, ctcLogger *zerolog.Logger) {
	mock.record("rmq.rejectDelivery")
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) pingSequencer(task *Task, message Message) error {
	mock.record("rmq.pingSequencer")
	mock.pinged = &message
	return mock.config.fails("rmq.pingSequencer")
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.record("rmq.acknowledgeDelivery")
	return mock.config.fails("rmq.acknowledgeDelivery")
}

func (mock *s3Mock) close() {}

func (mock *s3Mock) getEmissions(task *Task) ([]byte, error) {
	mock.record("s3.getEmissions")
	if err := mock.config.fails("s3.getEmissions"); err != nil {
		return nil, err
	}
	if mock.config.emissions == nil {
		return []byte(`{"probs": []}`), nil
	}
	return mock.config.emissions, nil
}

func (mock *s3Mock) saveResultsFile(task *Task, result string) error {
	mock.record("s3.saveResultsFile")
	mock.resultKey = getResultsFileKey(task)
	mock.resultBody = result
	return mock.config.fails("s3.saveResultsFile")
}

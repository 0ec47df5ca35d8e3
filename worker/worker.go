package worker

import (
	"context"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"sync"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/pipeline"
	"text2phenotype.com/ctcdecode/rmq"
	"text2phenotype.com/ctcdecode/s3client"
	"text2phenotype.com/ctcdecode/tasks"
)

type Config struct {
	TaskMaxRetries int `envconfig:"MDL_COMN_RETRY_TASK_COUNT_MAX" default:"3"`
}

// Worker consumes decode tasks from RMQ, keeps their state in Redis and moves
// emissions and results through S3.
type Worker struct {
	config    Config
	redis     redisTransactions
	s3        s3Transactions
	rmq       rmqTransactions
	ctcLogger *zerolog.Logger
	ppln      pipeline.Pipeline
	inFlight  sync.WaitGroup
}

func New(ppln pipeline.Pipeline) (*Worker, error) {
	ctcLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		ctcLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := &Worker{
		config:    config,
		ctcLogger: &ctcLogger,
		ppln:      ppln,
	}
	if err := worker.refreshRMQClient(); err != nil {
		ctcLogger.Error().Err(err).Msg("Could not create RMQ client")
		return nil, err
	}
	if err := worker.refreshS3Client(); err != nil {
		ctcLogger.Error().Err(err).Msg("Could not create S3 client")
		worker.rmq.close()
		return nil, err
	}
	if err := worker.refreshRedisClients(); err != nil {
		ctcLogger.Error().Err(err).Msg("Could not create Redis client")
		worker.rmq.close()
		worker.s3.close()
		return nil, err
	}
	return worker, nil
}

// StartWorker processes deliveries until ctx is done or a broken RMQ
// connection cannot be refreshed. Messages in flight are finished before it
// returns.
func (worker *Worker) StartWorker(ctx context.Context) error {
	defer worker.Close()
	defer worker.inFlight.Wait()
	for {
		select {
		case <-ctx.Done():
			worker.ctcLogger.Info().Msg("Stopping worker, waiting for messages in flight")
			return nil
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				worker.inFlight.Add(1)
				go func(delivery amqp.Delivery) {
					defer worker.inFlight.Done()
					worker.processMessage(&delivery)
				}(delivery)
				continue
			}
			if err := worker.recoverRMQ("deliveries channel has been closed", nil); err != nil {
				return err
			}
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverRMQ("response connection received error", rmqErr); err != nil {
				return err
			}
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverRMQ("request connection received error", rmqErr); err != nil {
				return err
			}
		}
	}
}

func (worker *Worker) recoverRMQ(reason string, rmqErr *amqp.Error) error {
	event := worker.ctcLogger.Error()
	if rmqErr != nil {
		event = event.Err(rmqErr)
	}
	event.Msgf("RMQ %s, trying to refresh RMQ client", reason)
	if err := worker.refreshRMQClient(); err != nil {
		return fmt.Errorf("rmq %s and refresh failed with: %w", reason, err)
	}
	return nil
}

func (worker *Worker) Close() {
	worker.redis.close()
	worker.s3.close()
	worker.rmq.close()
}

func (worker *Worker) refreshRedisClients() error {
	worker.ctcLogger.Info().Msg("Refreshing Redis client")
	if oldClient := worker.redis; oldClient != nil {
		defer oldClient.close()
	}
	tasksClient, err := tasks.NewClient()
	if err != nil {
		worker.ctcLogger.Err(err).Msg("Failed to refresh Redis client")
		return err
	}
	worker.redis = &redisClientWrapper{&tasksClient}
	worker.ctcLogger.Info().Msg("Refreshed Redis client")
	return nil
}

func (worker *Worker) refreshRMQClient() error {
	worker.ctcLogger.Info().Msg("Refreshing RMQ client")
	if oldClient := worker.rmq; oldClient != nil {
		defer oldClient.close()
	}
	rmqClient, err := rmq.NewClient()
	if err != nil {
		worker.ctcLogger.Err(err).Msg("Failed to refresh RMQ client")
		return err
	}
	worker.rmq = &rmqClientWrapper{rmqClient}
	worker.ctcLogger.Info().Msg("Refreshed RMQ client")
	return nil
}

func (worker *Worker) refreshS3Client() error {
	worker.ctcLogger.Info().Msg("Refreshing S3 client")
	if oldClient := worker.s3; oldClient != nil {
		defer oldClient.close()
	}
	s3Client, err := s3client.New()
	if err != nil {
		worker.ctcLogger.Err(err).Msg("Failed to refresh S3 client")
		return err
	}
	worker.s3 = &s3ClientWrapper{s3Client}
	worker.ctcLogger.Info().Msg("Refreshed S3 client")
	return nil
}

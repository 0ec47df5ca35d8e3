package tasks

import (
	"fmt"
	"text2phenotype.com/ctcdecode/redis"
)

type Client struct {
	Documents DocumentTasks
	Decodes   DecodeTasks
	Jobs      JobTasks
}

// NewClient opens one connection per task database.
func NewClient() (Client, error) {
	docRedisClient, err := redis.NewClient(DocumentsDB)
	if err != nil {
		return Client{}, err
	}
	jobsRedisClient, err := redis.NewClient(JobsDB)
	if err != nil {
		_ = docRedisClient.Close()
		return Client{}, err
	}
	decodesRedisClient, err := redis.NewClient(DecodesDB)
	if err != nil {
		_ = docRedisClient.Close()
		_ = jobsRedisClient.Close()
		return Client{}, err
	}
	return Client{
		Documents: DocumentTasks{client: docRedisClient},
		Jobs:      JobTasks{client: jobsRedisClient},
		Decodes:   DecodeTasks{client: decodesRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Decodes.client.Close()
	_ = client.Documents.client.Close()
	_ = client.Jobs.client.Close()
}

func cachedPropertiesKey(redisKey string) string {
	return fmt.Sprintf("%s-cached-properties", redisKey)
}

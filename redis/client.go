package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"time"
)

type DB int
type ReleaseLock func() error

var ErrNotFound = errors.New("document not found")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"MDL_COMN_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"MDL_COMN_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"MDL_COMN_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"MDL_COMN_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"MDL_COMN_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"MDL_COMN_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"MDL_COMN_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"MDL_COMN_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"MDL_COMN_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = redis.NewFailoverClusterClient(failoverOptions(&cfg, db))
	} else {
		client = redis.NewClient(options(&cfg, db))
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func failoverOptions(cfg *Config, db DB) *redis.FailoverOptions {
	timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
	opts := &redis.FailoverOptions{
		SentinelAddrs: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		opts.Password = cfg.Password
	}
	return opts
}

func options(cfg *Config, db DB) *redis.Options {
	opts := &redis.Options{
		Addr:       fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		opts.Password = cfg.Password
	}
	return opts
}

// GetRaw returns the stored JSON document, ErrNotFound when the key is missing.
func (client *Client) GetRaw(redisKey string) ([]byte, error) {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, redisKey)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", redisKey, err)
	}
	return b, nil
}

// GetDocument decodes the fields of the stored document that doc declares.
func (client *Client) GetDocument(redisKey string, doc interface{}) error {
	raw, err := client.GetRaw(redisKey)
	if err != nil {
		return err
	}
	return decode(raw, doc)
}

// UpdateDocument loads doc under a lock, runs update on it and writes back only
// the fields update changed; fields doc does not declare are preserved.
// The applied merge patch is returned so related documents can follow it.
func (client *Client) UpdateDocument(redisKey string, doc interface{}, update func()) (patch []byte, err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	raw, err := client.GetRaw(redisKey)
	if err != nil {
		return nil, err
	}
	merged, patch, err := applyUpdate(raw, doc, update)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", redisKey, err)
	}
	return patch, client.SaveRaw(redisKey, merged)
}

// PatchDocument merges a JSON merge patch into the stored document.
// A missing document is created from the patch.
func (client *Client) PatchDocument(redisKey string, patch []byte) error {
	raw, err := client.GetRaw(redisKey)
	if errors.Is(err, ErrNotFound) {
		raw = []byte("{}")
	} else if err != nil {
		return err
	}
	merged, err := mergePatch(raw, patch)
	if err != nil {
		return fmt.Errorf("patch %s: %w", redisKey, err)
	}
	return client.SaveRaw(redisKey, merged)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	locker := redislock.New(client.client)
	strategy := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lock, err := locker.Obtain(ctx, fmt.Sprintf("lock:%s", redisKey), client.lockExpiration, &redislock.Options{RetryStrategy: strategy})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", redisKey, err)
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) SaveRaw(redisKey string, raw []byte) error {
	if err := client.client.Set(ctx, redisKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", redisKey, err)
	}
	return nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const scanBatch = 100

var errStaleRender = errors.New("page rendered before an invalidation")

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisPages is a Redis-backed page cache
type RedisPages struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisPages creates a page cache on client. A zero TTL disables writes.
func NewRedisPages(client *redis.Client, ttl time.Duration) *RedisPages {
	if client == nil {
		panic("cache.NewRedisPages: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisPages{redis: client, ttl: ttl}
}

// Get returns a cached page body. Redis failures count as a miss.
func (c *RedisPages) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).WithField("key", key).Warn("page cache read failed")
		}
		return nil, false
	}
	return data, true
}

// Stamp reads the organization's current generation
func (c *RedisPages) Stamp(ctx context.Context, organizationID uint64) (Stamp, bool) {
	generation, err := c.generation(ctx, c.redis, organizationID)
	if err != nil {
		log.WithError(err).WithField("organization_id", organizationID).Warn("page cache stamp failed")
		return Stamp{}, false
	}
	return Stamp{OrganizationID: organizationID, Generation: generation}, true
}

// Set stores a page body with the configured TTL. The write runs under
// WATCH on the generation key and is dropped when the generation no longer
// matches stamp.
func (c *RedisPages) Set(ctx context.Context, key string, stamp Stamp, body []byte) {
	if c.ttl == 0 {
		return
	}

	genKey := generationKey(stamp.OrganizationID)
	err := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, stamp.OrganizationID)
		if err != nil {
			return err
		}
		if current != stamp.Generation {
			return errStaleRender
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleRender), errors.Is(err, redis.TxFailedErr):
		log.WithField("key", key).Debug("page cache write skipped after invalidation")
	default:
		log.WithError(err).WithField("key", key).Warn("page cache write failed")
	}
}

func (c *RedisPages) generation(ctx context.Context, cmd getter, organizationID uint64) (int64, error) {
	generation, err := cmd.Get(ctx, generationKey(organizationID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *RedisPages) bump(ctx context.Context, organizationID uint64) error {
	if err := c.redis.Incr(ctx, generationKey(organizationID)).Err(); err != nil {
		return fmt.Errorf("failed to advance cache generation: %w", err)
	}
	return nil
}

// InvalidateTaskList evicts every cached page of the organization's task list
func (c *RedisPages) InvalidateTaskList(ctx context.Context, organizationID uint64) error {
	if err := c.bump(ctx, organizationID); err != nil {
		return err
	}

	pattern := taskListPrefix(organizationID) + "*"

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to evict task list pages: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// InvalidateTask evicts the cached detail page of one task
func (c *RedisPages) InvalidateTask(ctx context.Context, organizationID, taskID uint64) error {
	if err := c.bump(ctx, organizationID); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, TaskKey(organizationID, taskID)).Err(); err != nil {
		return fmt.Errorf("failed to evict task page: %w", err)
	}
	return nil
}

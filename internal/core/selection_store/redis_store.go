// Package selection_store keeps per-review row selections and action locks
// in Redis.
package selection_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	"github.com/markdave123-py/Clausewise/internal/logger"
)

// releaseScript deletes a lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements core.SelectionStore.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ core.SelectionStore = (*RedisStore)(nil)

// NewRedisStore connects to redisURL. Selections expire ttl after their last
// save.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: "clausewise:", ttl: ttl}
}

func (s *RedisStore) selectionKey(reviewID string) string {
	return s.prefix + "selection:" + reviewID
}

func (s *RedisStore) lockKey(reviewID, action string) string {
	return s.prefix + "lock:" + action + ":" + reviewID
}

// Load returns the saved selection, or an empty one when none exists.
func (s *RedisStore) Load(ctx context.Context, reviewID string) (annotation_engine.Selection, error) {
	raw, err := s.client.Get(ctx, s.selectionKey(reviewID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return annotation_engine.Selection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	sel := annotation_engine.Selection{}
	if err := json.Unmarshal(raw, &sel); err != nil {
		return nil, fmt.Errorf("unmarshal selection: %w", err)
	}
	return sel, nil
}

func (s *RedisStore) Save(ctx context.Context, reviewID string, sel annotation_engine.Selection) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	if err := s.client.Set(ctx, s.selectionKey(reviewID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// Acquire takes the lock for action on reviewID. The lock lapses after ttl
// if release is never called.
func (s *RedisStore) Acquire(ctx context.Context, reviewID, action string, ttl time.Duration) (func(), error) {
	key := s.lockKey(reviewID, action)
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", action, err)
	}
	if !ok {
		return nil, core.ErrActionInFlight
	}

	release := func() {
		// The request context may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, s.client, []string{key}, token).Err(); err != nil {
			logger.Warn(ctx, "release lock failed", "key", key, "error", err)
		}
	}
	return release, nil
}

// Ping checks if Redis is reachable. It backs the health check.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package tagging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/domain"
)

// RedisStore keeps the checkpoint in Redis: the index under <prefix>:index and
// the classification cache as a hash under <prefix>:cache.
type RedisStore struct {
	client   *redis.Client
	indexKey string
	cacheKey string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "mygoreply:tagging"
	}
	return &RedisStore{
		client:   client,
		indexKey: prefix + ":index",
		cacheKey: prefix + ":cache",
	}
}

func (s *RedisStore) Load(ctx context.Context) (*domain.Checkpoint, error) {
	raw, err := s.client.Get(ctx, s.indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading checkpoint index: %w", err)
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint index %q: %w", raw, err)
	}

	fields, err := s.client.HGetAll(ctx, s.cacheKey).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading classification cache: %w", err)
	}
	cp := &domain.Checkpoint{Index: index, Cache: make(map[string][]string, len(fields))}
	for text, encoded := range fields {
		var tones []string
		if err := json.Unmarshal([]byte(encoded), &tones); err != nil {
			return nil, fmt.Errorf("invalid cached tones for %q: %w", text, err)
		}
		cp.Cache[text] = tones
	}
	return cp, nil
}

// Save writes the cache and then the index in one transaction, so a reader
// never sees an index ahead of its cache.
func (s *RedisStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	values := make(map[string]interface{}, len(cp.Cache))
	for text, tones := range cp.Cache {
		encoded, err := encodeTones(tones)
		if err != nil {
			return err
		}
		values[text] = encoded
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, s.cacheKey, values)
		}
		pipe.Set(ctx, s.indexKey, strconv.Itoa(cp.Index), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving checkpoint: %w", err)
	}
	return nil
}

// Reset removes the checkpoint so the next run starts from zero.
func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.indexKey, s.cacheKey).Err(); err != nil {
		return fmt.Errorf("error resetting checkpoint: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package history

import (
	"context"
	"encoding/json"

	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisStore keeps one JSON value per deal key in a Redis hash. Writes are durable as soon as
// Redis acknowledges them, so Commit has nothing to do.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store backed by the hash at key
func NewRedisStore(addr string, db int, key string) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisStore{client: client, key: key}
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, key).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.NewPersistence("failed to read history entry", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		logger.ForHistory().Warn().Err(err).Str("key", key).Msg("Skipping corrupt history entry")
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.NewPersistence("failed to encode history entry", err)
	}
	if err := s.client.HSet(ctx, s.key, key, raw).Err(); err != nil {
		return errors.NewPersistence("failed to write history entry", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return errors.NewPersistence("failed to delete history entry", err)
	}
	return nil
}

// Iterate walks the hash with HSCAN; corrupt values are skipped
func (s *RedisStore) Iterate(ctx context.Context, fn func(key string, entry Entry) bool) error {
	var cursor uint64
	for {
		kvs, next, err := s.client.HScan(ctx, s.key, cursor, "", scanBatch).Result()
		if err != nil {
			return errors.NewPersistence("failed to scan deal history", err)
		}
		// HSCAN returns field, value pairs
		for i := 0; i+1 < len(kvs); i += 2 {
			var e Entry
			if err := json.Unmarshal([]byte(kvs[i+1]), &e); err != nil {
				logger.ForHistory().Warn().Err(err).Str("key", kvs[i]).Msg("Skipping corrupt history entry")
				continue
			}
			if !fn(kvs[i], e) {
				return nil
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) Commit(context.Context) error {
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

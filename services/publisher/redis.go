package publisher

import (
	"context"
	"encoding/base64"

	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks that Redis is reachable
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish adds a message to the stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
	if err != nil {
		return errors.NewPublisher("failed to publish to "+p.stream, err)
	}
	return nil
}

// Trim trims the stream to the configured maximum length
func (p *RedisPublisher) Trim(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	log := logger.ForPublisher().WithField("stream", p.stream)
	removed, err := p.client.XTrimMaxLen(ctx, p.stream, int64(p.streamMaxLength)).Result()
	if err != nil {
		log.Warn().Err(err).Int("max_length", p.streamMaxLength).Msg("Stream trim failed")
		return errors.NewPublisher("failed to trim "+p.stream, err)
	}
	if removed > 0 {
		log.Debug().Int64("removed", removed).Msg("Trimmed stream")
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

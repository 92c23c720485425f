package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashKey is the Redis hash holding a session's keys.
func HashKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// RedisStore keeps each session in one hash with an idle TTL refreshed on access.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	hashKey := HashKey(sessionID)
	value, err := s.client.HGet(ctx, hashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", hashKey, key, err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, hashKey, s.ttl).Err()
	}
	return value, true, nil
}

// Set deletes and rewrites the hash in one transaction so no stale key survives.
func (s *RedisStore) Set(ctx context.Context, sessionID string, values map[string]string) error {
	if err := checkKeys(values); err != nil {
		return err
	}
	hashKey := HashKey(sessionID)
	fields := make([]any, 0, len(values)*2)
	for k, v := range values {
		fields = append(fields, k, v)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hashKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, hashKey, fields...)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, hashKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", hashKey, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	hashKey := HashKey(sessionID)
	if err := s.client.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("del %s: %w", hashKey, err)
	}
	return nil
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Peek loads a session with one HGETALL and leaves its idle TTL untouched. Used by
// operator tooling that must not keep sessions alive by inspecting them.
func Peek(ctx context.Context, client hashReader, sessionID string) (*WorkflowSession, error) {
	hashKey := HashKey(sessionID)
	values, err := client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", hashKey, err)
	}
	return Load(ctx, snapshot(values), sessionID)
}

// errReadOnly is returned by writes to a snapshot.
var errReadOnly = errors.New("session snapshot is read-only")

// snapshot is one session's values as read at a point in time.
type snapshot map[string]string

func (s snapshot) Get(_ context.Context, _, key string) (string, bool, error) {
	value, ok := s[key]
	return value, ok, nil
}

func (snapshot) Set(context.Context, string, map[string]string) error { return errReadOnly }

func (snapshot) Clear(context.Context, string) error { return errReadOnly }

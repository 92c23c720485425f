package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard allows one in-flight workflow run per session.
// TryAcquire returns ok=false when another run holds the session.
type Guard interface {
	TryAcquire(ctx context.Context, sessionID string) (release func(), ok bool, err error)
}

// InflightKey is the Redis lock key for a session's running workflow.
func InflightKey(sessionID string) string {
	return fmt.Sprintf("session:%s:inflight", sessionID)
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a SET NX PX lock. The TTL bounds how long a crashed run blocks the session.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, sessionID string) (func(), bool, error) {
	key := InflightKey(sessionID)
	token := uuid.NewString()

	acquired, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// The request context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, g.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// MemoryGuard is the in-process Guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, sessionID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[sessionID]; busy {
		return nil, false, nil
	}
	g.inflight[sessionID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, sessionID)
			g.mu.Unlock()
		})
	}
	return release, true, nil
}

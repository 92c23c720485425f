package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunCounter counts workflow runs per session inside a fixed window.
type RunCounter interface {
	Incr(ctx context.Context, sessionID string) (int64, error)
}

// RunsKey is the Redis counter key for a session's runs.
func RunsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:runs", sessionID)
}

// incrScript increments the counter and starts its window on the first run. A counter
// left without a TTL gets one on its next increment.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisRunCounter starts a new window on the first run after the previous one expired.
type RedisRunCounter struct {
	client redis.Scripter
	window time.Duration
}

func NewRedisRunCounter(client redis.Scripter, window time.Duration) *RedisRunCounter {
	return &RedisRunCounter{client: client, window: window}
}

func (c *RedisRunCounter) Incr(ctx context.Context, sessionID string) (int64, error) {
	key := RunsKey(sessionID)
	count, err := incrScript.Run(ctx, c.client, []string{key}, c.window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return count, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryRunCounter is the in-process RunCounter. Expired windows are dropped on the next Incr.
type MemoryRunCounter struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	windows map[string]*memoryWindow
}

func NewMemoryRunCounter(window time.Duration) *MemoryRunCounter {
	return &MemoryRunCounter{
		window:  window,
		now:     time.Now,
		windows: make(map[string]*memoryWindow),
	}
}

func (c *MemoryRunCounter) Incr(_ context.Context, sessionID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, w := range c.windows {
		if now.After(w.resetAt) {
			delete(c.windows, id)
		}
	}
	w, ok := c.windows[sessionID]
	if !ok {
		w = &memoryWindow{resetAt: now.Add(c.window)}
		c.windows[sessionID] = w
	}
	w.count++
	return w.count, nil
}

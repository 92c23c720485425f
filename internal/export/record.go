package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status of a session's export.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ErrNotFound means the session has no export.
var ErrNotFound = errors.New("export not found")

// Record tracks the latest export of a session's results.
type Record struct {
	Status        Status    `json:"status"`
	ObjectKey     string    `json:"object_key,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ErrorCode     int       `json:"error_code"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	DownloadURL   string    `json:"download_url,omitempty"`
}

// Records persists one Record per session.
type Records interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Put(ctx context.Context, sessionID string, record Record) error
	Delete(ctx context.Context, sessionID string) error
}

// ObjectPrefix is where a session's PDFs are stored.
func ObjectPrefix(sessionID string) string {
	return fmt.Sprintf("exports/%s/", sessionID)
}

// NotifyChannel is the Redis pub/sub channel for a session's export events.
func NotifyChannel(sessionID string) string {
	return fmt.Sprintf("session_notify:%s", sessionID)
}

func recordKey(sessionID string) string {
	return fmt.Sprintf("export:%s", sessionID)
}

// RedisRecords stores records as JSON strings with a TTL.
type RedisRecords struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRecords(client redis.UniversalClient, ttl time.Duration) *RedisRecords {
	return &RedisRecords{client: client, ttl: ttl}
}

func (r *RedisRecords) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := r.client.Get(ctx, recordKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode export record: %w", err)
	}
	return &record, nil
}

func (r *RedisRecords) Put(ctx context.Context, sessionID string, record Record) error {
	record.DownloadURL = ""
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode export record: %w", err)
	}
	if err := r.client.Set(ctx, recordKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put export record: %w", err)
	}
	return nil
}

func (r *RedisRecords) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, recordKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete export record: %w", err)
	}
	return nil
}

// MemoryRecords is the in-process Records.
type MemoryRecords struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{records: make(map[string]Record)}
}

func (m *MemoryRecords) Get(_ context.Context, sessionID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (m *MemoryRecords) Put(_ context.Context, sessionID string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.DownloadURL = ""
	m.records[sessionID] = record
	return nil
}

func (m *MemoryRecords) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}

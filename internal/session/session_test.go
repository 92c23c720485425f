package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeMatch/internal/analysis"
)

func sampleSession() WorkflowSession {
	return WorkflowSession{
		FileName:        "resume.pdf",
		JobDescription:  "Need Python and AWS",
		ExtractedSkills: []string{"Python"},
		AnalysisResult: analysis.AnalysisResult{
			Score:           65,
			CandidateSkills: []string{"Python"},
			MatchedSkills:   []string{"Python"},
			MissingSkills:   []string{"AWS"},
			Suggestions:     "Learn AWS",
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, Save(ctx, store, "s1", sampleSession()))

	got, err := Load(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), *got)
}

func TestSave_OverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, Save(ctx, store, "s1", sampleSession()))

	second := WorkflowSession{
		FileName:       "other.docx",
		JobDescription: "Go",
		AnalysisResult: analysis.AnalysisResult{Score: 10},
	}
	require.NoError(t, Save(ctx, store, "s1", second))

	got, err := Load(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, "other.docx", got.FileName)
	assert.Empty(t, got.ExtractedSkills)
	assert.Empty(t, got.AnalysisResult.MatchedSkills)
}

func TestLoad_HydrationFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]string
		key    string
	}{
		{name: "missing results", values: map[string]string{KeyFileName: "a.pdf"}, key: KeyAnalysisResults},
		{name: "empty results", values: map[string]string{KeyAnalysisResults: ""}, key: KeyAnalysisResults},
		{name: "corrupt results", values: map[string]string{KeyAnalysisResults: "{not json"}, key: KeyAnalysisResults},
		{name: "corrupt skills", values: map[string]string{KeyAnalysisResults: `{"score":1}`, KeyExtractedSkills: "nope"}, key: KeyExtractedSkills},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(time.Hour)
			require.NoError(t, store.Set(ctx, "s1", tt.values))

			_, err := Load(ctx, store, "s1")
			var hydrationErr *HydrationError
			require.True(t, errors.As(err, &hydrationErr))
			assert.Equal(t, tt.key, hydrationErr.Key)
		})
	}
}

func TestLoad_OptionalKeysDefaultToEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Set(ctx, "s1", map[string]string{KeyAnalysisResults: `{"score":42}`}))

	got, err := Load(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.AnalysisResult.Score)
	assert.Equal(t, []string{}, got.ExtractedSkills)
	assert.Equal(t, "", got.JobDescription)
	assert.Equal(t, "", got.FileName)
}

func TestLoad_AfterClearFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, Save(ctx, store, "s1", sampleSession()))
	require.NoError(t, store.Clear(ctx, "s1"))

	for _, key := range Keys {
		_, ok, err := store.Get(ctx, "s1", key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	_, err := Load(ctx, store, "s1")
	var hydrationErr *HydrationError
	assert.True(t, errors.As(err, &hydrationErr))
}

func TestMemoryStore_RejectsUnknownKeys(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	err := store.Set(context.Background(), "s1", map[string]string{"token": "x"})
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestMemoryStore_IdleExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	require.NoError(t, Save(ctx, store, "s1", sampleSession()))

	now = now.Add(59 * time.Minute)
	_, ok, _ := store.Get(ctx, "s1", KeyFileName)
	assert.True(t, ok)

	now = now.Add(59 * time.Minute)
	_, ok, _ = store.Get(ctx, "s1", KeyFileName)
	assert.True(t, ok, "access refreshes the idle window")

	now = now.Add(61 * time.Minute)
	_, ok, _ = store.Get(ctx, "s1", KeyFileName)
	assert.False(t, ok)
	assert.Empty(t, store.data)
}

func TestMemoryStore_SetSweepsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	require.NoError(t, Save(ctx, store, "abandoned", sampleSession()))
	now = now.Add(30 * time.Minute)
	require.NoError(t, Save(ctx, store, "active", sampleSession()))

	now = now.Add(45 * time.Minute)
	require.NoError(t, Save(ctx, store, "fresh", sampleSession()))

	assert.NotContains(t, store.data, "abandoned")
	assert.Contains(t, store.data, "active")
	assert.Contains(t, store.data, "fresh")
}

func TestMemoryGuard_SingleInflight(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard()

	release, ok, err := guard.TryAcquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.TryAcquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	otherRelease, ok, _ := guard.TryAcquire(ctx, "s2")
	assert.True(t, ok)
	otherRelease()

	release()
	release()

	again, ok, _ := guard.TryAcquire(ctx, "s1")
	assert.True(t, ok)
	again()
}

func TestMemoryRunCounter_Window(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := NewMemoryRunCounter(time.Hour)
	counter.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, err := counter.Incr(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(61 * time.Minute)
	got, _ := counter.Incr(ctx, "s1")
	assert.Equal(t, int64(1), got)
}

func TestMemoryRunCounter_DropsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := NewMemoryRunCounter(time.Hour)
	counter.now = func() time.Time { return now }

	_, err := counter.Incr(ctx, "gone")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = counter.Incr(ctx, "other")
	require.NoError(t, err)

	assert.NotContains(t, counter.windows, "gone")
	assert.Len(t, counter.windows, 1)
}

type fakeHashReader struct {
	hashes map[string]map[string]string
	reads  []string
}

func (f *fakeHashReader) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.reads = append(f.reads, key)
	cmd := redis.NewMapStringStringCmd(ctx)
	values, ok := f.hashes[key]
	if !ok {
		values = map[string]string{}
	}
	cmd.SetVal(values)
	return cmd
}

func TestPeek_ReadsHashOnce(t *testing.T) {
	ctx := context.Background()
	seed := NewMemoryStore(time.Hour)
	require.NoError(t, Save(ctx, seed, "s1", sampleSession()))
	values := map[string]string{}
	for _, key := range Keys {
		value, ok, err := seed.Get(ctx, "s1", key)
		require.NoError(t, err)
		require.True(t, ok)
		values[key] = value
	}

	reader := &fakeHashReader{hashes: map[string]map[string]string{HashKey("s1"): values}}
	got, err := Peek(ctx, reader, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), *got)
	assert.Equal(t, []string{HashKey("s1")}, reader.reads)

	_, err = Peek(ctx, reader, "missing")
	var hydrationErr *HydrationError
	assert.True(t, errors.As(err, &hydrationErr))
}

func newIntegrationRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skipf("REDIS_ADDR not set, skipping redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Integration(t *testing.T) {
	client := newIntegrationRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Clear(ctx, id) })

	require.NoError(t, Save(ctx, store, id, sampleSession()))
	got, err := Load(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), *got)

	ttl, err := client.TTL(ctx, HashKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Clear(ctx, id))
	_, err = Load(ctx, store, id)
	var hydrationErr *HydrationError
	assert.True(t, errors.As(err, &hydrationErr))
}

func TestRedisGuard_Integration(t *testing.T) {
	client := newIntegrationRedis(t)
	ctx := context.Background()
	guard := NewRedisGuard(client, time.Minute)
	id := uuid.NewString()

	release, ok, err := guard.TryAcquire(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.TryAcquire(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := guard.TryAcquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisRunCounter_Integration(t *testing.T) {
	client := newIntegrationRedis(t)
	ctx := context.Background()
	id := uuid.NewString()
	key := RunsKey(id)
	t.Cleanup(func() { _ = client.Del(ctx, key).Err() })
	counter := NewRedisRunCounter(client, time.Hour)

	for want := int64(1); want <= 2; want++ {
		got, err := counter.Incr(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, client.Persist(ctx, key).Err())
	got, err := counter.Incr(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
	ttl, err = client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "a counter without TTL regains one")
}

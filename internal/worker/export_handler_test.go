package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/errcode"
	"resumeMatch/internal/export"
	"resumeMatch/internal/tasks"
)

type fakeUploader struct {
	uploaded map[string][]byte
	types    map[string]string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: map[string][]byte{}, types: map[string]string{}}
}

func (u *fakeUploader) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	u.uploaded[objectName] = b
	u.types[objectName] = contentType
	return &minio.UploadInfo{Key: objectName}, nil
}

type fakePublisher struct {
	channels []string
	messages []ExportNotifyMessage
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	var msg ExportNotifyMessage
	_ = json.Unmarshal(message.([]byte), &msg)
	p.messages = append(p.messages, msg)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func printServer(t *testing.T, secret string, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(middleware.InternalSecretHeader) != secret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, printPath)
		page, ok := pages[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newExportTask(t *testing.T, sessionID string) *asynq.Task {
	t.Helper()
	task, err := tasks.NewResultExportTask(sessionID, "corr-1")
	require.NoError(t, err)
	return task
}

func TestExportTask_RendersUploadsAndNotifies(t *testing.T) {
	srv := printServer(t, "secret", map[string]string{"s1": "<html>Match Score 65%</html>"})
	records := export.NewMemoryRecords()
	uploader := newFakeUploader()
	publisher := &fakePublisher{}
	var rendered string
	render := func(_ context.Context, html string) ([]byte, error) {
		rendered = html
		return []byte("%PDF-1.7"), nil
	}

	h := NewExportTaskHandler(records, uploader, publisher, render, nil, "secret", srv.URL)
	require.NoError(t, h.ProcessTask(context.Background(), newExportTask(t, "s1")))

	assert.Equal(t, "<html>Match Score 65%</html>", rendered)

	record, err := records.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, export.StatusCompleted, record.Status)
	assert.True(t, strings.HasPrefix(record.ObjectKey, "exports/s1/"))
	assert.Equal(t, []byte("%PDF-1.7"), uploader.uploaded[record.ObjectKey])
	assert.Equal(t, "application/pdf", uploader.types[record.ObjectKey])

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, export.NotifyChannel("s1"), publisher.channels[0])
	assert.Equal(t, "completed", publisher.messages[0].Status)
	assert.Equal(t, "corr-1", publisher.messages[0].CorrelationID)
	assert.Equal(t, errcode.OK, publisher.messages[0].ErrorCode)
}

func TestExportTask_SessionGoneIsNotRetried(t *testing.T) {
	srv := printServer(t, "secret", map[string]string{})
	records := export.NewMemoryRecords()
	publisher := &fakePublisher{}
	render := func(context.Context, string) ([]byte, error) {
		t.Fatal("render must not run")
		return nil, nil
	}

	h := NewExportTaskHandler(records, newFakeUploader(), publisher, render, nil, "secret", srv.URL)
	require.NoError(t, h.ProcessTask(context.Background(), newExportTask(t, "gone")))

	record, err := records.Get(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, export.StatusError, record.Status)
	assert.Equal(t, errcode.SessionMissing, record.ErrorCode)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "error", publisher.messages[0].Status)
}

func TestExportTask_RenderFailureIsReturnedForRetry(t *testing.T) {
	srv := printServer(t, "secret", map[string]string{"s1": "<html></html>"})
	records := export.NewMemoryRecords()
	publisher := &fakePublisher{}
	render := func(context.Context, string) ([]byte, error) {
		return nil, errors.New("chromium crashed")
	}

	h := NewExportTaskHandler(records, newFakeUploader(), publisher, render, nil, "secret", srv.URL)
	err := h.ProcessTask(context.Background(), newExportTask(t, "s1"))
	require.Error(t, err)

	_, err = records.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, export.ErrNotFound, "non-final attempts leave the pending record alone")
	assert.Empty(t, publisher.messages)
}

func TestExportTask_WrongSecret(t *testing.T) {
	srv := printServer(t, "secret", map[string]string{"s1": "<html></html>"})
	render := func(context.Context, string) ([]byte, error) { return []byte("pdf"), nil }

	h := NewExportTaskHandler(export.NewMemoryRecords(), newFakeUploader(), &fakePublisher{}, render, nil, "wrong", srv.URL)
	err := h.ProcessTask(context.Background(), newExportTask(t, "s1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestExportTask_BadPayloadSkipsRetry(t *testing.T) {
	h := NewExportTaskHandler(export.NewMemoryRecords(), newFakeUploader(), &fakePublisher{}, nil, nil, "secret", "http://unused")
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeResultExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

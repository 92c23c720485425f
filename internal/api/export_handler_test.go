package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeMatch/internal/export"
)

type fakeQueue struct {
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func newExportApp(t *testing.T) (*testApp, *fakeQueue, *export.MemoryRecords) {
	t.Helper()
	queue := &fakeQueue{}
	records := export.NewMemoryRecords()
	app := newTestApp(t, goodAnalyzer(), func(deps *Dependencies) {
		deps.Exports = export.NewService(records, queue, nil, deps.Logger)
	})
	return app, queue, records
}

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) export.Record {
	t.Helper()
	var record export.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	return record
}

func TestExport_DisabledIsUnavailable(t *testing.T) {
	app := newTestApp(t, goodAnalyzer(), nil)
	b := app.newBrowser()

	assert.Equal(t, http.StatusServiceUnavailable, b.post("/result/export").Code)
	assert.Equal(t, http.StatusServiceUnavailable, b.get("/result/export").Code)
}

func TestExport_RequiresResults(t *testing.T) {
	app, queue, _ := newExportApp(t)
	b := app.newBrowser()

	assert.Equal(t, http.StatusNotFound, b.post("/result/export").Code)
	assert.Empty(t, queue.tasks)
	assert.Equal(t, http.StatusNotFound, b.get("/result/export").Code)
}

func TestExport_RequestThenStatus(t *testing.T) {
	app, queue, _ := newExportApp(t)
	b := app.newBrowser()
	require.Equal(t, http.StatusSeeOther, b.analyze("resume.pdf", resumePDF, "Need Go", false).Code)

	w := b.post("/result/export")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, export.StatusPending, decodeRecord(t, w).Status)
	require.Len(t, queue.tasks, 1)

	w = b.get("/result/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.StatusPending, decodeRecord(t, w).Status)

	doc := parseHTML(t, b.get("/result"))
	assert.Equal(t, 1, doc.Find("#export").Length())
}

func TestReset_PurgesExport(t *testing.T) {
	app, _, records := newExportApp(t)
	b := app.newBrowser()
	require.Equal(t, http.StatusSeeOther, b.analyze("resume.pdf", resumePDF, "Need Go", false).Code)
	require.Equal(t, http.StatusAccepted, b.post("/result/export").Code)

	require.Equal(t, http.StatusSeeOther, b.post("/reset").Code)

	_, err := records.Get(t.Context(), b.sessionID)
	assert.True(t, errors.Is(err, export.ErrNotFound))
}

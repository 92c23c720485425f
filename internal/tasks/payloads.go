package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// Task types shared by the web server and the worker.
const (
	TypeResultExport = "result:export"
)

// ResultExportPayload identifies the session whose results page is exported.
type ResultExportPayload struct {
	SessionID     string `json:"session_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResultExportTask builds a results PDF export task.
func NewResultExportTask(sessionID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResultExportPayload{
		SessionID:     sessionID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResultExport, payload), nil
}

// ErrInvalidPayload marks payloads no retry can fix.
var ErrInvalidPayload = errors.New("invalid task payload")

// ParseResultExportPayload decodes an export task and checks it names a session.
func ParseResultExportPayload(task *asynq.Task) (ResultExportPayload, error) {
	var payload ResultExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		return payload, fmt.Errorf("%w: missing session_id", ErrInvalidPayload)
	}
	return payload, nil
}

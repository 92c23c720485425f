package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resumeMatch/internal/errcode"
	"resumeMatch/internal/metrics"
	"resumeMatch/internal/tasks"
)

const (
	// pendingStaleAfter lets a new request replace a pending export whose worker died.
	pendingStaleAfter = 5 * time.Minute
	downloadURLTTL    = 15 * time.Minute
	downloadFileName  = "resume-match-results.pdf"
)

// Enqueuer is the part of asynq.Client the service needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ObjectStore is the part of storage.Client the service needs.
type ObjectStore interface {
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service requests, reports and purges result exports.
type Service struct {
	records Records
	queue   Enqueuer
	objects ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(records Records, queue Enqueuer, objects ObjectStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records: records,
		queue:   queue,
		objects: objects,
		logger:  logger.With(slog.String("component", "export")),
		now:     time.Now,
	}
}

// Request enqueues an export unless a fresh one is already pending.
func (s *Service) Request(ctx context.Context, sessionID, correlationID string) (*Record, error) {
	existing, err := s.records.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == StatusPending && s.now().Sub(existing.UpdatedAt) < pendingStaleAfter {
		return existing, nil
	}

	record := Record{
		Status:        StatusPending,
		CorrelationID: correlationID,
		ErrorCode:     errcode.OK,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.records.Put(ctx, sessionID, record); err != nil {
		return nil, err
	}

	task, err := tasks.NewResultExportTask(sessionID, correlationID)
	if err != nil {
		return nil, fmt.Errorf("build export task: %w", err)
	}
	if _, err := s.queue.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)); err != nil {
		metrics.RecordExport("failed")
		record.Status = StatusError
		record.ErrorCode = errcode.SystemError
		record.ErrorMessage = "failed to enqueue export"
		record.UpdatedAt = s.now().UTC()
		_ = s.records.Put(ctx, sessionID, record)
		return nil, fmt.Errorf("enqueue export task: %w", err)
	}

	metrics.RecordExport("enqueued")
	s.logger.Info("export enqueued", slog.String("session_id", sessionID), slog.String("correlation_id", correlationID))
	return &record, nil
}

// Status returns the record, with a short-lived download link once completed.
func (s *Service) Status(ctx context.Context, sessionID string) (*Record, error) {
	record, err := s.records.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusCompleted && record.ObjectKey != "" && s.objects != nil {
		url, err := s.objects.GeneratePresignedURLWithParams(ctx, record.ObjectKey, downloadURLTTL, map[string]string{
			"response-content-disposition": fmt.Sprintf(`attachment; filename="%s"`, downloadFileName),
		})
		if err != nil {
			return nil, err
		}
		record.DownloadURL = url
	}
	return record, nil
}

// Purge deletes the record and every exported object of the session.
func (s *Service) Purge(ctx context.Context, sessionID string) error {
	var errs []error
	if err := s.records.Delete(ctx, sessionID); err != nil {
		errs = append(errs, err)
	}
	if s.objects != nil {
		if err := s.objects.DeletePrefix(ctx, ObjectPrefix(sessionID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

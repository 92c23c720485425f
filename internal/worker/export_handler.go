package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"resumeMatch/internal/errcode"
	"resumeMatch/internal/export"
	"resumeMatch/internal/tasks"
)

// Renderer turns an HTML document into PDF bytes.
type Renderer func(ctx context.Context, html string) ([]byte, error)

// ObjectUploader is the part of storage.Client the handler needs.
type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Publisher is the part of redis.Client the handler needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ExportTaskHandler consumes result export tasks.
type ExportTaskHandler struct {
	records    export.Records
	storage    ObjectUploader
	publisher  Publisher
	render     Renderer
	printPages *printPageClient
	logger     *slog.Logger
}

// NewExportTaskHandler creates the handler.
func NewExportTaskHandler(
	records export.Records,
	storage ObjectUploader,
	publisher Publisher,
	render Renderer,
	logger *slog.Logger,
	internalSecret string,
	internalAPIBaseURL string,
) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{
		records:    records,
		storage:    storage,
		publisher:  publisher,
		render:     render,
		printPages: newPrintPageClient(internalAPIBaseURL, internalSecret),
		logger:     logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParseResultExportPayload(t)
	if err != nil {
		log.Error("rejecting export task", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("session_id", payload.SessionID),
	)
	log.Info("starting result export")

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		h.finish(ctx, log, payload, export.Record{
			Status:       export.StatusError,
			ErrorCode:    errcode.SystemError,
			ErrorMessage: strings.TrimSpace(retErr.Error()),
		})
	}()

	page, err := h.printPages.Fetch(ctx, payload.SessionID, payload.CorrelationID)
	if errors.Is(err, errSessionGone) {
		log.Warn("session results gone, skipping export")
		h.finish(ctx, log, payload, export.Record{
			Status:       export.StatusError,
			ErrorCode:    errcode.SessionMissing,
			ErrorMessage: "results are no longer available",
		})
		return nil
	}
	if err != nil {
		log.Error("fetch print page failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.render(ctx, string(page))
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("%s%s.pdf", export.ObjectPrefix(payload.SessionID), uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	h.finish(ctx, log, payload, export.Record{
		Status:    export.StatusCompleted,
		ObjectKey: objectName,
		ErrorCode: errcode.OK,
	})
	log.Info("result export completed", slog.String("object_key", objectName), slog.Int("bytes", len(pdfBytes)))
	return nil
}

// finish stores the final record and tells the browser. Both are best effort.
func (h *ExportTaskHandler) finish(ctx context.Context, log *slog.Logger, payload tasks.ResultExportPayload, record export.Record) {
	record.CorrelationID = payload.CorrelationID
	record.UpdatedAt = time.Now().UTC()
	if err := h.records.Put(ctx, payload.SessionID, record); err != nil {
		log.Error("update export record failed", slog.Any("error", err))
	}

	notify := ExportNotifyMessage{
		Status:        string(record.Status),
		SessionID:     payload.SessionID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     record.ErrorCode,
		ErrorMessage:  record.ErrorMessage,
	}
	if err := h.publishExportNotify(ctx, payload.SessionID, notify); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}
}

func (h *ExportTaskHandler) publishExportNotify(ctx context.Context, sessionID string, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := export.NotifyChannel(sessionID)
	if err := h.publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

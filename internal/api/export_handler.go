package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/export"
	"resumeMatch/internal/session"
)

// ExportHandler starts PDF exports of the results page and reports their status.
type ExportHandler struct {
	exports *export.Service
	store   session.Store
}

func NewExportHandler(exports *export.Service, store session.Store) *ExportHandler {
	return &ExportHandler{exports: exports, store: store}
}

// Request enqueues an export of the current results.
func (h *ExportHandler) Request(c *gin.Context) {
	if h.exports == nil {
		ServiceUnavailable(c, "export is not enabled")
		return
	}
	log := middleware.LoggerFromContext(c)
	sessionID := middleware.GetSessionID(c)

	if _, err := session.Load(c.Request.Context(), h.store, sessionID); err != nil {
		if isHydrationError(err) {
			NotFound(c, "no results to export")
			return
		}
		log.Error("load session failed", slog.Any("error", err))
		Internal(c, "failed to load results")
		return
	}

	record, err := h.exports.Request(c.Request.Context(), sessionID, middleware.GetCorrelationID(c))
	if err != nil {
		log.Error("request export failed", slog.Any("error", err))
		Internal(c, "failed to start export")
		return
	}
	c.JSON(http.StatusAccepted, record)
}

// Status returns the latest export, with a download link once it completed.
func (h *ExportHandler) Status(c *gin.Context) {
	if h.exports == nil {
		ServiceUnavailable(c, "export is not enabled")
		return
	}
	record, err := h.exports.Status(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		if errors.Is(err, export.ErrNotFound) {
			NotFound(c, "no export requested")
			return
		}
		middleware.LoggerFromContext(c).Error("export status failed", slog.Any("error", err))
		Internal(c, "failed to read export status")
		return
	}
	c.JSON(http.StatusOK, record)
}

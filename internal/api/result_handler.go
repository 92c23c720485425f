package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/export"
	"resumeMatch/internal/present"
	"resumeMatch/internal/session"
)

// ResultHandler renders, prints and resets a session's results.
type ResultHandler struct {
	store   session.Store
	exports *export.Service
}

// NewResultHandler builds the handler from the shared dependencies.
func NewResultHandler(deps Dependencies) *ResultHandler {
	return &ResultHandler{store: deps.Store, exports: deps.Exports}
}

// Result hydrates the session. A session without usable results goes back to the form.
func (h *ResultHandler) Result(c *gin.Context) {
	view, ok := h.hydrate(c, middleware.GetSessionID(c))
	if !ok {
		return
	}
	c.HTML(http.StatusOK, resultTemplate, resultPage{
		Title:         pageTitle,
		View:          view,
		ExportEnabled: h.exports != nil,
	})
}

// Print renders the print layout and opens the browser print dialog.
func (h *ResultHandler) Print(c *gin.Context) {
	view, ok := h.hydrate(c, middleware.GetSessionID(c))
	if !ok {
		return
	}
	c.HTML(http.StatusOK, printTemplate, resultPage{Title: pageTitle, View: view, AutoPrint: true})
}

// Reset clears every stored key plus any export, then starts over.
func (h *ResultHandler) Reset(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	sessionID := middleware.GetSessionID(c)

	if err := h.store.Clear(c.Request.Context(), sessionID); err != nil {
		log.Error("clear session failed", slog.Any("error", err))
		Internal(c, "failed to reset session")
		return
	}
	if h.exports != nil {
		if err := h.exports.Purge(c.Request.Context(), sessionID); err != nil {
			log.Warn("purge exports failed", slog.Any("error", err))
		}
	}
	log.Info("session reset")
	c.Redirect(http.StatusSeeOther, "/")
}

// InternalPrint serves the print layout to the export worker, without the print script.
func (h *ResultHandler) InternalPrint(c *gin.Context) {
	sessionID := c.Param("session")
	if err := uuid.Validate(sessionID); err != nil {
		NotFound(c, "session not found")
		return
	}

	ws, err := session.Load(c.Request.Context(), h.store, sessionID)
	if err != nil {
		if isHydrationError(err) {
			NotFound(c, "session not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load session failed", slog.Any("error", err))
		Internal(c, "failed to load session")
		return
	}
	c.HTML(http.StatusOK, printTemplate, resultPage{Title: pageTitle, View: present.NewResultsView(*ws)})
}

func (h *ResultHandler) hydrate(c *gin.Context, sessionID string) (present.ResultsView, bool) {
	ws, err := session.Load(c.Request.Context(), h.store, sessionID)
	if err != nil {
		if isHydrationError(err) {
			middleware.LoggerFromContext(c).Debug("no results to show", slog.Any("error", err))
			c.Redirect(http.StatusSeeOther, "/")
			return present.ResultsView{}, false
		}
		middleware.LoggerFromContext(c).Error("load session failed", slog.Any("error", err))
		Internal(c, "failed to load results")
		return present.ResultsView{}, false
	}
	return present.NewResultsView(*ws), true
}

func isHydrationError(err error) bool {
	var hydrationErr *session.HydrationError
	return errors.As(err, &hydrationErr)
}

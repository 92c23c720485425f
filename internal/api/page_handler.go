package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/present"
	"resumeMatch/internal/workflow"
)

const (
	fieldFile           = "file"
	fieldJobDescription = "job_description"
	resultPath          = "/result"

	msgFileTooLarge = "The selected file is too large"

	// formOverheadBytes covers the text fields and multipart framing on top of the file.
	formOverheadBytes = 1 << 20
	maxFieldBytes     = 64 << 10
)

// PageHandler serves the upload form and runs the workflow.
type PageHandler struct {
	deps           workflow.Deps
	maxUploadBytes int64
}

// NewPageHandler builds the handler from the shared dependencies.
func NewPageHandler(deps Dependencies) *PageHandler {
	return &PageHandler{
		deps: workflow.Deps{
			Analyzer:       deps.Analyzer,
			Store:          deps.Store,
			Guard:          deps.Guard,
			Counter:        deps.Counter,
			Scanner:        deps.Scanner,
			MaxRunsPerHour: deps.Config.Workflow.MaxRunsPerHour,
			Logger:         deps.Logger,
		},
		maxUploadBytes: deps.Config.Web.MaxUploadBytes,
	}
}

// Index renders the empty upload form.
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, indexTemplate, h.indexPage("", ""))
}

// Analyze runs upload then analyze for the posted form and sends the browser to the
// results page. Failures re-render the form with one inline message and whatever the
// upload already extracted.
func (h *PageHandler) Analyze(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverheadBytes)

	form, err := readForm(c.Request, h.maxUploadBytes)
	var tooLarge *http.MaxBytesError
	switch {
	case form.tooLarge || errors.As(err, &tooLarge):
		log.Warn("upload rejected, file too large", slog.Int64("limit", h.maxUploadBytes))
		h.fail(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, form.jobDescription, nil)
		return
	case err != nil:
		log.Error("read upload failed", slog.Any("error", err))
		h.fail(c, http.StatusBadRequest, analysis.GenericErrorMessage, form.jobDescription, nil)
		return
	}

	deps := h.deps
	deps.Logger = log
	controller := workflow.New(middleware.GetSessionID(c), deps)
	if form.file != nil {
		controller.SelectFile(*form.file)
	}
	controller.SetJobDescription(form.jobDescription)

	if _, err := controller.Run(c.Request.Context()); err != nil {
		status := workflow.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("analysis run failed", slog.Any("error", err))
		}
		h.fail(c, status, workflow.UserMessage(err), form.jobDescription, controller.ExtractedSkills())
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"redirect": resultPath})
		return
	}
	c.Redirect(http.StatusSeeOther, resultPath)
}

func (h *PageHandler) fail(c *gin.Context, status int, message, jobDescription string, extracted []string) {
	if wantsJSON(c) {
		body := gin.H{"error": message}
		if len(extracted) > 0 {
			body["extracted_skills"] = extracted
		}
		c.JSON(status, body)
		return
	}
	page := h.indexPage(message, jobDescription)
	page.ExtractedSkills = present.Badges(extracted, present.BadgeDefault)
	c.HTML(status, indexTemplate, page)
}

func (h *PageHandler) indexPage(message, jobDescription string) indexPage {
	return indexPage{
		Title:          pageTitle,
		Error:          message,
		JobDescription: jobDescription,
		MaxUploadBytes: h.maxUploadBytes,
		BadgeClass:     present.BadgeDefault.Class(),
	}
}

type uploadForm struct {
	jobDescription string
	file           *analysis.File
	tooLarge       bool
}

// readForm streams the multipart body part by part. The file part is capped at
// maxFileBytes; an oversized file is drained so fields after it are still read.
// The file is nil when none was chosen so the workflow reports it as missing.
func readForm(r *http.Request, maxFileBytes int64) (uploadForm, error) {
	var form uploadForm
	reader, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		form.jobDescription = r.PostFormValue(fieldJobDescription)
		return form, nil
	}
	if err != nil {
		return form, err
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return form, err
		}

		switch part.FormName() {
		case fieldJobDescription:
			text, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return form, err
			}
			form.jobDescription = string(text)
		case fieldFile:
			if part.FileName() == "" {
				break
			}
			content, err := io.ReadAll(io.LimitReader(part, maxFileBytes+1))
			if err != nil {
				return form, err
			}
			if int64(len(content)) > maxFileBytes {
				form.tooLarge = true
				form.file = nil
				if _, err := io.Copy(io.Discard, part); err != nil {
					return form, err
				}
				break
			}
			if !form.tooLarge {
				form.file = &analysis.File{
					Name:        part.FileName(),
					ContentType: part.Header.Get("Content-Type"),
					Content:     content,
				}
			}
		}
		part.Close()
	}
}

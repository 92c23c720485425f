package api

import (
	"embed"
	"fmt"
	"html/template"

	"resumeMatch/internal/present"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	indexTemplate  = "index.tmpl"
	resultTemplate = "result.tmpl"
	printTemplate  = "print.tmpl"
)

// indexPage is the upload form. Error and JobDescription are set when a run failed so the
// page comes back with the typed text and one inline message. ExtractedSkills holds the
// upload's skills when analyze failed after a successful upload.
type indexPage struct {
	Title           string
	Error           string
	JobDescription  string
	MaxUploadBytes  int64
	ExtractedSkills []present.Badge
	BadgeClass      string
}

// resultPage renders a hydrated session.
type resultPage struct {
	Title         string
	View          present.ResultsView
	ExportEnabled bool
	AutoPrint     bool
}

const pageTitle = "AI Resume Analyzer"

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"megabytes": func(n int64) int64 { return n >> 20 },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

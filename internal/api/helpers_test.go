package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/auth"
	"resumeMatch/internal/config"
	"resumeMatch/internal/session"
)

const testInternalSecret = "internal-secret"

type fakeAnalyzer struct {
	mu         sync.Mutex
	uploadErr  error
	skills     []string
	analyzeErr error
	result     analysis.AnalysisResult
	uploads    int
	analyzes   []analysis.AnalysisRequest
}

func (f *fakeAnalyzer) UploadResume(_ context.Context, _ analysis.File) (*analysis.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &analysis.UploadResult{CandidateSkills: f.skills}, nil
}

func (f *fakeAnalyzer) AnalyzeResume(_ context.Context, req analysis.AnalysisRequest) (*analysis.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzes = append(f.analyzes, req)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	result := f.result
	return &result, nil
}

func goodAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		skills: []string{"Python", "SQL"},
		result: analysis.AnalysisResult{
			Score:           65,
			CandidateSkills: []string{"Python"},
			MatchedSkills:   []string{"Python"},
			MissingSkills:   []string{"AWS"},
			Suggestions:     "Learn AWS",
		},
	}
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	store  *session.MemoryStore
	tokens *auth.TokenService
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Web.MaxUploadBytes = 1 << 20
	cfg.Web.InternalSecret = testInternalSecret
	return cfg
}

// newTestApp wires the router with in-memory stores. mutate may adjust the dependencies.
func newTestApp(t *testing.T, analyzer *fakeAnalyzer, mutate func(*Dependencies)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService("0123456789abcdef-api-test", "resumematch")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewMemoryStore(time.Hour)

	deps := Dependencies{
		Config:   testConfig(),
		Logger:   logger,
		Tokens:   tokens,
		Store:    store,
		Guard:    session.NewMemoryGuard(),
		Counter:  session.NewMemoryRunCounter(time.Hour),
		Analyzer: analyzer,
	}
	if mutate != nil {
		mutate(&deps)
	}

	router, err := NewRouter(logger)
	require.NoError(t, err)
	RegisterRoutes(router, deps)
	return &testApp{t: t, router: router, store: store, tokens: tokens}
}

// browser is one cookie-carrying tab.
type browser struct {
	app       *testApp
	sessionID string
	token     string
}

func (a *testApp) newBrowser() *browser {
	a.t.Helper()
	id, token, err := a.tokens.NewSession()
	require.NoError(a.t, err)
	return &browser{app: a, sessionID: id, token: token}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: b.token})
	w := httptest.NewRecorder()
	b.app.router.ServeHTTP(w, req)
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodPost, path, nil))
}

// analyze posts the upload form. An empty fileName omits the file part.
func (b *browser) analyze(fileName string, content []byte, jobDescription string, asJSON bool) *httptest.ResponseRecorder {
	b.app.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(b.app.t, err)
		_, err = part.Write(content)
		require.NoError(b.app.t, err)
	}
	require.NoError(b.app.t, writer.WriteField("job_description", jobDescription))
	require.NoError(b.app.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if asJSON {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "text/html")
	}
	return b.do(req)
}

func parseHTML(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

var resumePDF = []byte("%PDF-1.4\n%resume\n")

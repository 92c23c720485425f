package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"resumeMatch/internal/config"
	"resumeMatch/internal/metrics"
)

const maxErrorBodyBytes = 8 * 1024

// Client talks to the external analysis service. Calls are single-shot.
type Client struct {
	baseURL     string
	uploadPath  string
	analyzePath string
	httpClient  *http.Client
	validate    *validator.Validate
}

// NewClient builds a client from config. A nil httpClient gets one with the configured timeout (0 means none).
func NewClient(cfg config.AnalysisConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		uploadPath:  cfg.UploadPath,
		analyzePath: cfg.AnalyzePath,
		httpClient:  httpClient,
		validate:    v,
	}
}

// UploadResume posts the file as multipart field "file" and returns the extracted skills.
func (c *Client) UploadResume(ctx context.Context, file File) (*UploadResult, error) {
	if file.Empty() {
		return nil, &RequestError{Op: OpUpload, Message: "Empty file provided"}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", partContentType(file))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &RequestError{Op: OpUpload, Message: GenericErrorMessage, Cause: fmt.Errorf("create multipart part: %w", err)}
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, &RequestError{Op: OpUpload, Message: GenericErrorMessage, Cause: fmt.Errorf("write multipart part: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &RequestError{Op: OpUpload, Message: GenericErrorMessage, Cause: fmt.Errorf("close multipart writer: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.uploadPath, body)
	if err != nil {
		return nil, &RequestError{Op: OpUpload, Message: GenericErrorMessage, Cause: fmt.Errorf("build upload request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, OpUpload, &result); err != nil {
		return nil, err
	}
	if result.CandidateSkills == nil {
		result.CandidateSkills = []string{}
	}
	return &result, nil
}

// AnalyzeResume posts the request as JSON. The request is validated before any network I/O.
func (c *Client) AnalyzeResume(ctx context.Context, request AnalysisRequest) (*AnalysisResult, error) {
	if err := c.validate.Struct(request); err != nil {
		return nil, &RequestError{Op: OpAnalyze, Message: "Job description cannot be empty", Cause: err}
	}
	if request.CandidateSkills == nil {
		request.CandidateSkills = []string{}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &RequestError{Op: OpAnalyze, Message: GenericErrorMessage, Cause: fmt.Errorf("marshal analysis request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, &RequestError{Op: OpAnalyze, Message: GenericErrorMessage, Cause: fmt.Errorf("build analyze request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	var result AnalysisResult
	if err := c.do(req, OpAnalyze, &result); err != nil {
		return nil, err
	}
	result.Normalize()
	return &result, nil
}

// Health checks GET /health on the service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &RequestError{Op: OpHealth, Message: GenericErrorMessage, Cause: fmt.Errorf("build health request: %w", err)}
	}
	return c.do(req, OpHealth, nil)
}

func (c *Client) do(req *http.Request, op string, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ObserveUpstream(op, outcome, time.Since(start))
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Message: GenericErrorMessage, Cause: fmt.Errorf("%s request: %w", op, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg := messageFromBody(body)
		if msg == "" {
			msg = GenericErrorMessage
		}
		return &RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Cause:      fmt.Errorf("%s status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: GenericErrorMessage, Cause: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// partContentType prefers the detected type and falls back to the declared one.
func partContentType(file File) string {
	detected := mimetype.Detect(file.Content)
	if !detected.Is("application/octet-stream") {
		return detected.String()
	}
	if ct := strings.TrimSpace(file.ContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/metrics"
	"resumeMatch/internal/scan"
	"resumeMatch/internal/session"
)

// State of a workflow run.
type State string

const (
	Idle      State = "idle"
	Uploading State = "uploading"
	Analyzing State = "analyzing"
	Done      State = "done"
	Error     State = "error"
)

// Analyzer is the remote side of a run.
type Analyzer interface {
	UploadResume(ctx context.Context, file analysis.File) (*analysis.UploadResult, error)
	AnalyzeResume(ctx context.Context, request analysis.AnalysisRequest) (*analysis.AnalysisResult, error)
}

// Deps are shared by every controller. Guard, Counter and Scanner are optional.
type Deps struct {
	Analyzer       Analyzer
	Store          session.Store
	Guard          session.Guard
	Counter        session.RunCounter
	Scanner        scan.Scanner
	MaxRunsPerHour int
	Logger         *slog.Logger
}

// Controller drives one session's upload then analyze sequence.
type Controller struct {
	deps      Deps
	sessionID string
	logger    *slog.Logger

	mu              sync.Mutex
	state           State
	file            *analysis.File
	jobDescription  string
	extractedSkills []string
	err             error
}

// New returns an Idle controller bound to sessionID.
func New(sessionID string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		deps:      deps,
		sessionID: sessionID,
		logger:    logger.With(slog.String("component", "workflow"), slog.String("session_id", sessionID)),
		state:     Idle,
	}
}

// SelectFile stores the file and clears any previous error.
func (c *Controller) SelectFile(file analysis.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = &file
	c.err = nil
	if c.state == Error {
		c.transition(Idle)
	}
}

// SetJobDescription stores the text as typed.
func (c *Controller) SetJobDescription(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobDescription = text
}

// Run validates the input, uploads, analyzes and persists the WorkflowSession.
// analyze is only called after upload has succeeded, with exactly its skills.
func (c *Controller) Run(ctx context.Context) (*session.WorkflowSession, error) {
	c.mu.Lock()
	if c.state == Uploading || c.state == Analyzing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.err = nil
	c.extractedSkills = nil
	file := c.file
	jobDescription := c.jobDescription

	if file == nil || file.Empty() {
		err := c.failLocked(&ValidationError{Field: FieldFile, Message: MsgMissingFile})
		c.mu.Unlock()
		return nil, err
	}
	if strings.TrimSpace(jobDescription) == "" {
		err := c.failLocked(&ValidationError{Field: FieldJobDescription, Message: MsgMissingJobDescription})
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if c.deps.Guard != nil {
		release, ok, err := c.deps.Guard.TryAcquire(ctx, c.sessionID)
		if err != nil {
			return nil, c.fail(fmt.Errorf("acquire session guard: %w", err))
		}
		if !ok {
			c.logger.Warn("workflow rejected, run already in flight")
			return nil, ErrBusy
		}
		defer release()
	}

	if err := c.checkQuota(ctx); err != nil {
		return nil, c.fail(err)
	}

	c.setState(Uploading)
	if c.deps.Scanner != nil {
		if err := c.deps.Scanner.Scan(ctx, file.Content); err != nil {
			if isMalicious(err) {
				c.logger.Warn("upload rejected by scanner", slog.String("file_name", file.Name), slog.Any("error", err))
				return nil, c.fail(&ValidationError{Field: FieldFile, Message: scan.ErrMalicious.Error()})
			}
			return nil, c.fail(fmt.Errorf("scan upload: %w", err))
		}
	}

	uploaded, err := c.deps.Analyzer.UploadResume(ctx, *file)
	if err != nil {
		return nil, c.fail(err)
	}
	skills := uploaded.CandidateSkills
	if skills == nil {
		skills = []string{}
	}

	c.mu.Lock()
	c.extractedSkills = skills
	c.transition(Analyzing)
	c.mu.Unlock()
	c.logger.Info("resume uploaded", slog.String("file_name", file.Name), slog.Int("skills", len(skills)))

	result, err := c.deps.Analyzer.AnalyzeResume(ctx, analysis.AnalysisRequest{
		CandidateSkills: skills,
		JobDescription:  jobDescription,
	})
	if err != nil {
		return nil, c.fail(err)
	}
	result.Normalize()

	ws := session.WorkflowSession{
		FileName:        file.Name,
		JobDescription:  jobDescription,
		ExtractedSkills: skills,
		AnalysisResult:  *result,
	}
	if err := session.Save(ctx, c.deps.Store, c.sessionID, ws); err != nil {
		return nil, c.fail(fmt.Errorf("persist workflow session: %w", err))
	}

	c.setState(Done)
	c.logger.Info("analysis completed", slog.Float64("score", result.Score))

	return &ws, nil
}

func (c *Controller) checkQuota(ctx context.Context) error {
	if c.deps.Counter == nil || c.deps.MaxRunsPerHour <= 0 {
		return nil
	}
	count, err := c.deps.Counter.Incr(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("count workflow runs: %w", err)
	}
	if count > int64(c.deps.MaxRunsPerHour) {
		return &ValidationError{Field: FieldQuota, Message: MsgQuotaExceeded}
	}
	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the controller to Error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ExtractedSkills returns the skills of the last successful upload.
func (c *Controller) ExtractedSkills() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.extractedSkills...)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(s)
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failLocked(err)
}

// failLocked keeps the file selection so the run can be retried as is.
func (c *Controller) failLocked(err error) error {
	c.err = err
	c.transition(Error)
	c.logger.Warn("workflow failed", slog.String("reason", UserMessage(err)), slog.Any("error", err))
	return err
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	metrics.RecordTransition(string(to))
	c.logger.Debug("workflow transition", slog.String("from", string(from)), slog.String("to", string(to)))
}

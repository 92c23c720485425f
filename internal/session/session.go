package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"resumeMatch/internal/analysis"
)

// Keys of the per-session namespace. Nothing else is ever written to it.
const (
	KeyAnalysisResults = "analysisResults"
	KeyExtractedSkills = "extractedSkills"
	KeyJobDescription  = "jobDescription"
	KeyFileName        = "fileName"
)

// Keys lists every key a session may hold.
var Keys = []string{KeyAnalysisResults, KeyExtractedSkills, KeyJobDescription, KeyFileName}

// ErrUnknownKey is returned when a caller writes outside the fixed key set.
var ErrUnknownKey = errors.New("unknown session key")

// Store is a string-keyed, string-valued namespace per browser session.
// Set replaces the whole namespace.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID string, values map[string]string) error
	Clear(ctx context.Context, sessionID string) error
}

// WorkflowSession is the hand-off from a completed analysis to the results view.
type WorkflowSession struct {
	FileName        string
	JobDescription  string
	ExtractedSkills []string
	AnalysisResult  analysis.AnalysisResult
}

// HydrationError means the stored session cannot back a results view.
type HydrationError struct {
	Key   string
	Cause error
}

func (e *HydrationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("session key %q missing", e.Key)
	}
	return fmt.Sprintf("session key %q unreadable: %v", e.Key, e.Cause)
}

func (e *HydrationError) Unwrap() error {
	return e.Cause
}

func checkKeys(values map[string]string) error {
	for key := range values {
		known := false
		for _, k := range Keys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
	}
	return nil
}

// Save writes all four keys at once.
func Save(ctx context.Context, store Store, sessionID string, ws WorkflowSession) error {
	result := ws.AnalysisResult
	result.Normalize()
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}
	skills := ws.ExtractedSkills
	if skills == nil {
		skills = []string{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("marshal extracted skills: %w", err)
	}

	return store.Set(ctx, sessionID, map[string]string{
		KeyAnalysisResults: string(resultJSON),
		KeyExtractedSkills: string(skillsJSON),
		KeyJobDescription:  ws.JobDescription,
		KeyFileName:        ws.FileName,
	})
}

// Load rebuilds the WorkflowSession. A missing or corrupt analysisResults (or corrupt
// extractedSkills) is a HydrationError; other missing keys fall back to empty values.
func Load(ctx context.Context, store Store, sessionID string) (*WorkflowSession, error) {
	if sessionID == "" {
		return nil, &HydrationError{Key: KeyAnalysisResults}
	}

	raw, ok, err := store.Get(ctx, sessionID, KeyAnalysisResults)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyAnalysisResults, err)
	}
	if !ok || raw == "" {
		return nil, &HydrationError{Key: KeyAnalysisResults}
	}

	var ws WorkflowSession
	if err := json.Unmarshal([]byte(raw), &ws.AnalysisResult); err != nil {
		return nil, &HydrationError{Key: KeyAnalysisResults, Cause: err}
	}
	ws.AnalysisResult.Normalize()

	rawSkills, ok, err := store.Get(ctx, sessionID, KeyExtractedSkills)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyExtractedSkills, err)
	}
	if !ok || rawSkills == "" {
		rawSkills = "[]"
	}
	if err := json.Unmarshal([]byte(rawSkills), &ws.ExtractedSkills); err != nil {
		return nil, &HydrationError{Key: KeyExtractedSkills, Cause: err}
	}
	if ws.ExtractedSkills == nil {
		ws.ExtractedSkills = []string{}
	}

	if ws.JobDescription, _, err = store.Get(ctx, sessionID, KeyJobDescription); err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyJobDescription, err)
	}
	if ws.FileName, _, err = store.Get(ctx, sessionID, KeyFileName); err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyFileName, err)
	}

	return &ws, nil
}

package analysis

import (
	"encoding/json"
	"strings"
)

// GenericErrorMessage is shown when the service gives no usable detail.
const GenericErrorMessage = "An error occurred during analysis"

const (
	OpUpload  = "upload_resume"
	OpAnalyze = "analyze"
	OpHealth  = "health"
)

// RequestError is the uniform failure of every remote call.
// Message is safe to show to the user verbatim.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  json.RawMessage `json:"error"`
}

// messageFromBody extracts detail first, then error. Non-string details are rendered as raw JSON.
func messageFromBody(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{parsed.Detail, parsed.Error} {
		if msg := rawMessage(raw); msg != "" {
			return msg
		}
	}
	return ""
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

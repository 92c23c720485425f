package workflow

import (
	"errors"
	"net/http"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/scan"
)

const (
	FieldFile           = "file"
	FieldJobDescription = "job_description"
	FieldQuota          = "quota"

	MsgMissingFile           = "Please select a resume file"
	MsgMissingJobDescription = "Please enter a job description"
	MsgQuotaExceeded         = "Too many analyses in the last hour, please try again later"
	MsgBusy                  = "An analysis is already in progress"
)

// ErrBusy rejects a run while another run for the same session is in flight.
var ErrBusy = errors.New(MsgBusy)

// ValidationError means the input cannot start a run. No remote call has been made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusFor maps a workflow error to an HTTP status.
func StatusFor(err error) int {
	var validationErr *ValidationError
	var requestErr *analysis.RequestError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		if validationErr.Field == FieldQuota {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.As(err, &requestErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the single string shown inline for err.
func UserMessage(err error) string {
	var validationErr *ValidationError
	var requestErr *analysis.RequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.As(err, &requestErr):
		return requestErr.Message
	default:
		return analysis.GenericErrorMessage
	}
}

func isMalicious(err error) bool {
	return errors.Is(err, scan.ErrMalicious)
}

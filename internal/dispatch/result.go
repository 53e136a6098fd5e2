package dispatch

import (
	"sales-assistant/internal/backend"
	"sales-assistant/internal/intent"
	"sales-assistant/internal/workflows"

	apperrors "sales-assistant/internal/common/errors"
)

type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusUnhandled Status = "unhandled"
)

// Result is what every dispatch returns. Error is set for error and
// unhandled results.
type Result struct {
	Status Status                   `json:"status"`
	Intent intent.Intent            `json:"intent"`
	Data   interface{}              `json:"data,omitempty"`
	Error  *apperrors.StandardError `json:"error,omitempty"`
}

func (r *Result) OK() bool { return r.Status == StatusSuccess }

func success(in intent.Intent, data interface{}) *Result {
	return &Result{Status: StatusSuccess, Intent: in, Data: data}
}

func failure(in intent.Intent, err *apperrors.StandardError) *Result {
	return &Result{Status: StatusError, Intent: in, Error: err}
}

func unhandled(in intent.Intent) *Result {
	return &Result{Status: StatusUnhandled, Intent: in, Error: apperrors.NewUnrecognizedIntentError(string(in))}
}

// Failure builds an error result outside of Dispatch, for transport-level
// problems such as an empty prompt.
func Failure(in intent.Intent, err *apperrors.StandardError) *Result {
	return failure(in, err)
}

// Paths taken by handle_email_rejection.
const (
	PathRewrite        = "rewrite"
	PathAnalyzeRewrite = "analyze_rewrite"
	PathAnalyzeOnly    = "analyze_only"
)

type RejectionOutcome struct {
	Path     string              `json:"path"`
	Email    *backend.Email      `json:"email,omitempty"`
	Analysis *workflows.Analysis `json:"analysis,omitempty"`
}

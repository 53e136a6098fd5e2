// Package errors provides the structured error type carried by dispatch results
// and its conversion to BPMN errors for job workers.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeClassificationAmbiguous is recorded when LLM output is rejected and the
	// rule-based classifier takes over. It never reaches a caller.
	ErrCodeClassificationAmbiguous ErrorCode = "CLASSIFICATION_AMBIGUOUS"
	ErrCodeUnrecognizedIntent      ErrorCode = "UNRECOGNIZED_INTENT"

	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"

	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeWorkflowFailed      ErrorCode = "WORKFLOW_FAILED"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewMissingParameterError reports required parameters that were absent or falsy.
func NewMissingParameterError(intent string, missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingParameter,
		Message:   "Required parameters are missing",
		Details:   fmt.Sprintf("intent: %s, missing: %s", intent, strings.Join(missing, ", ")),
		Retryable: false,
		Metadata: map[string]interface{}{
			"intent":  intent,
			"missing": missing,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable error for a referenced entity that does not exist.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"resource": resource},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError creates a retryable error for backend or completion failures.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Upstream service '%s' unavailable", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnrecognizedIntentError is carried by unhandled dispatch results.
func NewUnrecognizedIntentError(intent string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnrecognizedIntent,
		Message:   "Request could not be mapped to a supported action",
		Details:   fmt.Sprintf("intent: %s", intent),
		Retryable: false,
		Metadata:  map[string]interface{}{"intent": intent},
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationAmbiguousError describes rejected LLM classifier output.
func NewClassificationAmbiguousError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationAmbiguous,
		Message:   "Classifier output rejected",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowFailedError wraps malformed model output or a recovered workflow panic.
func NewWorkflowFailedError(workflow string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowFailed,
		Message:   fmt.Sprintf("Workflow '%s' failed", workflow),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"workflow": workflow},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandardError unwraps err to a *StandardError if one is in its chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if goerrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnrecognizedIntent:  "UNRECOGNIZED_INTENT",
	ErrCodeMissingParameter:    "MISSING_PARAMETER",
	ErrCodeInvalidRequest:      "INVALID_REQUEST",
	ErrCodeNotFound:            "NOT_FOUND",
	ErrCodeUpstreamUnavailable: "UPSTREAM_UNAVAILABLE",
	ErrCodeWorkflowFailed:      "WORKFLOW_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable:
		return 3
	case ErrCodeWorkflowFailed:
		return 1
	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := 0
	if stdErr.Retryable && IsRetryableErrorCode(stdErr.Code) {
		retries = GetRetryCount(stdErr.Code)
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if missing, ok := stdErr.Metadata["missing"]; ok {
		vars["missingParameters"] = missing
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeClassificationAmbiguous, ErrCodeUnrecognizedIntent:
		return "CLASSIFICATION"
	case ErrCodeMissingParameter, ErrCodeInvalidRequest:
		return "VALIDATION"
	case ErrCodeNotFound:
		return "LOOKUP"
	case ErrCodeUpstreamUnavailable:
		return "UPSTREAM"
	case ErrCodeWorkflowFailed:
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}

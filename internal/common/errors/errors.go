// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Matching pipeline errors
const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidStatus       ErrorCode = "INVALID_STATUS"
	ErrCodeRequestLoadFailed   ErrorCode = "REQUEST_LOAD_FAILED"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"
	ErrCodeVerifyFailed        ErrorCode = "VERIFY_FAILED"
	ErrCodeContextFetchFailed  ErrorCode = "CONTEXT_FETCH_FAILED"
	ErrCodePersistFailed       ErrorCode = "PERSIST_FAILED"
	ErrCodeEvidenceFetchFailed ErrorCode = "EVIDENCE_FETCH_FAILED"

	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInputParsingFailed    ErrorCode = "INPUT_PARSING_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeWorkflowEngineFailed     ErrorCode = "WORKFLOW_ENGINE_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
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

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
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

// NewNotFoundError creates a non-retryable error for an unknown request id.
func NewNotFoundError(requestID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Service request not found",
		Details:   fmt.Sprintf("requestId: %s", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusError creates a non-retryable error for a request in a terminal status.
func NewInvalidStatusError(requestID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "Service request is no longer open for matching",
		Details:   fmt.Sprintf("requestId: %s, status: %s", requestID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestLoadFailedError creates a retryable error for a failed request lookup.
func NewRequestLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestLoadFailed,
		Message:   "Service request lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchFailedError creates a retryable candidate search error.
func NewSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Candidate search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVerifyFailedError creates a retryable verification error.
func NewVerifyFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVerifyFailed,
		Message:   "Candidate verification did not complete",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewContextFetchFailedError creates a retryable dynamic context error.
func NewContextFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeContextFetchFailed,
		Message:   "Dynamic context lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistFailedError creates a retryable persistence error.
func NewPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistFailed,
		Message:   "Storing recommendations failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvidenceFetchFailedError creates a retryable evidence lookup error.
func NewEvidenceFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvidenceFetchFailed,
		Message:   "Evidence count lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputValidationFailedError creates a non-retryable input validation error.
func NewInputValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Job input failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputParsingFailedError creates a non-retryable input parsing error.
func NewInputParsingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Job variables could not be parsed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngineFailed,
		Message:   fmt.Sprintf("Zeebe operation '%s' failed", operation),
		Details:   err.Error(),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError marks a failure that is not attributable to a collaborator.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNotFound:                 "REQUEST_NOT_FOUND",
	ErrCodeInvalidStatus:            "REQUEST_INVALID_STATUS",
	ErrCodeRequestLoadFailed:        "REQUEST_LOAD_FAILED",
	ErrCodeSearchFailed:             "SEARCH_FAILED",
	ErrCodeVerifyFailed:             "VERIFY_FAILED",
	ErrCodeContextFetchFailed:       "CONTEXT_FETCH_FAILED",
	ErrCodePersistFailed:            "PERSIST_FAILED",
	ErrCodeEvidenceFetchFailed:      "EVIDENCE_FETCH_FAILED",
	ErrCodeInputValidationFailed:    "INPUT_VALIDATION_FAILED",
	ErrCodeInputParsingFailed:       "INPUT_PARSING_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeWorkflowEngineFailed:     "WORKFLOW_ENGINE_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRequestLoadFailed,
		ErrCodeSearchFailed,
		ErrCodeVerifyFailed,
		ErrCodePersistFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeContextFetchFailed,
		ErrCodeEvidenceFetchFailed:
		return 2

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

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
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
	codeStr := string(code)
	switch {
	case code == ErrCodeNotFound || code == ErrCodeInvalidStatus || code == ErrCodeRequestLoadFailed:
		return "REQUEST"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "VERIFY"):
		return "VERIFICATION"
	case strings.Contains(codeStr, "PERSIST") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CONTEXT") || strings.Contains(codeStr, "EVIDENCE"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

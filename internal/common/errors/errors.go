// Package errors provides the error taxonomy shared by the query engine and the job workers.
//
// A StandardError carries two texts: Message, which is safe to hand back to the
// assistant, and Details, which may contain store or schema internals and is only
// ever logged.
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

const (
	ErrCodeAccessDenied    ErrorCode = "ACCESS_DENIED"
	ErrCodeUnknownTemplate ErrorCode = "UNKNOWN_TEMPLATE"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeStoreFailure    ErrorCode = "STORE_FAILURE"
	ErrCodeMissingOrgScope ErrorCode = "MISSING_ORG_SCOPE"
	ErrCodeInvalidParams   ErrorCode = "INVALID_PARAMS"
	ErrCodeQueryCancelled  ErrorCode = "QUERY_CANCELLED"
	ErrCodeQueryTimeout    ErrorCode = "QUERY_TIMEOUT"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"

	ErrCodeInvalidContext ErrorCode = "INVALID_CONTEXT"
	ErrCodeParseError     ErrorCode = "PARSE_ERROR"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeBroker         ErrorCode = "BROKER_ERROR"
)

// Caller-facing messages. These are the only texts that leave the engine.
const (
	MsgAccessDenied     = "Access denied"
	MsgCrossOrgDenied   = "Cross-org queries require super user access"
	MsgQueryFailed      = "Failed to execute query"
	MsgNoOrganization   = "No organization specified"
	MsgQueryCancelled   = "Query cancelled"
	MsgQueryTimeout     = "Query timed out"
	MsgRateLimited      = "Cross-org query limit reached, try again later"
	MsgUnknownTemplateF = "Unknown query template: %s"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// As extracts a *StandardError from err's chain.
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
// Details are left out: they are for logs, not for the process.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewAccessDeniedError is returned when an org lies outside the caller's scope.
func NewAccessDeniedError(details string) *StandardError {
	return newError(ErrCodeAccessDenied, MsgAccessDenied, details, false, nil)
}

// NewCrossOrgDeniedError is returned when a cross-org template is called without comparison rights.
func NewCrossOrgDeniedError(details string) *StandardError {
	return newError(ErrCodeAccessDenied, MsgCrossOrgDenied, details, false, nil)
}

func NewUnknownTemplateError(name string) *StandardError {
	return newError(ErrCodeUnknownTemplate, fmt.Sprintf(MsgUnknownTemplateF, name), "", false, nil)
}

// NewNotFoundError uses message verbatim as the caller-facing text.
func NewNotFoundError(message, details string) *StandardError {
	return newError(ErrCodeNotFound, message, details, false, nil)
}

// NewStoreFailureError hides err behind the generic message and keeps it as the cause.
func NewStoreFailureError(template string, err error) *StandardError {
	return newError(ErrCodeStoreFailure, MsgQueryFailed,
		fmt.Sprintf("template: %s, error: %v", template, err), true, err)
}

func NewMissingOrgScopeError(details string) *StandardError {
	return newError(ErrCodeMissingOrgScope, MsgNoOrganization, details, false, nil)
}

// NewInvalidParamsError reports problems with the caller's own parameters.
func NewInvalidParamsError(problems ...string) *StandardError {
	msg := "Invalid parameters"
	if len(problems) > 0 {
		msg += ": " + strings.Join(problems, "; ")
	}
	return newError(ErrCodeInvalidParams, msg, "", false, nil)
}

func NewQueryCancelledError(err error) *StandardError {
	return newError(ErrCodeQueryCancelled, MsgQueryCancelled, errDetail(err), false, err)
}

func NewQueryTimeoutError(template string, err error) *StandardError {
	return newError(ErrCodeQueryTimeout, MsgQueryTimeout, fmt.Sprintf("template: %s", template), true, err)
}

func NewRateLimitedError(details string) *StandardError {
	return newError(ErrCodeRateLimited, MsgRateLimited, details, true, nil)
}

func NewInvalidContextError(err error) *StandardError {
	return newError(ErrCodeInvalidContext, MsgAccessDenied, errDetail(err), false, err)
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Malformed job variables", errDetail(err), false, err)
}

func NewInternalError(details string) *StandardError {
	return newError(ErrCodeInternal, MsgQueryFailed, details, false, nil)
}

// NewBrokerError wraps a failed Zeebe gateway call.
func NewBrokerError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeBroker, "Workflow broker call failed", fmt.Sprintf("%s: %s", operation, errDetail(err)), retryable, err)
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Retry / Category tables
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeAccessDenied:    "AI_QUERY_ACCESS_DENIED",
	ErrCodeUnknownTemplate: "AI_QUERY_UNKNOWN_TEMPLATE",
	ErrCodeNotFound:        "AI_QUERY_NOT_FOUND",
	ErrCodeStoreFailure:    "AI_QUERY_STORE_FAILURE",
	ErrCodeMissingOrgScope: "AI_QUERY_MISSING_ORG_SCOPE",
	ErrCodeInvalidParams:   "AI_QUERY_INVALID_PARAMS",
	ErrCodeQueryCancelled:  "AI_QUERY_CANCELLED",
	ErrCodeQueryTimeout:    "AI_QUERY_TIMEOUT",
	ErrCodeRateLimited:     "AI_QUERY_RATE_LIMITED",
	ErrCodeInvalidContext:  "AI_QUERY_INVALID_CONTEXT",
	ErrCodeParseError:      "PARSE_ERROR",
	ErrCodeBroker:          "BROKER_ERROR",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreFailure, ErrCodeBroker:
		return 3
	case ErrCodeQueryTimeout, ErrCodeRateLimited:
		return 2
	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logs and the outcome metric label.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeAccessDenied, ErrCodeMissingOrgScope, ErrCodeInvalidContext:
		return "PERMISSION"
	case ErrCodeUnknownTemplate, ErrCodeInvalidParams, ErrCodeParseError:
		return "VALIDATION"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeStoreFailure:
		return "STORE"
	case ErrCodeQueryCancelled, ErrCodeQueryTimeout:
		return "CANCELLATION"
	case ErrCodeRateLimited:
		return "RATE_LIMIT"
	case ErrCodeBroker:
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}

// Package errors provides structured error handling for the meal plan service.
// Every failure that leaves the pipeline is an *AppError carrying a stable code,
// an HTTP status and a retryability flag.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode is the wire value of an error kind
type ErrorCode string

const (
	// Caller errors
	CodeInvalidProfile       ErrorCode = "INVALID_PROFILE"
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeAuthError            ErrorCode = "AUTH_ERROR"
	CodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeGenerationInProgress ErrorCode = "GENERATION_IN_PROGRESS"

	// Model provider errors
	CodeAIRateLimited      ErrorCode = "AI_RATE_LIMITED"
	CodeAITimeout          ErrorCode = "AI_TIMEOUT"
	CodeAIServiceError     ErrorCode = "AI_SERVICE_ERROR"
	CodeAIResponseInvalid  ErrorCode = "AI_RESPONSE_INVALID"
	CodeAIGenerationFailed ErrorCode = "AI_GENERATION_FAILED"

	// Persistence errors
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodePlanEmpty     ErrorCode = "PLAN_EMPTY"

	CodeUnknown ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status code for the error kind
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeInvalidProfile, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeAuthError:
		return http.StatusUnauthorized
	case CodeGenerationInProgress:
		return http.StatusConflict
	case CodeRateLimitExceeded, CodeAIRateLimited:
		return http.StatusTooManyRequests
	case CodeAITimeout:
		return http.StatusGatewayTimeout
	case CodeAIServiceError, CodeAIResponseInvalid:
		return http.StatusBadGateway
	case CodeAIGenerationFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may repeat the same request
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeAIRateLimited, CodeAITimeout, CodeAIServiceError, CodeAIResponseInvalid,
		CodeAIGenerationFailed, CodeDatabaseError, CodePlanEmpty, CodeGenerationInProgress,
		CodeUnknown:
		return true
	default:
		return false
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewInvalidProfileError is returned when the profile cannot drive a calculation
func NewInvalidProfileError(details string) *AppError {
	return NewAppError(CodeInvalidProfile, "Invalid user profile", details)
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewAuthError creates an authentication error
func NewAuthError(details string) *AppError {
	return NewAppError(CodeAuthError, "Authentication required", details)
}

// NewRateLimitExceededError reports an exhausted generation quota
func NewRateLimitExceededError(quotaType string, limit int) *AppError {
	return NewAppError(
		CodeRateLimitExceeded,
		"Generation limit reached",
		fmt.Sprintf("%s quota of %d exhausted", quotaType, limit),
	).WithMetadata("quota_type", quotaType).WithMetadata("limit", limit)
}

// NewGenerationInProgressError reports a concurrent generation for the same week
func NewGenerationInProgressError(userID, week string) *AppError {
	return NewAppError(
		CodeGenerationInProgress,
		"A meal plan is already being generated",
		fmt.Sprintf("generation for week %s is in progress", week),
	).WithMetadata("user_id", userID).WithMetadata("week_start_date", week)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewPlanEmptyError is returned when a plan's meals were removed but the
// replacement set could not be written.
func NewPlanEmptyError(planID string, cause error) *AppError {
	return NewAppError(
		CodePlanEmpty,
		"Meal plan is currently empty",
		"previous meals were removed but new meals could not be saved",
	).WithMetadata("weekly_plan_id", planID).WithCause(cause)
}

// NewResponseInvalidError reports model output that failed structural validation
func NewResponseInvalidError(details string, cause error) *AppError {
	return NewAppError(CodeAIResponseInvalid, "Model response was invalid", details).WithCause(cause)
}

// NewGenerationFailedError reports that every model in the chain failed
func NewGenerationFailedError(last *AppError) *AppError {
	err := NewAppError(CodeAIGenerationFailed, "Meal plan generation failed", "primary and fallback models failed")
	if last != nil {
		err.WithMetadata("last_error_code", string(last.Code)).WithCause(last)
	}
	return err
}

// NewUnknownError creates an error for unclassified failures
func NewUnknownError(cause error) *AppError {
	return NewAppError(CodeUnknown, "An unexpected error occurred", "").WithCause(cause)
}

// Wrap converts err into an AppError, preserving one already in the chain
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewAppError(CodeUnknown, message, "").WithCause(err)
}

// Is checks if an error carries a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	if len(v) == 1 {
		return v[0].Message
	}

	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates validation errors from validator errors
func NewValidationErrors(errors []ValidationError) *AppError {
	validationErrs := ValidationErrors(errors)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse is the failure body returned to callers
type ErrorResponse struct {
	Success     bool      `json:"success"`
	Error       string    `json:"error"`
	Code        ErrorCode `json:"code"`
	StatusCode  int       `json:"statusCode"`
	IsRetryable bool      `json:"isRetryable"`
	RequestID   string    `json:"requestId,omitempty"`
	Timestamp   string    `json:"timestamp"`
}

// ToErrorResponse converts an AppError to a localized failure body.
// Details and causes are never copied into the body.
func ToErrorResponse(err *AppError, lang Language, requestID string) ErrorResponse {
	return ErrorResponse{
		Success:     false,
		Error:       Localize(err.Code, lang),
		Code:        err.Code,
		StatusCode:  err.StatusCode(),
		IsRetryable: err.Retryable(),
		RequestID:   requestID,
		Timestamp:   fmt.Sprintf("%d", time.Now().Unix()),
	}
}

// Package apperr provides unified error handling for the application.
// It implements structured error types with error codes, HTTP status mapping,
// and retryable detection.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// ServiceUnavailable creates an AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s service is temporarily unavailable.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// ConnectionFailed creates an AppError for a failed connection to a service.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates an AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates an AppError for too many requests.
func RateLimited(service string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: fmt.Sprintf("%s is rate limiting requests.", service),
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// AudioDevice creates an AppError for an input device failure.
func AudioDevice(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeAudioDevice, Message: fmt.Sprintf("Audio input device error: %s", reason),
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// RecorderBusy creates an AppError for a start request while recording.
func RecorderBusy() *AppError {
	return &AppError{
		Code: ErrCodeRecorderBusy, Message: "A recording is already in progress.",
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// RecorderIdle creates an AppError for a stop request with no active recording.
func RecorderIdle() *AppError {
	return &AppError{
		Code: ErrCodeRecorderIdle, Message: "No recording is in progress.",
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// AudioTooLarge creates an AppError for audio exceeding a provider's size limit.
func AudioTooLarge(provider string, sizeBytes int64) *AppError {
	return &AppError{
		Code: ErrCodeAudioTooLarge, Message: fmt.Sprintf("Audio exceeds the %s upload limit.", provider),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"provider": provider, "size_bytes": sizeBytes},
	}
}

// SilentRecording creates an AppError for a recording with no detected speech.
func SilentRecording() *AppError {
	return &AppError{
		Code: ErrCodeSilentRecording, Message: "No speech detected in the recording.",
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// ProviderNotConfigured creates an AppError for a provider without an API key.
func ProviderNotConfigured(provider string) *AppError {
	return &AppError{
		Code: ErrCodeProviderNotConfigured, Message: fmt.Sprintf("Provider %s has no API key configured.", provider),
		HTTPStatus: http.StatusPreconditionFailed, Retryable: false,
		Details: map[string]any{"provider": provider},
	}
}

// InvalidAPIKey creates an AppError for a rejected API key.
func InvalidAPIKey(provider string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidAPIKey, Message: fmt.Sprintf("%s rejected the configured API key.", provider),
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
		Details: map[string]any{"provider": provider},
	}
}

// AllProvidersFailed creates an AppError aggregating per-provider failures.
func AllProvidersFailed(attempts map[string]error) *AppError {
	details := make(map[string]any, len(attempts))
	for name, err := range attempts {
		details[name] = err.Error()
	}
	return &AppError{
		Code: ErrCodeAllProvidersFailed, Message: "Every transcription provider failed.",
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: details,
	}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// MissingField creates an AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates an AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Clipboard creates an AppError for a clipboard write failure.
func Clipboard(cause error) *AppError {
	return &AppError{
		Code: ErrCodeClipboard, Message: "Could not write to the system clipboard.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Storage creates an AppError for a transcript store failure.
func Storage(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: "Could not persist the transcript.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Inspection helpers ---

// IsRetryable reports whether err (or any error it wraps) is a retryable AppError.
func IsRetryable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// CodeOf returns the ErrorCode of err if it is an AppError, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

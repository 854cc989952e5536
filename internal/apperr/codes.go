package apperr

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates a transcription service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Audio/device errors
const (
	// ErrCodeAudioDevice indicates the input device could not be opened or failed mid-stream.
	ErrCodeAudioDevice ErrorCode = "AUDIO_DEVICE"
	// ErrCodeRecorderBusy indicates a start was requested while a recording is active.
	ErrCodeRecorderBusy ErrorCode = "RECORDER_BUSY"
	// ErrCodeRecorderIdle indicates a stop was requested with no active recording.
	ErrCodeRecorderIdle ErrorCode = "RECORDER_IDLE"
	// ErrCodeAudioTooLarge indicates the audio exceeds a provider's size limit.
	ErrCodeAudioTooLarge ErrorCode = "AUDIO_TOO_LARGE"
	// ErrCodeSilentRecording indicates the recording never contained speech.
	ErrCodeSilentRecording ErrorCode = "SILENT_RECORDING"
)

// Provider errors
const (
	// ErrCodeProviderNotConfigured indicates a provider has no API key.
	ErrCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
	// ErrCodeAllProvidersFailed indicates every provider in the fallback chain failed.
	ErrCodeAllProvidersFailed ErrorCode = "ALL_PROVIDERS_FAILED"
	// ErrCodeInvalidAPIKey indicates the provider rejected the API key.
	ErrCodeInvalidAPIKey ErrorCode = "INVALID_API_KEY"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeClipboard indicates the system clipboard could not be written.
	ErrCodeClipboard ErrorCode = "CLIPBOARD_ERROR"
	// ErrCodeStorage indicates the transcript store could not be written.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

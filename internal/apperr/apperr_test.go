package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(ErrCodeInternal, "something broke", http.StatusInternalServerError)
	if got := e.Error(); got != "INTERNAL_ERROR: something broke" {
		t.Errorf("Error() = %q", got)
	}

	e = e.WithCause(errors.New("disk full"))
	if got := e.Error(); got != "INTERNAL_ERROR: something broke (cause: disk full)" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := fmt.Errorf("context: %w", Internal(cause))

	var ae *AppError
	if !errors.As(wrapped, &ae) {
		t.Fatal("errors.As failed through wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is did not reach the cause")
	}
}

func TestWithDetail(t *testing.T) {
	e := RecorderBusy().WithDetail("since", "10:04")
	if e.Details["since"] != "10:04" {
		t.Errorf("Details = %v", e.Details)
	}
}

func TestNewSetsRetryableFromCode(t *testing.T) {
	if e := New(ErrCodeTimeout, "slow", http.StatusGatewayTimeout); !e.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if e := New(ErrCodeInvalidInput, "bad", http.StatusBadRequest); e.Retryable {
		t.Error("INVALID_INPUT should not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"service unavailable", ServiceUnavailable("groq"), true},
		{"rate limited", RateLimited("groq"), true},
		{"connection failed", ConnectionFailed("openai"), true},
		{"timeout", Timeout("transcribe"), true},
		{"invalid key", InvalidAPIKey("groq"), false},
		{"recorder busy", RecorderBusy(), false},
		{"wrapped retryable", fmt.Errorf("op: %w", Timeout("x")), true},
		{"plain error", errors.New("nope"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(SilentRecording()); got != ErrCodeSilentRecording {
		t.Errorf("CodeOf = %v", got)
	}
	if got := CodeOf(fmt.Errorf("op: %w", RecorderIdle())); got != ErrCodeRecorderIdle {
		t.Errorf("CodeOf wrapped = %v", got)
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("CodeOf plain = %v, want INTERNAL_ERROR", got)
	}
}

func TestConstructorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"recorder busy", RecorderBusy(), http.StatusConflict},
		{"recorder idle", RecorderIdle(), http.StatusConflict},
		{"audio too large", AudioTooLarge("groq", 30 << 20), http.StatusRequestEntityTooLarge},
		{"invalid key", InvalidAPIKey("groq"), http.StatusUnauthorized},
		{"all providers failed", AllProvidersFailed(nil), http.StatusBadGateway},
		{"missing field", MissingField("file"), http.StatusBadRequest},
		{"rate limited", RateLimited("groq"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.want)
			}
		})
	}
}

func TestAllProvidersFailedDetails(t *testing.T) {
	e := AllProvidersFailed(map[string]error{
		"groq":   errors.New("401"),
		"openai": errors.New("timeout"),
	})
	if e.Details["groq"] != "401" || e.Details["openai"] != "timeout" {
		t.Errorf("Details = %v", e.Details)
	}
}

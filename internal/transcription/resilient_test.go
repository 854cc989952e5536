package transcription

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/resilience"
)

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	name     string
	failures int
	err      error
	calls    int
}

func (f *flakyProvider) Name() string { return f.name }

func (f *flakyProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *flakyProvider) Transcribe(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Response{Text: "ok"}, nil
}

func fastRetry(attempts int) *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.Jitter = 0
	return &cfg
}

func TestResilientRetriesRetryableErrors(t *testing.T) {
	p := &flakyProvider{name: "groq", failures: 2, err: apperr.ServiceUnavailable("groq")}
	rp := WithResilience(p, ResilienceConfig{Retry: fastRetry(3)})

	resp, err := rp.Transcribe(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q", resp.Text)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestResilientDoesNotRetryFatalErrors(t *testing.T) {
	p := &flakyProvider{name: "groq", failures: 5, err: apperr.InvalidAPIKey("groq")}
	rp := WithResilience(p, ResilienceConfig{Retry: fastRetry(3)})

	_, err := rp.Transcribe(context.Background(), Request{})
	if apperr.CodeOf(err) != apperr.ErrCodeInvalidAPIKey {
		t.Fatalf("error = %v", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 for a non-retryable error", p.calls)
	}
}

func TestResilientOpenCircuitReportsUnavailable(t *testing.T) {
	cb := resilience.DefaultCircuitBreakerConfig("groq")
	cb.MaxFailures = 2
	cb.Timeout = time.Hour

	p := &flakyProvider{name: "groq", failures: 100, err: apperr.ServiceUnavailable("groq")}
	rp := WithResilience(p, ResilienceConfig{CircuitBreaker: &cb})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := rp.Transcribe(ctx, Request{}); err == nil {
			t.Fatal("expected failure")
		}
	}

	if rp.IsAvailable(ctx) {
		t.Error("provider with open circuit reports available")
	}
	if _, err := rp.Transcribe(ctx, Request{}); err == nil {
		t.Error("open circuit allowed a call")
	}
	if p.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (circuit open blocks the third)", p.calls)
	}
}

func TestWithResilienceEmptyConfigReturnsProvider(t *testing.T) {
	p := &flakyProvider{name: "groq"}
	if rp := WithResilience(p, ResilienceConfig{}); rp != Provider(p) {
		t.Error("empty config should return the provider unchanged")
	}
}

func TestDefaultResilienceConfigRetryIf(t *testing.T) {
	cfg := DefaultResilienceConfig("groq")
	if cfg.Retry == nil || cfg.CircuitBreaker == nil {
		t.Fatal("defaults missing retry or circuit breaker")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", apperr.RateLimited("groq"), true},
		{"service unavailable", apperr.ServiceUnavailable("groq"), true},
		{"invalid key", apperr.InvalidAPIKey("groq"), false},
		{"context canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Retry.RetryIf(tt.err); got != tt.want {
				t.Errorf("RetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

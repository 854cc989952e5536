package transcription

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/httpclient"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/resilience"
)

// ResilienceConfig configures the resilient provider wrapper.
type ResilienceConfig struct {
	// Retry configures per-provider retry. Nil disables retry.
	Retry *resilience.RetryConfig
	// CircuitBreaker configures the per-provider circuit breaker. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig
}

// IsEmpty reports whether no resilience behavior is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.Retry == nil && c.CircuitBreaker == nil
}

// DefaultResilienceConfig returns the retry and circuit breaker settings used
// for cloud transcription providers: a few retries with backoff on 429/5xx and
// a breaker so a dead provider is skipped quickly on subsequent recordings.
func DefaultResilienceConfig(name string) ResilienceConfig {
	retry := resilience.DefaultRetryConfig()
	retry.RetryIf = func(err error) bool {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return apperr.IsRetryable(err) || httpclient.IsRetryable(err)
	}
	cb := resilience.DefaultCircuitBreakerConfig(name)
	return ResilienceConfig{Retry: &retry, CircuitBreaker: &cb}
}

// WithResilience wraps a provider with retry and circuit breaking. An open
// circuit makes the provider report unavailable so the fallback chain skips
// it without waiting for a request to fail.
func WithResilience(p Provider, cfg ResilienceConfig) Provider {
	if cfg.IsEmpty() {
		return p
	}
	r := &resilientProvider{inner: p, log: logger.Get("transcription")}
	if cfg.Retry != nil {
		r.retry = cfg.Retry
	}
	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.Name == "" {
			cbCfg.Name = p.Name()
		}
		if cbCfg.OnStateChange == nil {
			log := r.log
			cbCfg.OnStateChange = func(name string, from, to resilience.State) {
				log.Warn("circuit state changed", logger.Fields(
					logger.FieldProvider, name, "from", from.String(), "to", to.String()))
			}
		}
		r.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	return r
}

type resilientProvider struct {
	inner Provider
	retry *resilience.RetryConfig
	cb    *resilience.CircuitBreaker
	log   *logger.Logger
}

func (r *resilientProvider) Name() string { return r.inner.Name() }

func (r *resilientProvider) IsAvailable(ctx context.Context) bool {
	if r.cb != nil && !r.cb.Allow() {
		return false
	}
	return r.inner.IsAvailable(ctx)
}

func (r *resilientProvider) Transcribe(ctx context.Context, req Request) (*Response, error) {
	execute := func() (*Response, error) {
		if r.cb == nil {
			return r.inner.Transcribe(ctx, req)
		}
		var resp *Response
		err := r.cb.Execute(func() error {
			var execErr error
			resp, execErr = r.inner.Transcribe(ctx, req)
			return execErr
		})
		return resp, err
	}

	if r.retry == nil {
		return execute()
	}

	cfg := *r.retry
	if cfg.OnRetry == nil {
		log := r.log
		name := r.inner.Name()
		cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
			log.Debug("retrying provider call", logger.Fields(
				logger.FieldProvider, name, "attempt", attempt,
				"backoff", backoff.String(), logger.FieldError, err.Error()))
		}
	}
	return resilience.Retry(ctx, cfg, execute)
}

// ClassifyProviderError maps transport-level errors onto domain error codes so
// the chain and the UI can reason about them uniformly.
func ClassifyProviderError(name string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperr.ServiceUnavailable(name).WithCause(err)
	}
	var he *httpclient.Error
	if errors.As(err, &he) {
		switch he.Code {
		case httpclient.ErrCodeAuth:
			return apperr.InvalidAPIKey(name).WithCause(err)
		case httpclient.ErrCodeRateLimit:
			return apperr.RateLimited(name).WithCause(err)
		case httpclient.ErrCodeTimeout:
			return apperr.Timeout(name + " transcription").WithCause(err)
		case httpclient.ErrCodeConnection:
			return apperr.ConnectionFailed(name).WithCause(err)
		case httpclient.ErrCodeServer:
			return apperr.ServiceUnavailable(name).WithCause(err)
		default:
			return apperr.InvalidInput("", he.Message).WithCause(err)
		}
	}
	return apperr.Internal(err)
}

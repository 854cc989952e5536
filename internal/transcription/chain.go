package transcription

import (
	"context"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/logger"
)

// Chain tries transcription providers in a fixed priority order until one
// succeeds. Providers that report unavailable (missing API key, open circuit)
// are skipped without counting as attempts.
type Chain struct {
	providers []Provider
	log       *logger.Logger
}

// NewChain creates a fallback chain over the given providers, tried in order.
func NewChain(providers []Provider) *Chain {
	return &Chain{
		providers: providers,
		log:       logger.Get("transcription"),
	}
}

// Providers returns the chain's providers in priority order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Name implements provider.Provider.
func (c *Chain) Name() string { return "chain" }

// IsAvailable reports whether at least one provider in the chain is available.
func (c *Chain) IsAvailable(ctx context.Context) bool {
	for _, p := range c.providers {
		if p.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

// Transcribe tries each provider in order and returns the first successful
// result. After exhausting the list it returns an ALL_PROVIDERS_FAILED error
// whose details record every attempt. Errors classified as invalid input
// (the audio itself is unusable) stop the chain immediately: no provider
// will accept the same payload.
func (c *Chain) Transcribe(ctx context.Context, req Request) (*Response, error) {
	if len(c.providers) == 0 {
		return nil, apperr.ServiceUnavailable("transcription")
	}

	attempts := make(map[string]error, len(c.providers))

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !p.IsAvailable(ctx) {
			c.log.Debug("skipping unavailable provider",
				logger.Fields(logger.FieldProvider, p.Name()))
			attempts[p.Name()] = apperr.ProviderNotConfigured(p.Name())
			continue
		}

		resp, err := p.Transcribe(ctx, req)
		if err == nil {
			resp.Provider = p.Name()
			return resp, nil
		}

		attempts[p.Name()] = err
		c.log.Warn("provider failed, falling back",
			logger.Fields(logger.FieldProvider, p.Name(), logger.FieldError, err.Error()))

		if apperr.CodeOf(err) == apperr.ErrCodeInvalidInput {
			return nil, err
		}
	}

	return nil, apperr.AllProvidersFailed(attempts)
}

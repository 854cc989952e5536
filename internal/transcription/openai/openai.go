// Package openai implements transcription.Provider on top of the official
// OpenAI audio transcription API via the go-openai SDK.
package openai

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/transcription"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	defaultModel   = goopenai.Whisper1
	defaultTimeout = 60 * time.Second

	// maxUploadBytes is the OpenAI audio upload limit.
	maxUploadBytes = 25 << 20
)

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	APIKey   string        `json:"api_key" yaml:"api_key"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url"`
	Model    string        `json:"model,omitempty" yaml:"model"`
	Language string        `json:"language,omitempty" yaml:"language"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// InsecureSkipVerify disables TLS verification on the SDK transport.
	InsecureSkipVerify bool `json:"-" yaml:"-"`
}

// Provider implements transcription.Provider using the OpenAI SDK.
type Provider struct {
	cfg    Config
	client *goopenai.Client
}

// New creates a new OpenAI transcription provider.
func New(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	clientCfg.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	return &Provider{cfg: cfg, client: goopenai.NewClientWithConfig(clientCfg)}
}

// Factory returns a provider.Factory that creates OpenAI providers from a
// generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		oc := Config{}
		if v, ok := cfg["api_key"].(string); ok {
			oc.APIKey = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			oc.BaseURL = v
		}
		if v, ok := cfg["model"].(string); ok {
			oc.Model = v
		}
		if v, ok := cfg["language"].(string); ok {
			oc.Language = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			oc.Timeout = v
		}
		if v, ok := cfg["insecure_skip_verify"].(bool); ok {
			oc.InsecureSkipVerify = v
		}
		return New(oc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider is configured with an API key.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

// Transcribe uploads the audio file to OpenAI and returns the transcription.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if p.cfg.APIKey == "" {
		return nil, apperr.ProviderNotConfigured(ProviderName)
	}

	info, err := os.Stat(req.AudioPath)
	if err != nil {
		return nil, apperr.InvalidInput("audio_path", err.Error()).WithCause(err)
	}
	if info.Size() > maxUploadBytes {
		return nil, apperr.AudioTooLarge(ProviderName, info.Size())
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	resp, err := p.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		FilePath: req.AudioPath,
		Language: lang,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, classify(err)
	}

	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	return &transcription.Response{
		Text:     resp.Text,
		Segments: segments,
		Duration: resp.Duration,
		Language: resp.Language,
	}, nil
}

// classify maps SDK errors onto domain error codes.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return apperr.InvalidAPIKey(ProviderName).WithCause(err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return apperr.RateLimited(ProviderName).WithCause(err)
		case apiErr.HTTPStatusCode >= 500:
			return apperr.ServiceUnavailable(ProviderName).WithCause(err)
		case apiErr.HTTPStatusCode >= 400:
			return apperr.InvalidInput("", apiErr.Message).WithCause(err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.ConnectionFailed(ProviderName).WithCause(err)
}

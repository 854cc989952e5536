// Package groq implements transcription.Provider against Groq's
// OpenAI-compatible Whisper endpoint.
package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/httpclient"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/transcription"
)

const (
	// ProviderName is the registered name for the Groq provider.
	ProviderName = "groq"

	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "whisper-large-v3"
	defaultTimeout = 60 * time.Second

	// maxUploadBytes is Groq's documented limit for audio uploads.
	maxUploadBytes = 25 << 20
)

// Config holds configuration for the Groq transcription provider.
type Config struct {
	APIKey   string        `json:"api_key" yaml:"api_key"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url"`
	Model    string        `json:"model,omitempty" yaml:"model"`
	Language string        `json:"language,omitempty" yaml:"language"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// HTTP carries transport-level options shared by all backends.
	HTTP httpclient.Config `json:"-" yaml:"-"`
}

// Provider implements transcription.Provider using the Groq audio API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// New creates a new Groq transcription provider.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	httpCfg := cfg.HTTP
	httpCfg.BaseURL = cfg.BaseURL
	httpCfg.Timeout = cfg.Timeout
	httpCfg.Auth = httpclient.BearerAuth(cfg.APIKey)

	client, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Groq providers from a
// generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		gc := Config{}
		if v, ok := cfg["api_key"].(string); ok {
			gc.APIKey = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			gc.BaseURL = v
		}
		if v, ok := cfg["model"].(string); ok {
			gc.Model = v
		}
		if v, ok := cfg["language"].(string); ok {
			gc.Language = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			gc.Timeout = v
		}
		if v, ok := cfg["http"].(httpclient.Config); ok {
			gc.HTTP = v
		}
		return New(gc)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider is configured with an API key.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.cfg.APIKey != ""
}

// Transcribe uploads the audio file to Groq and returns the transcription.
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

	file, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, apperr.InvalidInput("audio_path", err.Error()).WithCause(err)
	}
	defer file.Close()

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	fields := map[string]string{
		"model":           model,
		"response_format": "verbose_json",
	}
	if lang != "" {
		fields["language"] = lang
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: "POST",
		Path:   "/audio/transcriptions",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{
				httpclient.WAVFile("file", filepath.Base(req.AudioPath), file),
			},
		},
	})
	if err != nil {
		return nil, transcription.ClassifyProviderError(ProviderName, err)
	}

	var result groqResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("groq: decode response: %w", err)
	}

	return toResponse(&result), nil
}

// --- Groq API response types ---

type groqResponse struct {
	Text     string        `json:"text"`
	Segments []groqSegment `json:"segments"`
	Duration float64       `json:"duration"`
	Language string        `json:"language"`
}

type groqSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func toResponse(resp *groqResponse) *transcription.Response {
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
	}
}

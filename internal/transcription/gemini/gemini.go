// Package gemini implements transcription.Provider against the Google
// Generative Language API. Gemini has no dedicated speech endpoint; the audio
// is sent inline with a verbatim-transcript prompt.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/httpclient"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/transcription"
)

const (
	// ProviderName is the registered name for the Gemini provider.
	ProviderName = "gemini"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 90 * time.Second

	// maxUploadBytes caps the inline audio payload. The API limits inline
	// request bodies to 20 MB; base64 adds a third on top of the raw size.
	maxUploadBytes = 14 << 20

	// transcriptPrompt asks for a verbatim transcript with no commentary.
	transcriptPrompt = "Generate a verbatim transcript of the speech. " +
		"Ensure the transcription captures all spoken words accurately. " +
		"Avoid adding commentary or interpretation."
)

// Config holds configuration for the Gemini transcription provider.
type Config struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// HTTP carries transport-level options shared by all backends.
	HTTP httpclient.Config `json:"-" yaml:"-"`
}

// Provider implements transcription.Provider using Gemini generateContent.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// New creates a new Gemini transcription provider.
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
	httpCfg.Auth = httpclient.APIKeyAuthQuery(cfg.APIKey, "key")

	client, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Gemini providers from a
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

// Transcribe sends the audio inline to Gemini and returns the transcript text.
// Gemini returns prose, not timed segments, so the response carries text only.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if p.cfg.APIKey == "" {
		return nil, apperr.ProviderNotConfigured(ProviderName)
	}

	data, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, apperr.InvalidInput("audio_path", err.Error()).WithCause(err)
	}
	if int64(len(data)) > maxUploadBytes {
		return nil, apperr.AudioTooLarge(ProviderName, int64(len(data)))
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	prompt := transcriptPrompt
	if req.Language != "" {
		prompt += " The speech is in " + req.Language + "."
	}

	body := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: "audio/wav",
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: "POST",
		Path:   fmt.Sprintf("/models/%s:generateContent", model),
		Body:   body,
	})
	if err != nil {
		return nil, transcription.ClassifyProviderError(ProviderName, err)
	}

	var result generateContentResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}

	text := result.text()
	if text == "" {
		return nil, apperr.ServiceUnavailable(ProviderName).
			WithDetail("reason", "empty candidate list in response")
	}

	return &transcription.Response{Text: text}, nil
}

// --- Gemini API request/response types ---

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text joins the text parts of the first candidate.
func (r *generateContentResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

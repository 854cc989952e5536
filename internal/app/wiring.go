package app

import (
	"github.com/kbukum/voicetap/internal/config"
	"github.com/kbukum/voicetap/internal/httpclient"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/transcription"
	"github.com/kbukum/voicetap/internal/transcription/gemini"
	"github.com/kbukum/voicetap/internal/transcription/groq"
	"github.com/kbukum/voicetap/internal/transcription/openai"
)

// NewProviderManager registers and initializes every transcription backend
// from the configuration. Backends without an API key still initialize; they
// report unavailable and the chain skips them.
func NewProviderManager(cfg config.Config) (*provider.Manager[transcription.Provider], error) {
	m := transcription.NewManager(transcription.WithPriority(cfg.ChainOrder()))

	m.Register(groq.ProviderName, groq.Factory())
	m.Register(openai.ProviderName, openai.Factory())
	m.Register(gemini.ProviderName, gemini.Factory())

	httpCfg := httpclient.Config{
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		EnableHTTP2:        cfg.HTTP.EnableHTTP2,
	}

	for _, name := range []string{groq.ProviderName, openai.ProviderName, gemini.ProviderName} {
		pc, _ := cfg.ProviderFor(name)
		settings := map[string]any{
			"api_key":  pc.APIKey,
			"base_url": pc.BaseURL,
			"model":    pc.Model,
			"timeout":  pc.Timeout,
			"language": cfg.Language,
			"http":     httpCfg,
			// The SDK-backed provider takes the TLS toggle directly.
			"insecure_skip_verify": cfg.HTTP.InsecureSkipVerify,
		}
		if err := m.Initialize(name, settings); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// BuildChain assembles the fallback chain in the configured order, each
// provider wrapped with retry and a circuit breaker.
func BuildChain(cfg config.Config, m *provider.Manager[transcription.Provider]) *transcription.Chain {
	var providers []transcription.Provider
	for _, name := range cfg.ChainOrder() {
		p, err := m.GetByName(name)
		if err != nil {
			continue
		}
		providers = append(providers, transcription.WithResilience(p, transcription.DefaultResilienceConfig(name)))
	}
	return transcription.NewChain(providers)
}

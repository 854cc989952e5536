package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	path := writeConfig(t, "language: en\n")
	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "none")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderAuto {
		t.Errorf("Provider = %q, want auto", cfg.Provider)
	}
	want := []string{ProviderGroq, ProviderOpenAI, ProviderGemini}
	if len(cfg.FallbackOrder) != len(want) {
		t.Fatalf("FallbackOrder = %v, want %v", cfg.FallbackOrder, want)
	}
	for i, p := range want {
		if cfg.FallbackOrder[i] != p {
			t.Errorf("FallbackOrder[%d] = %q, want %q", i, cfg.FallbackOrder[i], p)
		}
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
	if cfg.VAD.SilenceAbort != 30*time.Second {
		t.Errorf("SilenceAbort = %v, want 30s", cfg.VAD.SilenceAbort)
	}
	if cfg.Server.Addr != "127.0.0.1:8717" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}

	rc := cfg.RecorderConfig()
	if rc.SampleRate != 16000 || rc.FramesPerBuffer != 1024 {
		t.Errorf("recorder defaults = %d/%d, want 16000/1024", rc.SampleRate, rc.FramesPerBuffer)
	}
	if rc.MaxChunk != 7*time.Minute || rc.MaxDuration != 30*time.Minute {
		t.Errorf("chunking defaults = %v/%v", rc.MaxChunk, rc.MaxDuration)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	path := writeConfig(t, `
provider: groq
fallback_order: [gemini, groq]
audio:
  sample_rate: 44100
  max_chunk: 2m
vad:
  enabled: true
  aggressiveness: 3
  silence_abort: 10s
providers:
  groq:
    api_key: file-key
    model: whisper-large-v3-turbo
`)
	t.Setenv("GROQ_API_KEY", "")
	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "none")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderGroq {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("SampleRate = %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.MaxChunk != 2*time.Minute {
		t.Errorf("MaxChunk = %v", cfg.Audio.MaxChunk)
	}
	if cfg.VAD.Aggressiveness != 3 || cfg.VAD.SilenceAbort != 10*time.Second {
		t.Errorf("VAD = %+v", cfg.VAD)
	}
	if cfg.Providers.Groq.APIKey != "file-key" {
		t.Errorf("Groq.APIKey = %q", cfg.Providers.Groq.APIKey)
	}
	if cfg.Providers.Groq.Model != "whisper-large-v3-turbo" {
		t.Errorf("Groq.Model = %q", cfg.Providers.Groq.Model)
	}

	order := cfg.ChainOrder()
	if len(order) != 1 || order[0] != ProviderGroq {
		t.Errorf("ChainOrder() = %v, want [groq]", order)
	}
}

func TestAPIKeysResolveEnvFirst(t *testing.T) {
	path := writeConfig(t, `
providers:
  groq: {api_key: file-key}
  openai: {api_key: file-key}
`)
	t.Setenv("GROQ_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "none")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Groq.APIKey != "env-key" {
		t.Errorf("Groq.APIKey = %q, want env override", cfg.Providers.Groq.APIKey)
	}
	if cfg.Providers.OpenAI.APIKey != "file-key" {
		t.Errorf("OpenAI.APIKey = %q, want file value", cfg.Providers.OpenAI.APIKey)
	}
}

func TestEnvOverridesApplyWithoutConfigKey(t *testing.T) {
	t.Setenv("VOICETAP_PROVIDER", "groq")
	t.Setenv("VOICETAP_VAD_ENABLED", "true")
	t.Setenv("VOICETAP_VAD_SILENCE_ABORT", "12s")
	t.Setenv("VOICETAP_PROVIDERS_GROQ_MODEL", "whisper-large-v3-turbo")

	// None of the overridden keys appear in the file.
	path := writeConfig(t, "language: en\n")
	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "none")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderGroq {
		t.Errorf("Provider = %q, want env override", cfg.Provider)
	}
	if !cfg.VAD.Enabled {
		t.Error("VAD.Enabled = false, want env override")
	}
	if cfg.VAD.SilenceAbort != 12*time.Second {
		t.Errorf("VAD.SilenceAbort = %v, want 12s", cfg.VAD.SilenceAbort)
	}
	if cfg.Providers.Groq.Model != "whisper-large-v3-turbo" {
		t.Errorf("Groq.Model = %q, want env override", cfg.Providers.Groq.Model)
	}
}

func TestEnvOverridesBeatConfigFile(t *testing.T) {
	t.Setenv("VOICETAP_PROVIDER", "gemini")
	path := writeConfig(t, "provider: groq\n")
	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), "none")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderGemini {
		t.Errorf("Provider = %q, want env to beat the file", cfg.Provider)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GEMINI_API_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")

	cfg, err := Load(WithConfigFile(writeConfig(t, "provider: auto\n")), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Gemini.APIKey != "dotenv-key" {
		t.Errorf("Gemini.APIKey = %q, want value from .env", cfg.Providers.Gemini.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "provider: whisperx\n"},
		{"bad fallback entry", "fallback_order: [groq, bogus]\n"},
		{"bad aggressiveness", "vad: {aggressiveness: 9}\n"},
		{"bad server addr", "server: {addr: not-an-addr}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(WithConfigFile(writeConfig(t, tt.yaml)), WithEnvFile(filepath.Join(t.TempDir(), "none")))
			if apperr.CodeOf(err) != apperr.ErrCodeInvalidInput {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestProviderFor(t *testing.T) {
	cfg := Config{}
	cfg.Providers.Gemini.APIKey = "k"
	if pc, ok := cfg.ProviderFor(ProviderGemini); !ok || pc.APIKey != "k" {
		t.Errorf("ProviderFor(gemini) = %+v, %v", pc, ok)
	}
	if _, ok := cfg.ProviderFor("nope"); ok {
		t.Error("ProviderFor accepted unknown name")
	}
}

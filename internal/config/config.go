// Package config loads, defaults, and validates the application
// configuration from config.yml, .env files, and environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/record"
	"github.com/kbukum/voicetap/internal/store"
	"github.com/kbukum/voicetap/internal/vad"
)

// Provider names accepted in configuration.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderAuto   = "auto"
)

// Config is the full application configuration.
type Config struct {
	// Provider selects a single backend, or "auto" for the fallback chain.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=groq openai gemini auto"`
	// FallbackOrder is the chain priority used when Provider is "auto".
	FallbackOrder []string `yaml:"fallback_order" mapstructure:"fallback_order" validate:"dive,oneof=groq openai gemini"`
	// Language hints the spoken language (ISO-639-1), empty for auto-detect.
	Language string `yaml:"language" mapstructure:"language"`

	Audio     AudioConfig     `yaml:"audio" mapstructure:"audio"`
	VAD       VADConfig       `yaml:"vad" mapstructure:"vad"`
	Clipboard ClipboardConfig `yaml:"clipboard" mapstructure:"clipboard"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     store.Config    `yaml:"store" mapstructure:"store"`
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
}

// AudioConfig configures capture and chunking.
type AudioConfig struct {
	SampleRate      int           `yaml:"sample_rate" mapstructure:"sample_rate" validate:"omitempty,min=8000,max=48000"`
	Channels        int           `yaml:"channels" mapstructure:"channels" validate:"omitempty,min=1,max=2"`
	FramesPerBuffer int           `yaml:"frames_per_buffer" mapstructure:"frames_per_buffer" validate:"omitempty,min=64"`
	PreRoll         time.Duration `yaml:"pre_roll" mapstructure:"pre_roll"`
	MaxChunk        time.Duration `yaml:"max_chunk" mapstructure:"max_chunk"`
	ChunkOverlap    time.Duration `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxDuration     time.Duration `yaml:"max_duration" mapstructure:"max_duration"`
}

// VADConfig configures silence detection.
type VADConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Aggressiveness int           `yaml:"aggressiveness" mapstructure:"aggressiveness" validate:"min=0,max=3"`
	SilenceWarning time.Duration `yaml:"silence_warning" mapstructure:"silence_warning"`
	SilenceAbort   time.Duration `yaml:"silence_abort" mapstructure:"silence_abort"`
}

// ClipboardConfig configures transcript delivery.
type ClipboardConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ProviderConfig configures one transcription backend.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Model   string        `yaml:"model" mapstructure:"model"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ProvidersConfig holds per-backend configuration.
type ProvidersConfig struct {
	Groq   ProviderConfig `yaml:"groq" mapstructure:"groq"`
	OpenAI ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Gemini ProviderConfig `yaml:"gemini" mapstructure:"gemini"`
}

// HTTPConfig holds transport options shared by the HTTP-based backends.
type HTTPConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	EnableHTTP2        bool `yaml:"enable_http2" mapstructure:"enable_http2"`
}

// ServerConfig configures the local control API.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// ApplyDefaults fills in zero-value fields. API keys resolve env-first:
// GROQ_API_KEY, OPENAI_API_KEY, and GEMINI_API_KEY override file values.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAuto
	}
	if len(c.FallbackOrder) == 0 {
		c.FallbackOrder = []string{ProviderGroq, ProviderOpenAI, ProviderGemini}
	}

	if c.VAD.SilenceWarning == 0 {
		c.VAD.SilenceWarning = 8 * time.Second
	}
	if c.VAD.SilenceAbort == 0 {
		c.VAD.SilenceAbort = 30 * time.Second
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Providers.Groq.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Providers.Gemini.APIKey = key
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8717"
	}

	c.Store.ApplyDefaults()
	c.Logging.ApplyDefaults()
}

// RecorderConfig assembles the recorder configuration. Temp WAVs live under
// the store directory so the janitor can reclaim orphans after a crash.
func (c *Config) RecorderConfig() record.Config {
	rc := record.Config{
		SampleRate:      c.Audio.SampleRate,
		Channels:        c.Audio.Channels,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		PreRoll:         c.Audio.PreRoll,
		MaxChunk:        c.Audio.MaxChunk,
		ChunkOverlap:    c.Audio.ChunkOverlap,
		MaxDuration:     c.Audio.MaxDuration,
		TempDir:         c.Store.Dir,
		VADEnabled:      c.VAD.Enabled,
		VAD: vad.Config{
			Aggressiveness: vad.Aggressiveness(c.VAD.Aggressiveness),
			SilenceWarning: c.VAD.SilenceWarning,
			SilenceAbort:   c.VAD.SilenceAbort,
		},
	}
	rc.ApplyDefaults()
	return rc
}

// ProviderFor returns the configuration for a named backend.
func (c *Config) ProviderFor(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderGroq:
		return c.Providers.Groq, true
	case ProviderOpenAI:
		return c.Providers.OpenAI, true
	case ProviderGemini:
		return c.Providers.Gemini, true
	default:
		return ProviderConfig{}, false
	}
}

// ChainOrder returns the effective provider order: the fallback chain for
// "auto", otherwise just the selected provider.
func (c *Config) ChainOrder() []string {
	if c.Provider == ProviderAuto || c.Provider == "" {
		return c.FallbackOrder
	}
	return []string{c.Provider}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration. Tag validation runs first, then the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			e := verrs[0]
			return apperr.InvalidInput(e.Field(), validationMessage(e))
		}
		return apperr.InvalidInput("config", err.Error())
	}

	if c.Provider != ProviderAuto {
		if _, ok := c.ProviderFor(c.Provider); !ok {
			return apperr.InvalidInput("provider", fmt.Sprintf("unknown provider %q", c.Provider))
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return apperr.InvalidInput("logging", err.Error())
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be host:port"
	default:
		return "is invalid"
	}
}

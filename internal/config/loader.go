package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/voicetap/internal/store"
)

// envPrefix namespaces environment overrides: VOICETAP_VAD_AGGRESSIVENESS
// maps to vad.aggressiveness. Provider API keys additionally resolve from
// their conventional variables (GROQ_API_KEY and friends) in ApplyDefaults.
const envPrefix = "VOICETAP"

// LoaderOption customizes Load.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	configFile string
	envFile    string
}

// WithConfigFile sets an explicit config file path, skipping discovery.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping discovery.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load reads configuration from the discovered (or given) config.yml and
// .env files, applies environment overrides, defaults, and validation.
func Load(opts ...LoaderOption) (*Config, error) {
	m, err := NewManager(opts...)
	if err != nil {
		return nil, err
	}
	cfg := m.Get()
	return &cfg, nil
}

// findConfigFile searches the standard locations for config.yml.
func findConfigFile() string {
	candidates := []string{
		"./cmd/voicetap/config.yml",
		"./config/config.yml",
		"./config.yml",
		filepath.Join(store.DefaultDir(), "config.yml"),
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches the standard locations for a .env file.
func findEnvFile() string {
	candidates := []string{
		"./cmd/voicetap/.env",
		"./.env",
		filepath.Join(store.DefaultDir(), ".env"),
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newViper builds a viper instance bound to the resolved files and env.
func newViper(o loaderOptions) (*viper.Viper, error) {
	configFile := o.configFile
	if configFile == "" {
		configFile = findConfigFile()
	}
	envFile := o.envFile
	if envFile == "" {
		envFile = findEnvFile()
	}

	// .env first so the variables are visible to AutomaticEnv.
	if envFile != "" && fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	bindEnvOverrides(v)
	return v, nil
}

// bindEnvOverrides copies VOICETAP_* environment variables into viper under
// every nested key they can address. AutomaticEnv alone only resolves keys
// viper already knows about, so without this an override whose key is absent
// from the config file (or the whole no-config-file case) would be ignored.
func bindEnvOverrides(v *viper.Viper) {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, envPrefix+"_") {
			continue
		}
		for _, key := range envKeyVariants(strings.TrimPrefix(name, envPrefix+"_")) {
			v.Set(key, value)
		}
	}
}

// envKeyVariants expands an UPPER_SNAKE env suffix into the config keys it
// could mean, since underscores appear both as nesting separators and inside
// key names. VAD_SILENCE_WARNING yields vad.silence.warning,
// vad.silence_warning, and vad_silence_warning; keys that match nothing in
// the Config struct are ignored on decode.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}
	variants := []string{lower, strings.ReplaceAll(lower, "_", ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}

// unmarshalInto decodes the viper state into a fresh, defaulted, validated
// Config.
func unmarshalInto(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Package cli implements the voicetap command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicetap/internal/app"
	"github.com/kbukum/voicetap/internal/clipboard"
	"github.com/kbukum/voicetap/internal/config"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/provider"
	"github.com/kbukum/voicetap/internal/record"
	"github.com/kbukum/voicetap/internal/store"
	"github.com/kbukum/voicetap/internal/transcription"
)

type rootFlags struct {
	configFile string
	envFile    string
	debug      bool
}

// NewRootCmd builds the voicetap command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "voicetap",
		Short:         "Toggle-to-dictate: record speech, transcribe it, and put the text on the clipboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to config.yml")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to .env file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newRecordCmd(&flags),
		newTranscribeCmd(&flags),
		newServeCmd(&flags),
		newProvidersCmd(&flags),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration manager and initializes logging.
func loadConfig(flags *rootFlags) (*config.Manager, config.Config, error) {
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}

	mgr, err := config.NewManager(opts...)
	if err != nil {
		return nil, config.Config{}, err
	}

	cfg := mgr.Get()
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	logger.Init(cfg.Logging)
	return mgr, cfg, nil
}

// runtime bundles everything the recording commands need.
type runtime struct {
	cfg       config.Config
	mgr       *config.Manager
	app       *app.App
	store     *store.Store
	providers *provider.Manager[transcription.Provider]
}

// buildRuntime assembles the app over the default input device.
func buildRuntime(mgr *config.Manager, cfg config.Config) (*runtime, error) {
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	record.CleanupTempFiles(st.Dir())

	var clip clipboard.Writer
	if cfg.Clipboard.Enabled {
		sys, err := clipboard.NewSystem()
		if err != nil {
			logger.Get("cli").Warn("system clipboard unavailable, transcripts go to history only",
				logger.ErrorFields("clipboard", err))
		} else {
			clip = sys
		}
	}

	providers, err := app.NewProviderManager(cfg)
	if err != nil {
		return nil, err
	}
	chain := app.BuildChain(cfg, providers)

	rc := cfg.RecorderConfig()
	source := record.NewPortAudioSource(rc.SampleRate, rc.Channels, rc.FramesPerBuffer)

	a := app.New(app.Options{
		Config:    cfg,
		Source:    source,
		Chain:     chain,
		Clipboard: clip,
		Store:     st,
	})

	mgr.OnReload(a.Reload)
	mgr.Watch()

	return &runtime{cfg: cfg, mgr: mgr, app: a, store: st, providers: providers}, nil
}

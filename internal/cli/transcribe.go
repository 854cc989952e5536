package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicetap/internal/app"
	"github.com/kbukum/voicetap/internal/transcription"
)

func newTranscribeCmd(flags *rootFlags) *cobra.Command {
	var (
		output       string
		providerName string
		language     string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a single audio file through the provider chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if providerName != "" {
				cfg.Provider = providerName
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if language != "" {
				cfg.Language = language
			}

			providers, err := app.NewProviderManager(cfg)
			if err != nil {
				return err
			}
			chain := app.BuildChain(cfg, providers)

			resp, err := chain.Transcribe(cmd.Context(), transcription.Request{
				AudioPath: args[0],
				Language:  cfg.Language,
			})
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(resp.Text+"\n"), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "transcript written to %s (provider: %s)\n", output, resp.Provider)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the transcript to a file instead of stdout")
	cmd.Flags().StringVar(&providerName, "provider", "", "use a single provider (groq, openai, gemini)")
	cmd.Flags().StringVar(&language, "language", "", "spoken language hint (ISO-639-1)")
	return cmd
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicetap/internal/app"
)

func newProvidersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured transcription providers and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			providers, err := app.NewProviderManager(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCONFIGURED\tMODEL")
			for _, name := range cfg.ChainOrder() {
				p, err := providers.GetByName(name)
				if err != nil {
					continue
				}
				pc, _ := cfg.ProviderFor(name)
				model := pc.Model
				if model == "" {
					model = "(default)"
				}
				fmt.Fprintf(w, "%s\t%v\t%s\n", name, p.IsAvailable(cmd.Context()), model)
			}
			return w.Flush()
		},
	}
}

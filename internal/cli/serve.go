package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicetap/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder with the local control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			rt, err := buildRuntime(mgr, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rt.store.StartJanitor(ctx); err != nil {
				return err
			}

			captureErr := make(chan error, 1)
			go func() { captureErr <- rt.app.Run(ctx) }()

			srv := server.New(server.Options{
				Config:    server.Config{Addr: cfg.Server.Addr},
				App:       rt.app,
				Store:     rt.store,
				Providers: rt.providers,
			})
			if err := srv.Run(ctx); err != nil {
				return err
			}
			stop()
			return <-captureErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, loopback)")
	return cmd
}

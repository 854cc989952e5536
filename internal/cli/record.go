package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newRecordCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Interactive dictation loop: Enter toggles recording, c cancels, q quits",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(mgr, cfg)
			if err != nil {
				return err
			}
			return runRecordLoop(cmd.Context(), rt)
		},
	}
}

func runRecordLoop(parent context.Context, rt *runtime) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.store.StartJanitor(ctx); err != nil {
		return err
	}

	captureErr := make(chan error, 1)
	go func() { captureErr <- rt.app.Run(ctx) }()

	// SIGUSR1 toggles, so a hotkey daemon can drive dictation via kill.
	toggleSig := make(chan os.Signal, 1)
	signal.Notify(toggleSig, syscall.SIGUSR1)
	defer signal.Stop(toggleSig)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	fmt.Println("voicetap ready. Enter toggles recording, c cancels, q quits.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-captureErr:
			return err
		case <-toggleSig:
			reportToggle(rt)
		case line, ok := <-lines:
			if !ok {
				stop()
				return nil
			}
			switch line {
			case "":
				reportToggle(rt)
			case "c":
				if err := rt.app.Cancel(); err != nil {
					fmt.Println("nothing to cancel")
				} else {
					fmt.Println("recording discarded")
				}
			case "q":
				stop()
				return nil
			default:
				fmt.Println("Enter toggles recording, c cancels, q quits.")
			}
		}
	}
}

func reportToggle(rt *runtime) {
	status, err := rt.app.Toggle()
	if err != nil {
		fmt.Println("toggle failed:", err)
		return
	}
	if status.State == "recording" {
		fmt.Println("recording... press Enter to stop")
	} else {
		fmt.Println("transcribing...")
	}
}

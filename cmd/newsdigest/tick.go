package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var tickAt string

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single scheduler tick and exit",
	Long: `Run the scheduler once for the current time (or --at) and print the outcome as JSON.
Intended for cron jobs and serverless triggers. Exits non-zero only when the
ledger store fails, which leaves the window pending for the next trigger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if tickAt != "" {
			parsed, err := time.Parse(time.RFC3339, tickAt)
			if err != nil {
				return fmt.Errorf("invalid --at value: %w", err)
			}
			now = parsed
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		out, tickErr := a.scheduler.Tick(ctx, now)

		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(out); err != nil {
			log.WithError(err).Error("Failed to print outcome")
		}
		return tickErr
	},
}

func init() {
	tickCmd.Flags().StringVar(&tickAt, "at", "", "override the current time (RFC3339)")
}

// runTick is shared by serve; it never returns the store error, only logs it.
func runTick(ctx context.Context, a *app, now time.Time) {
	if _, err := a.scheduler.Tick(ctx, now); err != nil {
		log.WithError(err).Error("Tick failed, window will be retried")
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fleetrecon/internal/scheduler"
)

func runOnceCmd() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single reconciliation cycle and print its summary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := wire(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			summary, err := scheduler.New(c.reconciler, cfg.Reconcile.Interval, c.nrApp, log).Trigger(ctx)
			if err != nil {
				return fmt.Errorf("reconciliation cycle: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(summary)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON summary")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldframe/internal/services"
)

// newProcessCommand drains the queue without running the daemon. Each pass
// handles one item through its next stage; the loop stops when no
// actionable item remains.
func newProcessCommand(ctx *commandContext) *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process queued recordings once, without the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			manager := buildManager(cfg, store, logger)
			out := cmd.OutOrStdout()

			processed := 0
			var lastErr error
			for maxItems <= 0 || processed < maxItems {
				found, err := manager.RunOnce(cmd.Context())
				if !found {
					break
				}
				processed++
				if err != nil {
					lastErr = err
					// A held item stays actionable; without the daemon's
					// backoff that would spin forever.
					if services.IsRetryEligible(err) {
						fmt.Fprintln(out, "Item held awaiting authentication; fix remote.token and re-run.")
						break
					}
				}
			}

			fmt.Fprintf(out, "Processed %d stage run(s).\n", processed)
			if lastErr != nil {
				return fmt.Errorf("last stage error: %w", lastErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxItems, "max", "n", 0, "Stop after this many stage runs (0 = until idle)")
	return cmd
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fieldframe/internal/daemon"
	"fieldframe/internal/preflight"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background processing daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !skipPreflight {
				results := preflight.RunAll(runCtx, cfg)
				colorize := shouldColorize(cmd.OutOrStdout())
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusWarn
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
			}

			manager := buildManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Daemon running; press Ctrl-C to stop.")
			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks on startup")
	return cmd
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fieldframe/internal/capture"
	"fieldframe/internal/sequencer"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "capture <object-label>",
		Short: "Record a guided capture session and queue it for extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			service, err := capture.NewService(cfg, store, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result, err := service.Run(cmd.Context(), args[0], func(snap sequencer.Snapshot, pulse bool) {
				renderCaptureUpdate(out, snap, pulse)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nRecording saved to %s\n", result.VideoPath)

			if !autoApprove && !confirmCapture(cmd) {
				if err := service.Discard(result); err != nil {
					return err
				}
				fmt.Fprintln(out, "Capture discarded.")
				return nil
			}

			item, err := service.Approve(cmd.Context(), result)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queued recording %d for extraction.\n", item.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "Queue the recording without asking")
	return cmd
}

func renderCaptureUpdate(out io.Writer, snap sequencer.Snapshot, pulse bool) {
	if pulse {
		// Terminal bell marks each phase boundary for heads-down operators.
		fmt.Fprintf(out, "\a%s %s\n", snap.Icon, snap.Instruction)
	}
	fmt.Fprintf(out, "\r[%d/%d] %-12s %2ds left  (%3.0f%%)",
		snap.PhaseIndex+1, snap.PhaseCount, snap.Label, snap.PhaseRemaining, snap.Progress*100)
}

func confirmCapture(cmd *cobra.Command) bool {
	fmt.Fprint(cmd.OutOrStdout(), "Keep this recording? [Y/n] ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return true
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes"
}

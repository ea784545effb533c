package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fauna/internal/api"
)

// statusPollInterval paces --watch polling against the daemon.
const statusPollInterval = 2 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <photo-id>",
		Short: "Show the classification state of a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return watchStatus(ctx, cmd, args[0])
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				status, err := q.PhotoStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if status == nil {
					return fmt.Errorf("%w: %s", errPhotoNotFound, args[0])
				}
				printStatus(cmd, *status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the photo settles")
	return cmd
}

// watchStatus polls the status endpoint until the item reaches a terminal
// state, printing transitions as they happen.
func watchStatus(ctx *commandContext, cmd *cobra.Command, id string) error {
	lastState := ""
	for {
		var status *api.StatusResponse
		err := ctx.withQueueAPI(func(q queueAPI) error {
			s, err := q.PhotoStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			status = s
			return nil
		})
		if err != nil {
			return err
		}
		if status == nil {
			return fmt.Errorf("%w: %s", errPhotoNotFound, id)
		}

		if status.State != lastState {
			lastState = status.State
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, status.State)
		}
		if status.State == "done" || status.State == "failed" {
			printStatus(cmd, *status)
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(statusPollInterval):
		}
	}
}

func printStatus(cmd *cobra.Command, status api.StatusResponse) {
	out := cmd.OutOrStdout()
	switch status.State {
	case "done":
		if status.Result != nil {
			fmt.Fprintf(out, "%s (%s confidence)\n",
				displayLabel(status.Result.Label),
				displayConfidence(status.Result.Confidence),
			)
			if len(status.Result.Scores) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"Label", "Score"},
					buildScoreRows(status.Result.Scores),
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return
		}
		fmt.Fprintln(out, "done")
	case "failed":
		if status.FailureReason != nil {
			fmt.Fprintf(out, "failed: %s", status.FailureReason.Kind)
			if status.FailureReason.Detail != "" {
				fmt.Fprintf(out, " (%s)", status.FailureReason.Detail)
			}
			fmt.Fprintln(out)
			return
		}
		fmt.Fprintln(out, "failed")
	default:
		fmt.Fprintln(out, status.State)
	}
}

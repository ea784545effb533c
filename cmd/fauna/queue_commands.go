package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fauna/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner != "" && len(listStatuses) > 0 {
				return fmt.Errorf("--owner and --status cannot be combined")
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				var items []api.PhotoItem
				var err error
				if owner != "" {
					items, err = q.Recent(cmd.Context(), owner, limit)
				} else {
					items, err = q.List(cmd.Context(), listStatuses)
				}
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Label", "Confidence", "Failure", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, processing, done, failed)")
	cmd.Flags().StringVar(&owner, "owner", "", "Show the owner's most recent uploads instead")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum items with --owner")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				stats, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					buildQueueStatsRows(stats),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [photo-id...]",
		Short: "Send failed items back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				retried, err := q.Retry(cmd.Context(), args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d item(s)\n", retried)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <photo-id>",
		Short: "Remove a single queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				removed, err := q.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%w: %s", errPhotoNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failed bool
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := "done"
			if failed {
				scope = "failed"
			}
			if all {
				scope = "all"
			}
			return ctx.withQueueAPI(func(q queueAPI) error {
				removed, err := q.Clear(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Remove failed items instead of done items")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every item regardless of status")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show aggregate queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				state := "healthy"
				if !health.Healthy {
					state = "unhealthy"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s, %d item(s) total\n", state, health.Total)
				if len(health.Counts) > 0 {
					fmt.Fprint(cmd.OutOrStdout(), renderTable(
						[]string{"Status", "Count"},
						buildQueueStatsRows(health.Counts),
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := ctx.apiBase()
			if base == "" {
				return fmt.Errorf("no API address configured; set paths.api_bind or pass --api")
			}
			client := newDaemonClient(base)
			status, err := client.DaemonStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon not reachable at %s: %w", base, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Queue DB: %s\n", status.QueueDBPath)
			if status.Worker.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", status.Worker.LastError)
			}
			if len(status.Worker.QueueStats) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"Status", "Count"},
					buildQueueStatsRows(status.Worker.QueueStats),
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <photo-id>",
		Short: "Show full detail for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAPI(func(q queueAPI) error {
				item, err := q.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("%w: %s", errPhotoNotFound, args[0])
				}

				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Field", "Value"},
					buildItemDetailRows(*item),
					[]columnAlignment{alignLeft, alignLeft},
				))
				if item.Result != nil && len(item.Result.Scores) > 0 {
					fmt.Fprint(cmd.OutOrStdout(), renderTable(
						[]string{"Label", "Score"},
						buildScoreRows(item.Result.Scores),
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

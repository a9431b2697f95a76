package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
)

var markUndone bool

var DoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		outcome, err := app.SetTodoDone(cmd.Context(), args[0], !markUndone)
		if err != nil {
			return fmt.Errorf("failed to update todo: %w", err)
		}

		if outcome.Queued {
			fmt.Println("Update queued for sync")
		} else if markUndone {
			fmt.Println("Todo reopened")
		} else {
			fmt.Println("Todo completed")
		}

		return nil
	},
}

func init() {
	DoneCmd.Flags().BoolVar(&markUndone, "undo", false, "reopen the task instead")
}

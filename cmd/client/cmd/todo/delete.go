package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		outcome, err := app.DeleteTodo(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete todo: %w", err)
		}

		if outcome.Queued {
			fmt.Println("Delete queued for sync")
		} else {
			fmt.Println("Todo deleted")
		}

		return nil
	},
}

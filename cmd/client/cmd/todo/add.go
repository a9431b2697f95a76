package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/domain/todo"
)

var addPatientID string

var AddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a task to a patient card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		t := &todo.Todo{
			PatientID: addPatientID,
			Text:      args[0],
		}

		outcome, err := app.AddTodo(cmd.Context(), t)
		if err != nil {
			return fmt.Errorf("failed to add todo: %w", err)
		}

		if outcome.Queued {
			fmt.Printf("Todo queued for sync (temporary id %s)\n", outcome.EntityID)
		} else {
			fmt.Printf("Todo added (id %s)\n", outcome.EntityID)
		}

		return nil
	},
}

func init() {
	AddCmd.Flags().StringVarP(&addPatientID, "patient", "p", "", "patient card id")
	AddCmd.MarkFlagRequired("patient")
}

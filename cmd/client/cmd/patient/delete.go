package patient

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a patient card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		outcome, err := app.DeletePatient(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}

		if outcome.Queued {
			fmt.Println("Delete queued for sync")
		} else {
			fmt.Println("Patient deleted")
		}

		return nil
	},
}

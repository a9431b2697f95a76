package patient

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
)

var (
	updateName    string
	updateRoom    string
	updateSummary string
	updateNote    string
)

var UpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a patient card",
	Long:  `Updates only the fields given by flags, the rest stay as they are.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		fields := map[string]interface{}{}
		if cmd.Flags().Changed("name") {
			fields["name"] = updateName
		}
		if cmd.Flags().Changed("room") {
			fields["room"] = updateRoom
		}
		if cmd.Flags().Changed("summary") {
			fields["summary"] = updateSummary
		}
		if cmd.Flags().Changed("note") {
			fields["note"] = updateNote
		}

		if len(fields) == 0 {
			return fmt.Errorf("nothing to update, pass at least one field flag")
		}

		outcome, err := app.UpdatePatient(cmd.Context(), args[0], fields)
		if err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}

		if outcome.Queued {
			fmt.Println("Update queued for sync")
		} else {
			fmt.Println("Patient updated")
		}

		return nil
	},
}

func init() {
	UpdateCmd.Flags().StringVar(&updateName, "name", "", "patient name")
	UpdateCmd.Flags().StringVarP(&updateRoom, "room", "r", "", "room number")
	UpdateCmd.Flags().StringVarP(&updateSummary, "summary", "s", "", "one-line summary")
	UpdateCmd.Flags().StringVarP(&updateNote, "note", "n", "", "free-text note")
}

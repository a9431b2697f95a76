// cmd/client/cmd/patient/create.go
package patient

import (
	"fmt"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/domain/patient"
)

var (
	createRoom    string
	createMRN     string
	createSummary string
	createNote    string
)

var CreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Add a patient card",
	Long: `Adds a patient card to the rounding list.

While offline the card is stored locally under a temporary id and pushed
to the server on the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		p := &patient.Patient{
			Name:    args[0],
			Room:    createRoom,
			MRN:     createMRN,
			Summary: createSummary,
			Note:    createNote,
		}

		outcome, err := app.CreatePatient(cmd.Context(), p)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}

		if outcome.Queued {
			fmt.Printf("Patient queued for sync (temporary id %s)\n", outcome.EntityID)
		} else {
			fmt.Printf("Patient created (id %s)\n", outcome.EntityID)
		}

		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&createRoom, "room", "r", "", "room number")
	CreateCmd.Flags().StringVarP(&createMRN, "mrn", "m", "", "medical record number")
	CreateCmd.Flags().StringVarP(&createSummary, "summary", "s", "", "one-line summary")
	CreateCmd.Flags().StringVarP(&createNote, "note", "n", "", "free-text note")
}

package patient

import (
	"github.com/spf13/cobra"
)

// PatientCmd is the parent command for patient card operations
var PatientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Manage patient cards",
	Long:  `Create, update, delete and list the patient cards on your rounding list.`,
}

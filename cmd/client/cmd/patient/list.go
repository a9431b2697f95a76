// cmd/client/cmd/patient/list.go
package patient

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/domain/mutation"
	"roundkeeper/internal/domain/patient"
)

var (
	listFormat  string
	listRefresh bool
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patient cards",
	Long: `Lists the patient cards from the local cache.

With --refresh the cache is replaced by a fresh server listing first,
which requires a connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		if listRefresh {
			if err := app.Refresh(cmd.Context(), patient.Table); err != nil {
				return fmt.Errorf("failed to refresh patients: %w", err)
			}
		}

		patients, err := app.ListPatients()
		if err != nil {
			return fmt.Errorf("failed to list patients: %w", err)
		}

		switch listFormat {
		case "json":
			return printPatientsJSON(patients)
		case "table":
			return printPatientsTable(patients)
		default:
			return printPatientsSimple(patients)
		}
	},
}

func printPatientsSimple(patients []*patient.Patient) error {
	if len(patients) == 0 {
		fmt.Println("No patients on the list")
		return nil
	}

	fmt.Printf("Patients: %d\n\n", len(patients))

	for i, p := range patients {
		marker := " "
		if mutation.IsTempID(p.ID) {
			marker = "*"
		}

		fmt.Printf("%d.%s %s", i+1, marker, p.Name)
		if p.Room != "" {
			fmt.Printf(" (room %s)", p.Room)
		}
		fmt.Println()
		fmt.Printf("   ID: %s", p.ID)
		if p.MRN != "" {
			fmt.Printf(" | MRN: %s", p.MRN)
		}
		fmt.Println()
		if p.Summary != "" {
			fmt.Printf("   %s\n", p.Summary)
		}
		fmt.Println()
	}

	fmt.Println("* not synced yet")
	return nil
}

func printPatientsTable(patients []*patient.Patient) error {
	if len(patients) == 0 {
		fmt.Println("No patients on the list")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tName\tRoom\tMRN\tSummary\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t\n")

	for _, p := range patients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			p.ID,
			p.Name,
			p.Room,
			p.MRN,
			truncate(p.Summary, 40),
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(patients))
	return nil
}

func printPatientsJSON(patients []*patient.Patient) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(patients)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "output format (simple, table, json)")
	ListCmd.Flags().BoolVar(&listRefresh, "refresh", false, "replace the cache with a fresh server listing")
}

package todo

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/domain/mutation"
	"roundkeeper/internal/domain/todo"
)

var (
	listPatientID string
	listFormat    string
	listRefresh   bool
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		if listRefresh {
			if err := app.Refresh(cmd.Context(), todo.Table); err != nil {
				return fmt.Errorf("failed to refresh todos: %w", err)
			}
		}

		todos, err := app.ListTodos(listPatientID)
		if err != nil {
			return fmt.Errorf("failed to list todos: %w", err)
		}

		switch listFormat {
		case "json":
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(todos)
		case "table":
			return printTodosTable(todos)
		default:
			return printTodosSimple(todos)
		}
	},
}

func printTodosSimple(todos []*todo.Todo) error {
	if len(todos) == 0 {
		fmt.Println("No tasks")
		return nil
	}

	for _, t := range todos {
		box := "[ ]"
		if t.Done {
			box = "[x]"
		}
		marker := ""
		if mutation.IsTempID(t.ID) {
			marker = " *"
		}
		fmt.Printf("%s %s (%s)%s\n", box, t.Text, t.ID, marker)
	}

	return nil
}

func printTodosTable(todos []*todo.Todo) error {
	if len(todos) == 0 {
		fmt.Println("No tasks")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPatient\tDone\tText\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t\n")

	for _, t := range todos {
		done := ""
		if t.Done {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", t.ID, t.PatientID, done, t.Text)
	}

	w.Flush()
	return nil
}

func init() {
	ListCmd.Flags().StringVarP(&listPatientID, "patient", "p", "", "only tasks for this patient")
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "output format (simple, table, json)")
	ListCmd.Flags().BoolVar(&listRefresh, "refresh", false, "replace the cache with a fresh server listing")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		if jsonOut {
			return printStatusJSON(app)
		}

		switch app.Status() {
		case client.StatusOffline:
			color.Red("● offline")
		case client.StatusSyncing:
			color.Yellow("● syncing")
		default:
			color.Green("● online")
		}

		fmt.Printf("Pending mutations: %d\n", app.PendingCount())
		if exhausted := app.ExhaustedCount(); exhausted > 0 {
			color.Yellow("Exhausted mutations: %d (run 'roundkeeper queue clear' to discard)", exhausted)
		}

		if last := app.LastSyncTime(); !last.IsZero() {
			fmt.Printf("Last sync: %s\n", last.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last sync: never")
		}

		return nil
	},
}

func printStatusJSON(app *client.App) error {
	out := map[string]interface{}{
		"status":    app.Status(),
		"pending":   app.PendingCount(),
		"exhausted": app.ExhaustedCount(),
	}
	if last := app.LastSyncTime(); !last.IsZero() {
		out["last_sync"] = last
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

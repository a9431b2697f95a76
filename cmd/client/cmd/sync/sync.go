package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/domain/mutation"
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending mutations to the server",
	Long: `Drains the pending mutation queue in order, one attempt per entry.

Failed entries keep their place and are retried on the next run until
their retries run out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		pending := app.PendingCount() - app.ExhaustedCount()
		if pending == 0 {
			fmt.Println("Nothing to sync")
			return nil
		}

		fmt.Printf("Syncing %d pending mutations...\n", pending)
		start := time.Now()

		app.SubscribeProgress(func(p mutation.SyncProgress) {
			fmt.Printf("  [%d/%d] %s\n", p.Completed, p.Total, p.Current)
		})

		result, err := app.TriggerSync(cmd.Context())
		if err != nil {
			if errors.Is(err, client.ErrOffline) {
				return fmt.Errorf("server is unreachable, mutations stay queued")
			}
			if errors.Is(err, client.ErrSyncInProgress) {
				return fmt.Errorf("another sync is already running")
			}
			return fmt.Errorf("sync failed: %w", err)
		}

		duration := time.Since(start)

		fmt.Println()
		if result.Failed == 0 {
			color.Green("Sync finished in %v: %d completed", duration.Round(time.Millisecond), result.Completed)
		} else {
			color.Yellow("Sync finished in %v: %d completed, %d failed",
				duration.Round(time.Millisecond), result.Completed, result.Failed)
			fmt.Println("Failed mutations stay queued, run 'roundkeeper sync' to retry")
		}

		return nil
	},
}

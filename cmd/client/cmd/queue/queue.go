package queue

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"roundkeeper/internal/app/client"
)

// QueueCmd is the parent command for pending mutation operations
var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the pending mutation queue",
	Long: `Shows and manages the writes waiting to be pushed to the server.

Entries that failed too many times stay in the queue and are skipped by
sync until the queue is cleared.`,
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		entries := app.QueueSnapshot()
		if len(entries) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}

		now := time.Now()
		for i, entry := range entries {
			line := fmt.Sprintf("%d. %s (queued %s ago, retries %d/%d)",
				i+1,
				entry.Describe(),
				entry.Age(now).Round(time.Second),
				entry.RetryCount,
				entry.MaxRetries,
			)
			if entry.Exhausted() {
				color.Red("%s - exhausted", line)
			} else {
				fmt.Println(line)
			}
		}

		return nil
	},
}

var clearYes bool

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every pending mutation",
	Long: `Discards the whole queue, exhausted entries included. The writes are
lost, the server never sees them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return fmt.Errorf("application is not initialized")
		}

		count := app.PendingCount()
		if count == 0 {
			fmt.Println("Queue is already empty")
			return nil
		}

		if !clearYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to clear %d pending mutations without --yes", count)
			}

			fmt.Printf("This discards %d pending mutations. Type 'yes' to continue: ", count)
			reader := bufio.NewReader(os.Stdin)
			answer, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("Aborted")
				return nil
			}
		}

		app.ClearQueue()
		fmt.Printf("Discarded %d pending mutations\n", count)
		return nil
	},
}

func init() {
	ClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

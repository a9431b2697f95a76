package todo

import (
	"github.com/spf13/cobra"
)

// TodoCmd is the parent command for task operations
var TodoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage patient tasks",
	Long:  `Add, complete, delete and list the tasks attached to patient cards.`,
}

// cmd/client/cmd/init.go
package cmd

import (
	"roundkeeper/cmd/client/cmd/patient"
	"roundkeeper/cmd/client/cmd/queue"
	"roundkeeper/cmd/client/cmd/sync"
	"roundkeeper/cmd/client/cmd/todo"
)

func init() {
	rootCmd.AddCommand(patient.PatientCmd)
	patient.PatientCmd.AddCommand(patient.CreateCmd)
	patient.PatientCmd.AddCommand(patient.UpdateCmd)
	patient.PatientCmd.AddCommand(patient.DeleteCmd)
	patient.PatientCmd.AddCommand(patient.ListCmd)

	rootCmd.AddCommand(todo.TodoCmd)
	todo.TodoCmd.AddCommand(todo.AddCmd)
	todo.TodoCmd.AddCommand(todo.DoneCmd)
	todo.TodoCmd.AddCommand(todo.DeleteCmd)
	todo.TodoCmd.AddCommand(todo.ListCmd)

	rootCmd.AddCommand(queue.QueueCmd)
	queue.QueueCmd.AddCommand(queue.ListCmd)
	queue.QueueCmd.AddCommand(queue.ClearCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(statusCmd)
}

// cmd/client/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/app/client"
	"roundkeeper/internal/app/client/config"
	"roundkeeper/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	jsonOut   bool
	serverURL string
	offline   bool
)

var rootCmd = &cobra.Command{
	Use:   "roundkeeper",
	Short: "Roundkeeper - offline-first rounding notes for the ward",
	Long: `Roundkeeper keeps patient cards and their task lists available at the
bedside even without a network connection.

Writes made while offline are queued locally and pushed to the server
once the connection returns.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: teardownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	log = logger.New(cfg.Env)

	app = client.New(cfg, log)
	if offline {
		app.SetOnline(false)
	}

	cmd.SetContext(client.NewContext(cmd.Context(), app))

	return nil
}

func teardownApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Close()
	}
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print output as JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "roundkeeper server address")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "start in offline mode, queue all writes")

	// Commands are added in init() of the respective files
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/healthify/internal/healthify/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API",
	Long: `Start the Healthify local API. The stored session is restored in the
background; authenticated routes answer 503 until that has finished.

Stop with Ctrl+C or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

// Package cmd provides the CLI commands for Healthify.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/healthify/internal/healthify/app"
)

var readyTimeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "healthify",
	Short: "Healthify - personal health tracker",
	Long: `Healthify tracks meals, water, weight and device activity behind a
session with your identity provider.

Configuration is read from the environment:
  HEALTHIFY_AUTH_URL          identity provider base URL
  HEALTHIFY_CLIENT_ID         OAuth2 client id
  HEALTHIFY_DATABASE_FILE     SQLite database path
  HEALTHIFY_MASTER_KEY_PATH   key used to encrypt the stored session

Commands:
  serve       Start the local API
  status      Show the stored session
  login       Sign in and store the session
  logout      Sign out and clear the stored session
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&readyTimeout, "timeout", 15*time.Second,
		"how long to wait for the stored session to be resolved")
}

// openApp builds the application for one-shot commands. Logs go to stderr
// at warn level unless LOG_LEVEL says otherwise.
func openApp() (*app.Application, error) {
	cfg := app.LoadConfig()
	cfg.LogOutput = os.Stderr
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	return app.New(cfg)
}

// waitReady blocks until the Manager has resolved the stored session.
func waitReady(ctx context.Context, a *app.Application) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := a.Manager().WaitReady(ctx); err != nil {
		return fmt.Errorf("session not resolved: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Long: `Restore the stored session, if any, and print who is signed in.

Exits with an error when the session could not be resolved in time.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown() }()

	if err := waitReady(cmd.Context(), a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	u := a.Manager().User()
	if u == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	name := u.PreferredName
	if name == "" {
		name = u.Username
	}
	fmt.Fprintf(out, "Signed in as %s\n", name)
	fmt.Fprintf(out, "  User ID:  %s\n", u.ID)
	if u.Username != "" {
		fmt.Fprintf(out, "  Username: %s\n", u.Username)
	}
	return nil
}

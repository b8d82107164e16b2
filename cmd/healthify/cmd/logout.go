package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	Long: `Revoke the stored session with the identity provider and remove it from
the local database. Local state is cleared even when the provider cannot be
reached.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown() }()

	if err := waitReady(cmd.Context(), a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if a.Manager().User() == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	_ = a.Manager().LogOut(cmd.Context())
	fmt.Fprintln(out, "Signed out.")
	return nil
}

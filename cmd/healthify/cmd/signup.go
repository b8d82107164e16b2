package cmd

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	signupInvite   string
	signupUsername string
	signupPassword string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account from an invite and sign in",
	Long: `Redeem an invite token with the identity provider to create an account,
then sign in as the new user and store the session.

Missing values are read from stdin, one per line.

Examples:
  healthify signup --invite <token> --username kate`,
	RunE: runSignup,
}

func init() {
	signupCmd.Flags().StringVar(&signupInvite, "invite", "", "invite token")
	signupCmd.Flags().StringVarP(&signupUsername, "username", "u", "", "username")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "", "password (prompted when empty)")
	rootCmd.AddCommand(signupCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown() }()

	ctx := cmd.Context()
	if err := waitReady(ctx, a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if u := a.Manager().User(); u != nil {
		fmt.Fprintf(out, "Already signed in as %s. Run \"healthify logout\" first.\n", u.ID)
		return nil
	}

	in := bufio.NewReader(cmd.InOrStdin())
	invite, err := valueOrPrompt(in, out, signupInvite, "Invite token: ")
	if err != nil {
		return err
	}
	username, err := valueOrPrompt(in, out, signupUsername, "Username: ")
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(in, out, signupPassword, "Password: ")
	if err != nil {
		return err
	}

	if _, err := a.Auth().SignUp(ctx, invite, username, password); err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}

	u := a.Manager().User()
	if u == nil {
		return errors.New("sign up failed: session was not established")
	}
	fmt.Fprintf(out, "Account created. Signed in as %s (%s)\n", u.PreferredName, u.ID)
	return nil
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/healthify/pkg/authsdk"
)

var (
	loginUsername string
	loginPassword string
	loginCode     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in with the identity provider and store the session, encrypted,
in the local database so "healthify serve" starts signed in.

Missing values are read from stdin, one per line.

Examples:
  healthify login --username alice
  printf 'alice\nhunter22\n' | healthify login`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when empty)")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "TOTP code, when the account uses MFA")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
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
	username, err := valueOrPrompt(in, out, loginUsername, "Username: ")
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(in, out, loginPassword, "Password: ")
	if err != nil {
		return err
	}

	_, err = a.Auth().SignInWithPassword(ctx, username, password)
	var mfaErr *authsdk.MFARequiredError
	if errors.As(err, &mfaErr) {
		code, perr := valueOrPrompt(in, out, loginCode, "Authenticator code: ")
		if perr != nil {
			return perr
		}
		_, err = a.Auth().CompleteMFA(ctx, mfaErr, "totp", code)
	}
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	u := a.Manager().User()
	if u == nil {
		return errors.New("sign in failed: session was not established")
	}
	fmt.Fprintf(out, "Signed in as %s (%s)\n", u.PreferredName, u.ID)
	return nil
}

func valueOrPrompt(in *bufio.Reader, out io.Writer, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/pkg/authsdk/authsdktest"
)

func setupEnv(t *testing.T, idp *authsdktest.Server) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HEALTHIFY_AUTH_URL", idp.URL)
	t.Setenv("HEALTHIFY_CLIENT_ID", authsdktest.ClientID)
	t.Setenv("HEALTHIFY_REDIRECT_URI", "http://localhost/callback")
	t.Setenv("HEALTHIFY_DATABASE_FILE", filepath.Join(dir, "healthify.db"))
	t.Setenv("HEALTHIFY_MASTER_KEY_PATH", filepath.Join(dir, "master.key"))
	t.Setenv("HEALTHIFY_MASTER_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()

	loginUsername, loginPassword, loginCode = "", "", ""
	signupInvite, signupUsername, signupPassword = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	out := execute(t, "", "version")
	require.Contains(t, out, "healthify v")
	require.Contains(t, out, "Go version:")
}

func TestLoginStatusLogout(t *testing.T) {
	idp := authsdktest.NewServer(t)
	id := idp.AddUser("alice", "hunter22", "Alice")
	setupEnv(t, idp)

	require.Contains(t, execute(t, "", "status"), "Not signed in.")

	out := execute(t, "", "login", "--username", "alice", "--password", "hunter22")
	require.Contains(t, out, "Signed in as Alice ("+id+")")

	out = execute(t, "", "status")
	require.Contains(t, out, "Signed in as Alice")
	require.Contains(t, out, id)

	require.Contains(t, execute(t, "", "login", "-u", "alice", "-p", "hunter22"), "Already signed in")

	require.Contains(t, execute(t, "", "logout"), "Signed out.")
	require.Equal(t, 0, idp.ActiveRefreshTokens())
	require.Contains(t, execute(t, "", "status"), "Not signed in.")
	require.Contains(t, execute(t, "", "logout"), "Not signed in.")
}

func TestLogin_PromptsForMissingValues(t *testing.T) {
	idp := authsdktest.NewServer(t)
	idp.AddUser("bob", "pw", "Bob")
	secret := idp.EnableTOTP(t, "bob")
	setupEnv(t, idp)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	out := execute(t, "bob\npw\n"+code+"\n", "login")
	require.Contains(t, out, "Username: ")
	require.Contains(t, out, "Authenticator code: ")
	require.Contains(t, out, "Signed in as Bob")
}

func TestLogin_BadPassword(t *testing.T) {
	idp := authsdktest.NewServer(t)
	idp.AddUser("alice", "hunter22", "Alice")
	setupEnv(t, idp)

	loginUsername, loginPassword, loginCode = "", "", ""
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"login", "-u", "alice", "-p", "wrong"})
	require.ErrorContains(t, rootCmd.Execute(), "sign in failed")
}

func TestSignup(t *testing.T) {
	idp := authsdktest.NewServer(t)
	invite := idp.MintInvite(false)
	setupEnv(t, idp)

	out := execute(t, invite+"\nkate\npw\n", "signup")
	require.Contains(t, out, "Invite token: ")
	require.Contains(t, out, "Account created. Signed in as kate")
	require.True(t, idp.UserExists("kate"))

	require.Contains(t, execute(t, "", "status"), "Signed in as kate")
	require.Contains(t, execute(t, "", "logout"), "Signed out.")

	signupInvite, signupUsername, signupPassword = invite, "liam", "pw"
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"signup", "--invite", invite, "-u", "liam", "-p", "pw"})
	require.ErrorContains(t, rootCmd.Execute(), "sign up failed")
	require.False(t, idp.UserExists("liam"))
}

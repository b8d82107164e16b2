/*
Package authsdk is the client side of the identity provider Healthify signs
users in with.

# SDKClient and Auth

SDKClient is a thin wrapper over the provider's OAuth2 endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	health, err := client.GetLiveness(ctx)
	jwks, err := client.GetJWKS(ctx)

Auth sits on top of it and owns one user's session for the life of the
process. It persists the refresh token through a TokenStorage, restores it on
the next start and pushes every transition to listeners:

	auth := authsdk.NewAuth(client, authsdk.Config{
		ClientID:    "healthify",
		RedirectURI: "http://localhost:8080/callback",
		Scopes:      []string{"profile:read"},
		Storage:     storage,
	})

	sub := auth.OnAuthStateChange(func(ev authsdk.AuthChangeEvent, u *authsdk.User) {
		log.Println(ev, u)
	})
	defer sub.Unsubscribe()

	user, err := auth.CurrentSession(ctx) // nil, nil when signed out

# Signing in

SignInWithPassword runs the authorization code flow with PKCE. Users with a
second factor get an *MFARequiredError back, which CompleteMFA finishes:

	user, err := auth.SignInWithPassword(ctx, username, password)
	var mfaErr *authsdk.MFARequiredError
	if errors.As(err, &mfaErr) {
		user, err = auth.CompleteMFA(ctx, mfaErr, "totp", code)
	}

# Refresh

AccessToken refreshes an expired token on demand and AutoRefresh does it
ahead of time in the background. Refresh tokens rotate; every successful
refresh is persisted and announced as TOKEN_REFRESHED. When the provider
answers invalid_grant the session is dropped locally and SIGNED_OUT is
emitted.

# Signing out

SignOut always clears local and stored state and emits SIGNED_OUT. The
revocation error, if any, is returned so callers can log it.
*/
package authsdk

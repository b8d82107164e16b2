// Package session keeps the process-wide authenticated-user state in step
// with the identity provider.
//
// A Manager is created once at startup and handed to whatever builds the
// presentation layer:
//
//	mgr := session.New(provider, cache, session.WithLogger(logger))
//	defer mgr.Close()
//
//	if err := mgr.WaitReady(ctx); err != nil {
//		return err
//	}
//	if st := mgr.State(); st.User == nil {
//		// show the login flow
//	}
//
// Until the first lookup resolves, State().IsReady is false and the user is
// unknown rather than signed out. Readiness flips once and never reverts.
// Provider change events, sign-out and the bootstrap result all replace the
// user with last-write-wins semantics; a bootstrap result that lands after a
// change event is discarded. Every transition mirrors the user into the
// snapshot cache under CacheKey, or removes the entry when signed out.
//
// Failures (lookup, sign-out, cache) are logged and never returned.
package session

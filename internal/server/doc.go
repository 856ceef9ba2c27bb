// Package server exposes the playlist library over HTTP and hosts the OAuth callback used by the CLI.
//
// # API
//
// [Server] is a chi router over the store, the token manager, the sync
// [Scheduler] and the credit [Ledger]. Every response body is a
// [shared.Result] envelope; sentinel errors are mapped to status codes by statusFor.
//
// Read endpoints answer from the store immediately and schedule a background
// sync through the scheduler, so a request never waits on the catalog. Jobs
// with the same key coalesce, which keeps repeated polling cheap.
//
// # Middleware
//
// RequestID and Recoverer come from chi; requests are logged through the
// component logger and CORS origins come from server.frontend_origins.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves a single /callback for `auth login`: it validates the
// state parameter, logs the user in with the authorization code and sends the
// stored user through a channel. It only processes one callback, since codes are
// single use.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

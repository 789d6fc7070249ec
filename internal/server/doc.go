// Package server runs the short-lived local HTTP server used while authorizing lbsync with TMDB.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Approval Callback
//
// TMDB v3 sessions are created from a request token the user approves in a browser.
// The approval page redirects to the `redirect_to` URL with `request_token` and either
// `approved=true` or `denied=true` in the query. [ApprovalHandler] receives that redirect,
// checks the token matches the one it was issued for, and delivers the outcome on a channel.
//
// It only processes one callback.
//
// # Lifecycle
//
// [CallbackServer] binds the listener eagerly in [CallbackServer.Start] so a busy port is
// reported before the browser is opened, serves in the background, and is stopped with
// [CallbackServer.Shutdown] once the approval arrives.
package server

// Package services implements the HTTP clients for the two external services a sync talks to.
//
// # TMDB
//
// [TMDBService] wraps the TMDB v3 API. Requests are authorized with the v3 api_key query
// parameter, or with a v4 read access token sent as a bearer token through an
// [oauth2.StaticTokenSource] client. Account mutations additionally carry the user's
// session_id, obtained with [TMDBService.RequestToken] and [TMDBService.CreateSession].
// All requests pass through a [rate.Limiter].
//
// # Letterboxd
//
// [LetterboxdService] fetches film pages with a cookie jar holding a signed-in session.
// The session comes from [LetterboxdService.Login] (CSRF cookie, form post, cookie check)
// or from cookies imported out of a browser request, and is saved as a JSON cookie list.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrTransport] : the request did not complete or the response could not be decoded
//   - [shared.ErrRemoteMutation] : TMDB rejected a write; the [APIError] is wrapped alongside
//   - [shared.ErrNotAuthenticated] : a session-scoped call was made without a session id
//   - [shared.ErrAuthFailed] : a login or token exchange was refused
package services

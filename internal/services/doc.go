// Package services holds the token lifecycle and the resilient Spotify Web API client.
//
// # Token Manager
//
// [TokenManager] owns the access/refresh token pair. It builds the authorization URL,
// exchanges authorization codes and runs the refresh-token grant through [oauth2.Config].
// Refreshes are serialized with a [singleflight.Group]: concurrent callers share one
// in-flight request, and [TokenManager.Renew] skips the request entirely when the token
// that failed has already been replaced.
//
// A refresh that omits refresh_token keeps the held refresh token. A failed refresh
// never clears the held access token.
//
// # Client
//
// [Client.Execute] is a small state machine:
//
//	initial -> (401) -> refreshing -> retrying -> done
//
// Only a 401 leads to a refresh, and only one retry is ever made. Other non-2xx
// responses and transport failures are returned immediately as [*RequestError].
//
// # Errors
//
//   - [shared.ErrPrecondition] : missing authorization code
//   - [shared.ErrUpstreamAuth] : token endpoint rejected an exchange or refresh ([*UpstreamAuthError])
//   - [shared.ErrAPIRequest] : resource endpoint failed ([*RequestError])
//   - [shared.ErrTokenExpired] : resource endpoint returned 401
//
// # Spotify
//
// [SpotifyService] wraps the fixed set of read-only queries and unwraps paging
// envelopes with gjson. Empty results are nil values, not errors.
package services

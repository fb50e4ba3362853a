// Package server exposes the token flow and the read-only Spotify queries over HTTP.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux], mounts every route under an optional base path and
// answers 405 for any method other than the one a route was registered with.
// [Middleware] added with [BasicRouter.Use] wraps routes registered afterwards; the first
// middleware added is the outermost.
//
// # Handlers
//
// Handlers implement [Handler] and return their [Route] table:
//   - [AuthHandler] : /login redirects to the provider, /callback exchanges the code
//   - [LibraryHandler] : /me, /last-played, /top-artists, /top-tracks, /playlists, /recently-played
//   - [HealthHandler] : /health reports the token state without token values
//
// Empty results are answered with a plain-text fallback such as "No tracks found".
// Failures are JSON of the form {"statusCode":500,"message":"..."} carrying the
// provider's message when there is one.
//
// # Middleware
//
// [Recover], [RequestID], [AccessLog] and [RateLimit] (golang.org/x/time/rate). The rate
// limit protects this service from its own callers and has nothing to do with the
// provider's limits.
package server

// Package server exposes the party API over HTTP.
//
// # Routes
//
// [APIHandler] serves guests and the host. Reads are public. Starting and ending a session require a bearer token
// obtained from POST /token, checked by [Authenticator.RequireAuth].
//
//	POST   /token          form username, password
//	GET    /data           session, tracks, current track and queue
//	GET    /playlists      host playlists sorted by name
//	GET    /session        active session
//	POST   /session        session_name, playlist_id (admin)
//	DELETE /session/{id}   (admin)
//	GET    /tracks         mirrored tracks
//	GET    /current        playing track
//	GET    /queue          device queue
//	POST   /queue          track_id
//
// Errors are JSON objects with a single "detail" field. [StatusFor] maps error kinds onto status codes.
//
// # Router Infrastructure
//
// [BasicRouter] implements [Router] on chi. [Middleware] wraps handlers in reverse order (last added executes
// first). [RequestLogger] tags each request with an X-Request-ID.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the Spotify authorization code flow for the CLI. It validates the state parameter,
// exchanges the code and sends the token through a channel. Only one callback is processed.
package server

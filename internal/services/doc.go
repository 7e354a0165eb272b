// Package services defines the [Catalog] interface for the music catalog that backs a party and implements it for Spotify.
//
// # Catalog Interface
//
// The session engine and HTTP API only talk to the catalog through [Catalog], so tests substitute an in-memory
// implementation and the cache package can decorate it.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token, and outbound requests
// pass through a [rate.Limiter] so a burst of guests cannot exhaust the API quota.
//
// # Normalization
//
// Raw Spotify payloads are reduced to [models.Track] by [NormalizeTrack]. Names lose catalog qualifiers such as
// " - 2011 Remastered" or " - Radio Edit" via [SanitizeName]. [CollectPlaylistTracks] drains every page of a playlist
// and drops entries that are unavailable, local-only or left without a name.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrPlaylistNotFound], [shared.ErrTrackNotFound] : unknown ids
//   - [shared.ErrNoActiveDevice] : queueing with no playback device
//   - [shared.ErrUpstreamUnavailable] : transport failures, 5xx and malformed payloads
package services

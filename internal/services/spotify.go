// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 100
	playlistsPerPage = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Images  []SpotifyImage  `json:"images"`
	URI     string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track. Type is "episode" for podcast items found in queues.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
// Track is nil when the item is no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type trackCount struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents playlist metadata without its items.
type SpotifyPlaylist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
	Tracks       trackCount     `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyPlaybackState is the payload of GET /me/player.
type SpotifyPlaybackState struct {
	Timestamp  int64         `json:"timestamp"`
	ProgressMS int           `json:"progress_ms"`
	IsPlaying  bool          `json:"is_playing"`
	Item       *SpotifyTrack `json:"item"`
}

// SpotifyQueue is the payload of GET /me/player/queue.
type SpotifyQueue struct {
	CurrentlyPlaying *SpotifyTrack `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points API calls at a different host, e.g. an [net/http/httptest.Server].
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithRateLimit caps outbound requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets the client used for token exchange and as the transport beneath the OAuth2 client.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// SpotifyService implements [Catalog] and [OAuthService] for the Spotify Web API.
// Uses [oauth2] for authentication and refreshes expired tokens transparently.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	source     oauth2.TokenSource
	httpClient *http.Client
	baseClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"playlist-read-private",
				"playlist-read-collaborative",
				"user-read-playback-state",
				"user-modify-playback-state",
				"user-read-currently-playing",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Authenticate installs a user token. Expects either an "access_token" (optionally with "refresh_token"
// and an RFC 3339 "expiry") or an "auth_code" to exchange.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    credentials["token_type"],
		}
		if raw := credentials["expiry"]; raw != "" {
			expiry, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("%w: expiry %q", shared.ErrInvalidConfig, raw)
			}
			token.Expiry = expiry
		}
		s.setToken(ctx, token)
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.Exchange(ctx, authCode)
		if err != nil {
			return err
		}
		s.setToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

func (s *SpotifyService) setToken(ctx context.Context, token *oauth2.Token) {
	ctx = s.clientContext(ctx)
	s.token = token
	s.source = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.source)
}

// clientContext carries the base client so oauth2 uses it for refreshes.
// The context only supplies the client; it is not used for cancellation.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	ctx = context.WithoutCancel(ctx)
	if s.baseClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	}
	return ctx
}

// Name returns "Spotify".
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if s.baseClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	}
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrNotAuthenticated, err)
	}
	return token, nil
}

// OAuthConfig exposes the OAuth2 configuration for callback handlers.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// CurrentToken returns the token in use, refreshed if it had expired.
func (s *SpotifyService) CurrentToken() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := s.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return token, nil
}

// doRequest performs an authenticated request against the Spotify API and decodes the JSON body into result.
//
// endpoint is either a path relative to the API base or an absolute URL previously returned by the API
// (pagination cursors). It returns the response status so callers can distinguish 204 No Content.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, result any) (int, error) {
	if s.token == nil {
		return 0, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, s.baseURL+"/") {
			return 0, fmt.Errorf("%w: cursor %q is not a Spotify API URL", shared.ErrInvalidInput, endpoint)
		}
		apiURL = endpoint
	}
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limiter: %v", shared.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request failed: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return http.StatusNoContent, nil
		}
		return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstreamUnavailable, err)
	}

	return resp.StatusCode, nil
}

// statusError maps a non-2xx response to a sentinel error.
func statusError(resp *http.Response) error {
	var payload spotifyError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(body, &payload)

	msg := payload.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case payload.Error.Reason == "NO_ACTIVE_DEVICE":
		return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify rejected credentials (%w): %s", shared.ErrUpstreamUnavailable, shared.ErrNotAuthenticated, msg)
	default:
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrUpstreamUnavailable, resp.StatusCode, msg)
	}
}

// notFound replaces a generic not found error with target.
func notFound(err, target error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %v", target, err)
	}
	return err
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > playlistsPerPage {
		limit = playlistsPerPage
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}

	var response SpotifyPaginatedPlaylists
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/playlists", query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Playlists retrieves all playlists for the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, playlistsPerPage, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			playlists = append(playlists, playlistFromSpotify(sp))
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return playlists, nil
}

// Playlist retrieves playlist metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	query := url.Values{"fields": {"id,name,description,images,external_urls,tracks.total"}}

	var sp SpotifyPlaylist
	if _, err := s.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), query, &sp); err != nil {
		return nil, notFound(err, shared.ErrPlaylistNotFound)
	}

	playlist := playlistFromSpotify(sp)
	return &playlist, nil
}

// PlaylistTrackPage retrieves one page of playlist items. pageToken is the "next" URL of the previous page.
func (s *SpotifyService) PlaylistTrackPage(ctx context.Context, playlistID, pageToken string) (*TrackPage, error) {
	endpoint := pageToken
	var query url.Values
	if endpoint == "" {
		endpoint = "/playlists/" + url.PathEscape(playlistID) + "/tracks"
		query = url.Values{"limit": {strconv.Itoa(playlistPageSize)}}
	}

	var response SpotifyPlaylistTracks
	if _, err := s.doRequest(ctx, http.MethodGet, endpoint, query, &response); err != nil {
		return nil, notFound(err, shared.ErrPlaylistNotFound)
	}

	page := &TrackPage{Items: response.Items}
	if response.Next != nil {
		page.Next = *response.Next
	}
	return page, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	var raw SpotifyTrack
	if _, err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, &raw); err != nil {
		return nil, notFound(err, shared.ErrTrackNotFound)
	}
	track := NormalizeTrack(raw)
	return &track, nil
}

// CurrentPlayback returns the track playing on the user's device, or nil when playback is idle.
func (s *SpotifyService) CurrentPlayback(ctx context.Context) (*models.CurrentTrack, error) {
	var state SpotifyPlaybackState
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player", nil, &state)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || state.Item == nil {
		return nil, nil
	}
	return &models.CurrentTrack{Track: NormalizeTrack(*state.Item), Start: state.Timestamp}, nil
}

// Queue returns the user's playback queue, or nil when playback is idle.
// Non-track items such as podcast episodes are left out.
func (s *SpotifyService) Queue(ctx context.Context) (*models.Queue, error) {
	var raw SpotifyQueue
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player/queue", nil, &raw)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || raw.CurrentlyPlaying == nil {
		return nil, nil
	}

	queue := &models.Queue{
		Current: &models.CurrentTrack{Track: NormalizeTrack(*raw.CurrentlyPlaying)},
		Tracks:  make([]models.Track, 0, len(raw.Queue)),
	}
	for _, item := range raw.Queue {
		if item.Type != "" && item.Type != "track" {
			continue
		}
		queue.Tracks = append(queue.Tracks, NormalizeTrack(item))
	}
	return queue, nil
}

// Enqueue adds a track to the end of the active device's queue.
func (s *SpotifyService) Enqueue(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	query := url.Values{"uri": {"spotify:track:" + trackID}}
	if _, err := s.doRequest(ctx, http.MethodPost, "/me/player/queue", query, nil); err != nil {
		return notFound(err, shared.ErrNoActiveDevice)
	}
	return nil
}

func playlistFromSpotify(sp SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:         sp.ID,
		Name:       sp.Name,
		URL:        sp.ExternalURLs.Spotify,
		Art:        firstImage(sp.Images),
		TrackCount: sp.Tracks.Total,
	}
}

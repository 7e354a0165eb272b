package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/desertthunder/partyq/internal/server"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization and saves the tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrInvalidArgument, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	r.config.Credentials.Spotify.Update(token)
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: partyq spotify playlists\n")
	return nil
}

// SpotifyPlaylists lists the host's playlists sorted by name.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))

	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}

	playlists, err := engine.Playlists(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.URL != "" {
			r.writePlain("   URL: %s\n", p.URL)
		}
		r.writePlain("\n")
	}
	return nil
}

// SpotifyExport archives the given playlists, or all of them with --all, through the bulk exporter.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogService(ctx)
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		playlists, err := catalog.Playlists(ctx)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: playlist ids or --all", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "step", update.Step, "total", update.Total)
		}
	}()

	exporter := tasks.NewPlaylistExporter(catalog, r.logger)
	result, err := exporter.BulkExport(ctx, progress, ids, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.Limits.SpotifyRequestsPerSecond,
	})
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d/%d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.PlaylistID, res.ErrorMessage)
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server listening on the redirect URI.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	config := oauthSrv.OAuthConfig()
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, config.RedirectURL)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(config, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	httpServer := server.New(redirect.Host, router)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", redirect.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", oauthTimeout)

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, oauthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, result.Err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrNotAuthenticated)
	}
	return result.Token, nil
}

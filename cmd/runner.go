package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/cache"
	"github.com/desertthunder/partyq/internal/repositories"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The catalog, store and engine are built on first use so that commands like `auth hash` never touch Spotify
// or the database.
type Runner struct {
	config      *shared.Config
	configPath  string
	fixedConfig bool
	logger      *log.Logger
	output      io.Writer

	spotify *services.SpotifyService
	catalog services.Catalog
	redis   *cache.RedisStore
	store   *repositories.Store
	engine  tasks.PartyEngine

	ownsStore bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as-is and is not reloaded from disk. Catalog and Store replace the Spotify client
// and the configured database.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Catalog    services.Catalog
	Store      *repositories.Store
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	fixed := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		fixedConfig: fixed,
		logger:      opts.Logger,
		output:      opts.Output,
		catalog:     opts.Catalog,
		store:       opts.Store,
	}
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "partyq",
		Usage:   "Shared party playlist backed by Spotify",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with PARTYQ_* overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, authCommand, serveCommand, sessionCommand, tracksCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// before loads the config file and applies environment overrides.
//
// A missing config file is not an error; defaults and the environment may be enough.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if !r.fixedConfig {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			config = shared.DefaultConfig()
		case err != nil:
			return ctx, err
		}
		if err := shared.ApplyEnv(config, cmd.String("env-file")); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if flag := cmd.String("log-level"); flag != "" {
		level = flag
	}
	if level != "" {
		if err := shared.SetLogLevel(r.logger, level); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// after persists a refreshed Spotify token and releases connections.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if err := r.persistToken(); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
		r.redis = nil
	}
	if r.store != nil && r.ownsStore {
		errs = append(errs, r.store.Close())
		r.store = nil
		r.engine = nil
	}
	return errors.Join(errs...)
}

// persistToken writes the token back to the config file when oauth2 refreshed it during the command.
func (r *Runner) persistToken() error {
	if r.spotify == nil || r.fixedConfig {
		return nil
	}
	token, err := r.spotify.CurrentToken()
	if err != nil || token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return nil
	}
	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	r.config.Credentials.Spotify.Update(token)
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}
	r.logger.Debug("refreshed spotify token saved", "path", r.configPath)
	return nil
}

// spotifyService builds the Spotify client from the configured credentials and stored token.
func (r *Runner) spotifyService(ctx context.Context) (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	creds := r.config.Credentials.Spotify
	limits := r.config.Limits
	svc, err := services.NewSpotifyService(creds.Map(), services.WithRateLimit(limits.SpotifyRequestsPerSecond, limits.SpotifyBurst))
	if err != nil {
		return nil, err
	}
	if err := svc.Authenticate(ctx, creds.Map()); err != nil {
		return nil, fmt.Errorf("%w (run `partyq spotify auth` first)", err)
	}
	r.spotify = svc
	return svc, nil
}

// catalogService returns the Spotify catalog wrapped in the playlist cache.
//
// The cache lives in Redis when cache.redis_addr is set and in process otherwise.
func (r *Runner) catalogService(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := r.spotifyService(ctx)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.NewMemoryStore()
	if addr := r.config.Cache.RedisAddr; addr != "" {
		redisStore, err := cache.NewRedisStore(ctx, r.config.Cache)
		if err != nil {
			return nil, err
		}
		r.redis = redisStore
		store = redisStore
		r.logger.Debug("using redis playlist cache", "addr", addr)
	}

	r.catalog = cache.NewCatalog(svc, store, r.config.Cache.PlaylistTTL(), r.logger)
	return r.catalog, nil
}

func (r *Runner) openStore(ctx context.Context) (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, err := repositories.Open(ctx, r.config.Database)
	if err != nil {
		return nil, err
	}
	r.store = store
	r.ownsStore = true
	return store, nil
}

func (r *Runner) partyEngine(ctx context.Context) (tasks.PartyEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	catalog, err := r.catalogService(ctx)
	if err != nil {
		return nil, err
	}
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	r.engine = tasks.NewSessionEngine(catalog, store, r.logger)
	return r.engine, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is prepended to every environment override, e.g. PARTYQ_DB_PATH.
const EnvPrefix = "PARTYQ_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Auth        AuthConfig        `toml:"auth"`
	Cache       CacheConfig       `toml:"cache"`
	Limits      LimitsConfig      `toml:"limits"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued user token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenType    string    `toml:"token_type"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr joins host and port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds the single administrator identity that may start and end sessions.
type AuthConfig struct {
	AdminUser         string `toml:"admin_user"`
	AdminPasswordHash string `toml:"admin_password_hash"`
	SecretKey         string `toml:"secret_key"`
	TokenTTLMinutes   int    `toml:"token_ttl_minutes"`
}

// TokenTTL converts TokenTTLMinutes, defaulting to thirty minutes.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// CacheConfig points at an optional Redis instance used for playlist metadata.
// An empty RedisAddr keeps the cache in process.
type CacheConfig struct {
	RedisAddr          string `toml:"redis_addr"`
	RedisPassword      string `toml:"redis_password"`
	RedisDB            int    `toml:"redis_db"`
	PlaylistTTLSeconds int    `toml:"playlist_ttl_seconds"`
}

// PlaylistTTL converts PlaylistTTLSeconds, defaulting to five minutes.
func (c CacheConfig) PlaylistTTL() time.Duration {
	if c.PlaylistTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.PlaylistTTLSeconds) * time.Second
}

// LimitsConfig throttles outbound catalog requests.
type LimitsConfig struct {
	SpotifyRequestsPerSecond float64 `toml:"spotify_requests_per_second"`
	SpotifyBurst             int     `toml:"spotify_burst"`
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Map flattens the credentials into the key set accepted by the Spotify service.
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
	if s.AccessToken != "" {
		m["access_token"] = s.AccessToken
		m["refresh_token"] = s.RefreshToken
		m["token_type"] = s.TokenType
		if !s.Expiry.IsZero() {
			m["expiry"] = s.Expiry.Format(time.RFC3339)
		}
	}
	return m
}

// Update stores token as the persisted user credential.
func (s *SpotifyConfig) Update(token *oauth2.Token) {
	if token == nil {
		return
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry.UTC()
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the embedded example config to path.
// It refuses to overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads envFile (when present) into the process environment and then
// overlays every PARTYQ_* variable onto config. Existing environment variables win over the file.
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalidConfig, EnvPrefix, key, v)
		}
		*dst = n
		return nil
	}

	str("SPOTIFY_CLIENT_ID", &config.Credentials.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &config.Credentials.Spotify.ClientSecret)
	str("SPOTIFY_REDIRECT_URI", &config.Credentials.Spotify.RedirectURI)
	str("DB_PATH", &config.Database.Path)
	str("HOST", &config.Server.Host)
	str("ADMIN_USER", &config.Auth.AdminUser)
	str("ADMIN_PASSWORD_HASH", &config.Auth.AdminPasswordHash)
	str("SECRET_KEY", &config.Auth.SecretKey)
	str("REDIS_ADDR", &config.Cache.RedisAddr)
	str("REDIS_PASSWORD", &config.Cache.RedisPassword)
	str("LOG_LEVEL", &config.Log.Level)

	for key, dst := range map[string]*int{
		"PORT":              &config.Server.Port,
		"REDIS_DB":          &config.Cache.RedisDB,
		"TOKEN_TTL_MINUTES": &config.Auth.TokenTTLMinutes,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

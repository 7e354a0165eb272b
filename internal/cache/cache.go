// package cache keeps catalog metadata in Redis so repeated session lookups do not hit the catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by [Store.Get] when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "partyq:"

// Store is a byte-oriented key value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore implements [Store] on a go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, cfg shared.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to redis at %s: %v", shared.ErrUpstreamUnavailable, cfg.RedisAddr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is an in-process [Store] used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Catalog decorates a [services.Catalog], caching playlist metadata.
//
// Playback and queue calls always pass through. Cache failures are logged and fall back to the catalog.
type Catalog struct {
	services.Catalog
	store  Store
	ttl    time.Duration
	logger *log.Logger
}

// NewCatalog wraps inner so that Playlist and Playlists results are kept for ttl.
func NewCatalog(inner services.Catalog, store Store, ttl time.Duration, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Catalog{Catalog: inner, store: store, ttl: ttl, logger: shared.WithLogger(logger, "component", "cache")}
}

// PlaylistKey is the cache key for a playlist's metadata.
func PlaylistKey(id string) string {
	return KeyPrefix + "playlist:" + id
}

const playlistsKey = KeyPrefix + "playlists"

// Playlist returns cached metadata or resolves and caches it. Lookup failures are not cached.
func (c *Catalog) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var cached models.Playlist
	if c.load(ctx, PlaylistKey(playlistID), &cached) {
		return &cached, nil
	}

	playlist, err := c.Catalog.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	c.save(ctx, PlaylistKey(playlistID), playlist)
	return playlist, nil
}

// Playlists returns the cached playlist listing or fetches and caches it.
func (c *Catalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var cached []models.Playlist
	if c.load(ctx, playlistsKey, &cached) {
		return cached, nil
	}

	playlists, err := c.Catalog.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, playlistsKey, playlists)
	return playlists, nil
}

// Invalidate drops the cached metadata for the given playlists and the listing.
func (c *Catalog) Invalidate(ctx context.Context, playlistIDs ...string) error {
	keys := []string{playlistsKey}
	for _, id := range playlistIDs {
		keys = append(keys, PlaylistKey(id))
	}
	return c.store.Delete(ctx, keys...)
}

func (c *Catalog) load(ctx context.Context, key string, dst any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	c.logger.Debug("cache hit", "key", key)
	return true
}

func (c *Catalog) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Package cache provides an optional Redis mirror for session state so a
// restarted process can pick up recent conversations without replaying the
// JSONL files.
//
// Graceful fallback: when Redis is not configured or unreachable, every
// operation is a no-op returning zero values. The session layer behaves
// identically either way.
package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "kanobot:session:"

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
	TTL      time.Duration
}

// Store is a session-state cache backed by Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New connects to Redis. A nil Store (config without URL, or a failed ping)
// is valid and all its methods are safe no-ops.
func New(cfg Config) *Store {
	logger := log.WithPrefix("cache")
	if cfg.URL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Error("invalid redis URL", "err", err)
		return nil
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, session cache disabled", "err", err)
		client.Close()
		return nil
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	logger.Info("session cache connected")
	return &Store{client: client, ttl: ttl, logger: logger}
}

// SetSession mirrors serialized session state.
func (s *Store) SetSession(key string, data []byte) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, sessionKeyPrefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Debug("session mirror write failed", "key", key, "err", err)
	}
}

// GetSession returns mirrored session state, or nil when absent.
func (s *Store) GetSession(key string) []byte {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

// Close releases the Redis connection.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.client.Close()
}

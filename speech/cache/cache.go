// Package cache provides the fingerprinted response cache sitting in
// front of the speech providers. It degrades, never fails: a broken
// backend is logged and treated as a miss, because caching here is a
// performance optimization, not a correctness dependency.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backend is the external key/value store contract. Production wires the
// redis manager from internal/cache; tests use miniredis or an in-memory
// map. found=false with a nil error is a plain miss.
type Backend interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ResponseCache maps request fingerprints to serialized results.
type ResponseCache struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a ResponseCache over backend.
func New(backend Backend, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{
		backend: backend,
		logger:  logger.With(zap.String("component", "response_cache")),
	}
}

// Get looks up key. Backend failures are logged and reported as a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	value, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache backend unreachable, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", false
	}
	return value, found
}

// Set stores value under key with the given ttl. Failures are logged
// and swallowed.
func (c *ResponseCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache store failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (c *ResponseCache) Delete(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

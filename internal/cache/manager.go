package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"go.uber.org/zap"
)

// Manager provides read-through caching over the Redis client. A nil
// Manager (or a Manager over a nil client) always misses, so the rest
// of the system never depends on Redis for correctness.
type Manager struct {
	client *RedisClient
}

// NewManager creates a cache manager
func NewManager(client *RedisClient) *Manager {
	return &Manager{client: client}
}

// Key builds a cache key from a prefix and parts
func Key(prefix string, parts ...string) string {
	key := prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// GetJSON retrieves and unmarshals a cached value.
// Returns false on miss or on any cache error.
func (m *Manager) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if m == nil || m.client == nil {
		return false
	}

	val, err := m.client.Get(ctx, key)
	if err != nil {
		if !IsNil(err) {
			logger.Log.Debug("Cache retrieval failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		metrics.RecordCacheMiss(keyPrefix(key))
		return false
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		logger.Log.Debug("Cache entry corrupt, dropping",
			zap.String("key", key),
			zap.Error(err),
		)
		_ = m.client.Del(ctx, key)
		metrics.RecordCacheMiss(keyPrefix(key))
		return false
	}

	metrics.RecordCacheHit(keyPrefix(key))
	return true
}

// keyPrefix is the metrics label for a cache key, everything before the
// first separator.
func keyPrefix(key string) string {
	if i := strings.Index(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}

// SetJSON marshals and stores a value with TTL. Failures are logged and
// swallowed; a cache write must never fail the request.
func (m *Manager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if m == nil || m.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := m.client.SetEx(ctx, key, string(data), ttl); err != nil {
		logger.Log.Debug("Cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Invalidate removes keys after a write-around mutation
func (m *Manager) Invalidate(ctx context.Context, keys ...string) {
	if m == nil || m.client == nil || len(keys) == 0 {
		return
	}

	if err := m.client.Del(ctx, keys...); err != nil {
		logger.Log.Debug("Cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// ErrCorrupt marks an entry that exists but cannot be decoded
var ErrCorrupt = errors.New("cache entry corrupt")

// Get retrieves a value from Redis and unmarshals it into dest
func Get(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Bytes() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err) // Caller decides whether to evict
	}
	return true, nil
}

// Set stores a value in Redis as JSON with a specified TTL
func Set(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Delete removes keys from Redis
func Delete(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stoik/triage/services/triage-service/internal/metrics"
)

const keyPrefix = "embedding:"

// EmbeddingCache stores embedding vectors in redis keyed by model and text.
// Redis failures are logged and treated as misses.
type EmbeddingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewEmbeddingCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *EmbeddingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Key derives the cache key for a model and already-normalized text.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached vector and whether it was found.
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float64, bool) {
	raw, err := c.rdb.Get(ctx, Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncrementEmbeddingCache("miss")
		return nil, false
	}
	if err != nil {
		metrics.IncrementEmbeddingCache("error")
		c.logger.Warn("Embedding cache read failed", zap.String("model", model), zap.Error(err))
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		metrics.IncrementEmbeddingCache("error")
		c.logger.Warn("Discarding corrupt embedding cache entry", zap.String("model", model))
		return nil, false
	}

	metrics.IncrementEmbeddingCache("hit")
	return vec, true
}

// Set stores a vector. Empty vectors mean "unavailable" and are never cached.
func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vec []float64) {
	if len(vec) == 0 {
		return
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, Key(model, text), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("model", model), zap.Error(err))
	}
}

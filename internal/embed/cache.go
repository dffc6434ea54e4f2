package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/llm-gateway/internal/logger"
)

const cacheTTL = 24 * time.Hour

// cachedEmbedder consults Redis before calling the upstream embedder.
// Cache failures degrade to a direct call; they never fail the embed.
type cachedEmbedder struct {
	log   *logger.Logger
	inner Embedder
	rdb   *redis.Client
}

// WithCache wraps an embedder with a Redis lookaside cache. A nil
// client returns the inner embedder unchanged.
func WithCache(inner Embedder, rdb *redis.Client, log *logger.Logger) Embedder {
	if rdb == nil {
		return inner
	}
	return &cachedEmbedder{
		log:   log.With("component", "embed_cache"),
		inner: inner,
		rdb:   rdb,
	}
}

func (c *cachedEmbedder) Model() string   { return c.inner.Model() }
func (c *cachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *cachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", c.inner.Model(), c.inner.Dimensions(), normalizeForKey(text))))
	return "embed:" + hex.EncodeToString(sum[:])
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := c.key(text)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var values []float64
		if jErr := json.Unmarshal(raw, &values); jErr == nil && len(values) > 0 {
			return values, nil
		}
		c.log.Warn("Corrupt cache entry, recomputing", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("Embedding cache read failed", "error", err)
	}

	values, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, jErr := json.Marshal(values); jErr == nil {
		if sErr := c.rdb.Set(ctx, key, raw, cacheTTL).Err(); sErr != nil {
			c.log.Warn("Embedding cache write failed", "error", sErr)
		}
	}
	return values, nil
}

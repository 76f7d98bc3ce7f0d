// Package embcache caches embeddings in the key-value store. Embeddings
// are deterministic per model, so a cache hit is observationally identical
// to recomputation; entries are TTL-bounded so a model swap ages out.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/db"
	"github.com/lostfound-cloud/matcher/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cache holds the shared plumbing of both decorators. Keys are scoped by
// model so a configured model swap never serves vectors from the old
// embedding space.
type cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	modality   string
	model      string
	logger     *zap.Logger
}

// The decorators must stay health-checkable: the composition root checks
// model availability through whatever embedder it ends up holding.
var (
	_ domain.TextEmbedder  = (*TextEmbedder)(nil)
	_ domain.HealthChecker = (*TextEmbedder)(nil)
	_ domain.ImageEmbedder = (*ImageEmbedder)(nil)
	_ domain.HealthChecker = (*ImageEmbedder)(nil)
)

// TextEmbedder is a caching decorator for a domain.TextEmbedder.
type TextEmbedder struct {
	inner domain.TextEmbedder
	cache
}

// ImageEmbedder is a caching decorator for a domain.ImageEmbedder.
type ImageEmbedder struct {
	inner domain.ImageEmbedder
	cache
}

// NewText creates a caching decorator around a text embedder.
// cacheTotal is a counter vec with labels (modality, result).
func NewText(
	inner domain.TextEmbedder,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *TextEmbedder {
	return &TextEmbedder{
		inner: inner,
		cache: cache{store: s, ttl: ttl, cacheTotal: cacheTotal, modality: "text", model: model, logger: logger},
	}
}

// NewImage creates a caching decorator around an image embedder.
func NewImage(
	inner domain.ImageEmbedder,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *ImageEmbedder {
	return &ImageEmbedder{
		inner: inner,
		cache: cache{store: s, ttl: ttl, cacheTotal: cacheTotal, modality: "image", model: model, logger: logger},
	}
}

// EmbedText returns a cached embedding or calls the inner embedder.
// Cache hits carry zero token usage.
func (c *TextEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey([]byte(text))

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.incCache("miss")

	result, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// HealthCheck forwards to the wrapped embedder so the decorator stays a
// domain.HealthChecker. The cache itself has no health of its own.
func (c *TextEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// EmbedImage returns a cached embedding or calls the inner embedder.
func (c *ImageEmbedder) EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error) {
	key := c.cacheKey(data)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.incCache("miss")

	result, err := c.inner.EmbedImage(ctx, data)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// HealthCheck forwards to the wrapped embedder.
func (c *ImageEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.modality, result).Inc()
	}
}

func (c *cache) cacheKey(payload []byte) string {
	h := sha256.Sum256(payload)
	return cacheKeyPrefix + c.modality + ":" + c.model + ":" + hex.EncodeToString(h[:])
}

func (c *cache) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *cache) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

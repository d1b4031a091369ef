package biz

import (
	"context"
	"fmt"
	"image"
	"math"
	"slices"
	"time"

	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/hash"
	"imagesearch/internal/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/singleflight"
)

const defaultEmbedTimeout = 60 * time.Second

// EmbedFunc computes the raw embedding of an image.
type EmbedFunc func(ctx context.Context, img image.Image) ([]float32, error)

// EmbeddingCache maps image content to unit-norm embeddings. Concurrent
// misses on the same content share a single computation, and a computed
// vector is persisted so later requests, including after a restart, never
// recompute it.
type EmbeddingCache struct {
	store   EmbeddingStore
	group   singleflight.Group
	timeout time.Duration
	log     *log.Helper
}

// NewEmbeddingCache creates a new EmbeddingCache.
func NewEmbeddingCache(store EmbeddingStore, c *conf.Search, logger log.Logger) *EmbeddingCache {
	timeout := c.GetEmbedTimeout().AsDuration()
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	return &EmbeddingCache{
		store:   store,
		timeout: timeout,
		log:     log.NewHelper(logger),
	}
}

// GetOrCompute returns the embedding of img, calling embed only when no
// stored vector exists and no computation for the same content is in flight.
// The returned slice is owned by the caller.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, img image.Image, embed EmbedFunc) ([]float32, error) {
	h := hash.OfImage(img)

	if vec := c.lookup(ctx, h); vec != nil {
		metrics.EmbeddingCacheRequests.WithLabelValues(metrics.ResultHit).Inc()
		return slices.Clone(vec), nil
	}
	metrics.EmbeddingCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()

	// The computation outlives any single caller so that one caller giving up
	// does not fail the others waiting on the same hash.
	ch := c.group.DoChan(h.Hex(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if vec := c.lookup(fctx, h); vec != nil {
			return vec, nil
		}

		metrics.EmbeddingComputations.Inc()
		vec, err := embed(fctx, img)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingCompute, err)
		}
		vec, err = Normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingCompute, err)
		}
		if err := c.store.Put(fctx, h, vec); err != nil {
			metrics.EmbeddingStoreErrors.WithLabelValues("put").Inc()
			c.log.Warnf("persist embedding %s: %v", h.Hex(), err)
		}
		return vec, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]float32)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup reads the store. Read errors and corrupt values count as misses.
func (c *EmbeddingCache) lookup(ctx context.Context, h hash.ContentHash) []float32 {
	vec, err := c.store.Get(ctx, h)
	if err != nil {
		metrics.EmbeddingStoreErrors.WithLabelValues("get").Inc()
		c.log.Warnf("read embedding %s, recomputing: %v", h.Hex(), err)
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}

// Normalize returns v scaled to unit length. A zero or non-finite vector is
// an error.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("embedding has invalid norm %v", norm)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

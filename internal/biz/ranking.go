package biz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"sync/atomic"

	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultKeywordFanout  = 4
	defaultEmbedWorkers   = 8
	defaultMaxPerProvider = 10
	defaultMaxPerKeyword  = 10
	defaultTopK           = 20
)

// RankingMerger scores the candidates of several keywords against one query
// and merges them into a single ranking.
type RankingMerger struct {
	resolver       CandidateResolver
	cache          *EmbeddingCache
	content        ContentStore
	embedder       Embedder
	scorer         Scorer
	pool           *ants.Pool
	fanout         int
	maxPerProvider int
	log            *log.Helper
}

// NewRankingMerger creates a new RankingMerger. The returned cleanup
// releases its embedding worker pool.
func NewRankingMerger(
	resolver CandidateResolver,
	cache *EmbeddingCache,
	content ContentStore,
	embedder Embedder,
	scorer Scorer,
	c *conf.Search,
	logger log.Logger,
) (*RankingMerger, func(), error) {
	workers := c.GetEmbedWorkers()
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding pool: %w", err)
	}
	m := &RankingMerger{
		resolver:       resolver,
		cache:          cache,
		content:        content,
		embedder:       embedder,
		scorer:         scorer,
		pool:           pool,
		fanout:         c.GetKeywordFanout(),
		maxPerProvider: c.GetMaxPerProvider(),
		log:            log.NewHelper(logger),
	}
	if m.fanout <= 0 {
		m.fanout = defaultKeywordFanout
	}
	if m.maxPerProvider <= 0 {
		m.maxPerProvider = defaultMaxPerProvider
	}
	return m, pool.Release, nil
}

// Rank returns the topK best hits over all keywords. Hits are ordered by
// score, ties keeping keyword order and then the order the scorer returned.
// An image found under several keywords appears once per keyword.
func (m *RankingMerger) Rank(ctx context.Context, keywords []string, query string, maxPerKeyword, topK int) ([]*RankedHit, error) {
	return m.rank(ctx, keywords, query, m.maxPerProvider, maxPerKeyword, topK)
}

func (m *RankingMerger) rank(ctx context.Context, keywords []string, query string, maxPerProvider, maxPerKeyword, topK int) ([]*RankedHit, error) {
	kws := normalizeKeywords(keywords)
	if len(kws) == 0 || topK <= 0 || maxPerKeyword <= 0 {
		return []*RankedHit{}, nil
	}

	qvec, err := m.embedder.EmbedText(ctx, query)
	if err == nil {
		qvec, err = Normalize(qvec)
	}
	if err != nil {
		metrics.SimilarityFailures.Inc()
		m.log.WithContext(ctx).Warnf("%v: embed query %q: %v", ErrSimilarityService, query, err)
		return []*RankedHit{}, nil
	}

	var (
		mu                sync.Mutex
		slots             = make([][]*RankedHit, len(kws))
		blacklistFailures atomic.Int32
	)

	var g errgroup.Group
	g.SetLimit(m.fanout)
	for i, kw := range kws {
		g.Go(func() error {
			hits, err := m.rankKeyword(ctx, kw, qvec, maxPerProvider, maxPerKeyword)
			if err != nil {
				if errors.Is(err, ErrBlacklistUnavailable) {
					blacklistFailures.Add(1)
				}
				m.log.WithContext(ctx).Warnf("keyword %q contributes no hits: %v", kw, err)
			}
			mu.Lock()
			slots[i] = hits
			mu.Unlock()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		if int(blacklistFailures.Load()) == len(kws) {
			return nil, ErrServiceDegraded
		}
	case <-ctx.Done():
		m.log.WithContext(ctx).Warnf("search deadline reached, returning partial results: %v", ctx.Err())
	}

	mu.Lock()
	var all []*RankedHit
	for _, s := range slots {
		all = append(all, s...)
	}
	mu.Unlock()

	return mergeHits(all, topK), nil
}

// mergeHits sorts by score descending, keeping input order for ties, and
// truncates to topK.
func mergeHits(hits []*RankedHit, topK int) []*RankedHit {
	slices.SortStableFunc(hits, func(a, b *RankedHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	if hits == nil {
		hits = []*RankedHit{}
	}
	return hits
}

func (m *RankingMerger) rankKeyword(ctx context.Context, kw string, qvec []float32, maxPerProvider, maxPerKeyword int) ([]*RankedHit, error) {
	candidates, err := m.resolver.ResolveKeyword(ctx, kw, maxPerProvider)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := m.embedAll(ctx, candidates)

	survivors := make([]*CandidateImage, 0, len(candidates))
	batch := make([][]float32, 0, len(candidates))
	for i, v := range vectors {
		if v != nil {
			survivors = append(survivors, candidates[i])
			batch = append(batch, v)
		}
	}
	if len(batch) == 0 {
		return nil, nil
	}

	indices, scores, err := m.scorer.Similarity(ctx, batch, qvec, maxPerKeyword)
	if err != nil {
		metrics.SimilarityFailures.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSimilarityService, err)
	}
	if len(scores) < len(indices) {
		metrics.SimilarityFailures.Inc()
		return nil, fmt.Errorf("%w: %d indices with %d scores", ErrSimilarityService, len(indices), len(scores))
	}

	hits := make([]*RankedHit, 0, min(len(indices), maxPerKeyword))
	for j, idx := range indices {
		if len(hits) == maxPerKeyword {
			break
		}
		if idx < 0 || idx >= len(survivors) {
			continue
		}
		hits = append(hits, &RankedHit{Image: survivors[idx], Score: scores[j], Keyword: kw})
	}
	return hits, nil
}

// embedAll embeds candidates on the shared worker pool. Failed candidates
// get a nil vector.
func (m *RankingMerger) embedAll(ctx context.Context, candidates []*CandidateImage) [][]float32 {
	vectors := make([][]float32, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			vec, err := m.embedCandidate(ctx, c)
			if err != nil {
				m.log.WithContext(ctx).Warnf("drop candidate %s: %v", c.ID, err)
				return
			}
			vectors[i] = vec
		}
		if err := m.pool.Submit(task); err != nil {
			wg.Done()
			m.log.WithContext(ctx).Warnf("drop candidate %s: submit: %v", c.ID, err)
		}
	}
	wg.Wait()
	return vectors
}

func (m *RankingMerger) embedCandidate(ctx context.Context, c *CandidateImage) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := m.content.Read(c.LocalContentRef)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrEmbeddingCompute, c.LocalContentRef, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrEmbeddingCompute, c.LocalContentRef, err)
	}
	return m.cache.GetOrCompute(ctx, img, func(ctx context.Context, _ image.Image) ([]float32, error) {
		return m.embedder.EmbedImage(ctx, raw)
	})
}

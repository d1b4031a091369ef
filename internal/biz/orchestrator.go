package biz

import (
	"context"
	"strconv"
	"time"

	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultKeywordCacheTTL = 15 * time.Minute
)

// FetchOrchestrator resolves a keyword into candidates from every provider
// and the local post store.
type FetchOrchestrator struct {
	providers       []Provider
	blacklist       *BlacklistUsecase
	posts           PostRepo
	content         ContentStore
	cache           KeywordCacheRepo
	providerTimeout time.Duration
	cacheTTL        time.Duration
	log             *log.Helper
}

// NewFetchOrchestrator creates a new FetchOrchestrator. Providers are queried
// and their results concatenated in the given order.
func NewFetchOrchestrator(
	providers []Provider,
	blacklist *BlacklistUsecase,
	posts PostRepo,
	content ContentStore,
	cache KeywordCacheRepo,
	c *conf.Search,
	logger log.Logger,
) *FetchOrchestrator {
	o := &FetchOrchestrator{
		providers:       providers,
		blacklist:       blacklist,
		posts:           posts,
		content:         content,
		cache:           cache,
		providerTimeout: c.GetProviderTimeout().AsDuration(),
		cacheTTL:        c.GetKeywordCacheTTL().AsDuration(),
		log:             log.NewHelper(logger),
	}
	if o.providerTimeout <= 0 {
		o.providerTimeout = defaultProviderTimeout
	}
	if o.cacheTTL <= 0 {
		o.cacheTTL = defaultKeywordCacheTTL
	}
	return o
}

// ResolveKeyword returns the candidates for keyword. An empty keyword, or one
// no source knows, yields an empty list. The only error is
// ErrBlacklistUnavailable; provider and store failures are logged.
func (o *FetchOrchestrator) ResolveKeyword(ctx context.Context, keyword string, maxPerProvider int) ([]*CandidateImage, error) {
	kw := NormalizeKeyword(keyword)
	if kw == "" {
		return []*CandidateImage{}, nil
	}

	snapshot, err := o.blacklist.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if cached := o.cached(ctx, kw, maxPerProvider); cached != nil {
		// Entries may predate newer blacklist rows.
		return filterBlocked(cached.Images, snapshot), nil
	}

	fetched, complete := o.fetchProviders(ctx, kw, maxPerProvider, snapshot)
	local := o.fetchLocal(ctx, kw, snapshot)

	images := dedupeCandidates(filterBlocked(append(fetched, local...), snapshot))
	if complete && ctx.Err() == nil {
		o.store(ctx, kw, maxPerProvider, images)
	}
	o.log.WithContext(ctx).Debugf("keyword %q: %d candidates (%d provider, %d local)", kw, len(images), len(fetched), len(local))
	return images, nil
}

func (o *FetchOrchestrator) cached(ctx context.Context, kw string, maxPerProvider int) *KeywordResult {
	if o.cache == nil {
		return nil
	}
	res, err := o.cache.Get(ctx, kw, maxPerProvider)
	if err != nil {
		o.log.WithContext(ctx).Warnf("keyword cache get %q: %v", kw, err)
		metrics.KeywordCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}
	if res == nil {
		metrics.KeywordCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}
	metrics.KeywordCacheRequests.WithLabelValues(metrics.ResultHit).Inc()
	return res
}

func (o *FetchOrchestrator) store(ctx context.Context, kw string, maxPerProvider int, images []*CandidateImage) {
	if o.cache == nil {
		return
	}
	res := &KeywordResult{Keyword: kw, Images: images, FetchedAt: time.Now().UTC()}
	if err := o.cache.Put(ctx, res, maxPerProvider, o.cacheTTL); err != nil {
		o.log.WithContext(ctx).Warnf("keyword cache put %q: %v", kw, err)
	}
}

// fetchProviders queries every provider concurrently. complete is false when
// any provider reported an error, so partial sets are not cached.
func (o *FetchOrchestrator) fetchProviders(ctx context.Context, kw string, maxPerProvider int, snapshot *BlacklistSnapshot) ([]*CandidateImage, bool) {
	if len(o.providers) == 0 || maxPerProvider <= 0 {
		return nil, true
	}

	results := make([][]*CandidateImage, len(o.providers))
	failed := make([]bool, len(o.providers))

	var g errgroup.Group
	g.SetLimit(len(o.providers))
	for i, p := range o.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, o.providerTimeout)
			defer cancel()

			images, err := p.Fetch(pctx, kw, maxPerProvider, snapshot)
			if err != nil {
				failed[i] = true
				o.log.WithContext(ctx).Warnf("provider %s keyword %q: %d images, error: %v", p.Name(), kw, len(images), err)
			}
			if len(images) > maxPerProvider {
				images = images[:maxPerProvider]
			}
			results[i] = images
			return nil
		})
	}
	_ = g.Wait()

	var out []*CandidateImage
	complete := true
	for i, images := range results {
		out = append(out, images...)
		if failed[i] {
			complete = false
		}
	}
	return out, complete
}

func (o *FetchOrchestrator) fetchLocal(ctx context.Context, kw string, snapshot *BlacklistSnapshot) []*CandidateImage {
	if o.posts == nil {
		return nil
	}
	posts, err := o.posts.FindByKeyword(ctx, kw)
	if err != nil {
		o.log.WithContext(ctx).Warnf("local posts for %q: %v", kw, err)
		return nil
	}

	out := make([]*CandidateImage, 0, len(posts))
	for _, p := range posts {
		if p.ImagePath == "" || o.content == nil || !o.content.Exists(p.ImagePath) {
			continue
		}
		if snapshot.BlocksURL(p.SourceURL) {
			continue
		}
		keywords := p.Keywords
		if len(keywords) == 0 {
			keywords = []string{kw}
		}
		out = append(out, &CandidateImage{
			ID:              "local-" + strconv.FormatInt(p.ID, 10),
			ProviderName:    LocalProviderName,
			SourceURL:       p.SourceURL,
			LocalContentRef: p.ImagePath,
			Author:          Author{Name: p.Author},
			Description:     p.Description,
			Keywords:        keywords,
		})
	}
	return out
}

// dedupeCandidates keeps the first candidate of each identity.
func dedupeCandidates(images []*CandidateImage) []*CandidateImage {
	seen := make(map[string]struct{}, len(images))
	out := make([]*CandidateImage, 0, len(images))
	for _, img := range images {
		id := img.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, img)
	}
	return out
}

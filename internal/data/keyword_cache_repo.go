package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"imagesearch/internal/biz"
	"imagesearch/internal/pkg/hash"
	pkgredis "imagesearch/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

const keywordCachePrefix = "imagesearch:kw:"

type keywordCacheRepo struct {
	cache pkgredis.Cache
	log   *log.Helper
}

// NewKeywordCacheRepo creates a redis backed keyword cache. Without a redis
// cache every lookup misses.
func NewKeywordCacheRepo(cache pkgredis.Cache, logger log.Logger) biz.KeywordCacheRepo {
	if cache == nil {
		return noopKeywordCache{}
	}
	return &keywordCacheRepo{
		cache: cache,
		log:   log.NewHelper(logger),
	}
}

func keywordCacheKey(keyword string, maxPerProvider int) string {
	return fmt.Sprintf("%s%s:%d", keywordCachePrefix, hash.FastHash(biz.NormalizeKeyword(keyword)), maxPerProvider)
}

// Get implements biz.KeywordCacheRepo.
func (r *keywordCacheRepo) Get(ctx context.Context, keyword string, maxPerProvider int) (*biz.KeywordResult, error) {
	raw, err := r.cache.GetBytes(ctx, keywordCacheKey(keyword, maxPerProvider))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", biz.ErrCacheStorage, err)
	}
	var res biz.KeywordResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decode keyword %q: %w", biz.ErrCacheStorage, keyword, err)
	}
	if res.Keyword != biz.NormalizeKeyword(keyword) {
		// xxhash collision
		return nil, nil
	}
	return &res, nil
}

// Put implements biz.KeywordCacheRepo.
func (r *keywordCacheRepo) Put(ctx context.Context, result *biz.KeywordResult, maxPerProvider int, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := r.cache.SetBytes(ctx, keywordCacheKey(result.Keyword, maxPerProvider), raw, ttl); err != nil {
		return fmt.Errorf("%w: %w", biz.ErrCacheStorage, err)
	}
	return nil
}

type noopKeywordCache struct{}

func (noopKeywordCache) Get(context.Context, string, int) (*biz.KeywordResult, error) {
	return nil, nil
}

func (noopKeywordCache) Put(context.Context, *biz.KeywordResult, int, time.Duration) error {
	return nil
}

package biz

import (
	"context"
	"time"

	"imagesearch/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SearchOptions overrides the configured limits of one search. Zero values
// fall back to configuration.
type SearchOptions struct {
	TopK           int
	MaxPerKeyword  int
	MaxPerProvider int
	Timeout        time.Duration
}

// SearchResult is the answer to one query.
type SearchResult struct {
	RequestID string       `json:"request_id"`
	Query     string       `json:"query"`
	Keywords  []string     `json:"keywords"`
	Hits      []*RankedHit `json:"hits"`
}

// SearchUsecase answers free-text image queries.
type SearchUsecase struct {
	extractor KeywordExtractor
	merger    *RankingMerger
	defaults  SearchOptions
	logger    log.Logger
}

// NewSearchUsecase creates a new SearchUsecase.
func NewSearchUsecase(extractor KeywordExtractor, merger *RankingMerger, c *conf.Search, logger log.Logger) *SearchUsecase {
	return &SearchUsecase{
		extractor: extractor,
		merger:    merger,
		defaults: SearchOptions{
			TopK:           c.GetTopK(),
			MaxPerKeyword:  c.GetMaxPerKeyword(),
			MaxPerProvider: c.GetMaxPerProvider(),
			Timeout:        c.GetRequestTimeout().AsDuration(),
		},
		logger: logger,
	}
}

// Search extracts keywords from query and ranks their candidates against
// it. ErrNoResults means no keyword was recognised; ErrServiceDegraded means
// the blacklist was unavailable for every keyword. Partial failures are not
// errors.
func (uc *SearchUsecase) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	opts = uc.withDefaults(opts)
	res := &SearchResult{
		RequestID: uuid.NewString(),
		Query:     query,
		Keywords:  normalizeKeywords(uc.extractor.Keywords(query)),
	}
	l := log.NewHelper(log.With(uc.logger, "request_id", res.RequestID)).WithContext(ctx)

	if len(res.Keywords) == 0 {
		l.Infof("no keywords in query %q", query)
		return nil, ErrNoResults
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	hits, err := uc.merger.rank(ctx, res.Keywords, query, opts.MaxPerProvider, opts.MaxPerKeyword, opts.TopK)
	if err != nil {
		l.Errorf("search %q: %v", query, err)
		return nil, err
	}
	res.Hits = hits
	l.Infof("search %q: keywords=%v hits=%d took=%s", query, res.Keywords, len(hits), time.Since(start))
	return res, nil
}

func (uc *SearchUsecase) withDefaults(o SearchOptions) SearchOptions {
	if o.TopK <= 0 {
		o.TopK = uc.defaults.TopK
	}
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.MaxPerKeyword <= 0 {
		o.MaxPerKeyword = uc.defaults.MaxPerKeyword
	}
	if o.MaxPerKeyword <= 0 {
		o.MaxPerKeyword = defaultMaxPerKeyword
	}
	if o.MaxPerProvider <= 0 {
		o.MaxPerProvider = uc.defaults.MaxPerProvider
	}
	if o.MaxPerProvider <= 0 {
		o.MaxPerProvider = defaultMaxPerProvider
	}
	if o.Timeout <= 0 {
		o.Timeout = uc.defaults.Timeout
	}
	return o
}

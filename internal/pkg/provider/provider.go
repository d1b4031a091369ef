package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imagesearch/internal/pkg/breaker"
	"imagesearch/internal/pkg/filter"
	"imagesearch/internal/pkg/hash"
	"imagesearch/internal/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultDownloadTimeout = 10 * time.Second
	defaultMaxImageBytes   = 20 << 20
)

// Blocklist answers whether a URL or perceptual hash must not be returned.
type Blocklist interface {
	BlocksURL(url string) bool
	BlocksPHash(phash uint64) bool
}

// ContentStore persists downloaded bytes and returns a ref to them.
type ContentStore interface {
	Save(provider, keyword, sourceURL string, data []byte) (string, error)
}

// Image is one accepted search hit whose bytes are stored locally.
type Image struct {
	ID          string
	Provider    string
	SourceURL   string
	ImageURL    string
	ContentRef  string
	AuthorName  string
	AuthorURL   string
	Description string
	Tags        []string
	PHash       uint64
}

// FetchError describes the failure of one provider call or of one item in
// it. Item is empty when the whole call failed.
type FetchError struct {
	Provider string
	Keyword  string
	Item     string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("provider %s: keyword %q: %v", e.Provider, e.Keyword, e.Err)
	}
	return fmt.Sprintf("provider %s: keyword %q: item %s: %v", e.Provider, e.Keyword, e.Item, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options holds what every adapter needs.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	DownloadTimeout   time.Duration
	MaxImageBytes     int64
	RequestsPerMinute int
	HTTPClient        *http.Client
	Breaker           *breaker.Breaker
	Store             ContentStore
	Logger            log.Logger
}

// hit is a provider search result reduced to what filtering needs.
type hit struct {
	id          string
	pageURL     string
	imageURL    string
	authorName  string
	authorURL   string
	description string
	tags        []string
	// extra metadata checked for AI markers but not kept
	extra []string
}

// fetcher holds the behaviour shared by all adapters. It keeps no per-call
// state and is safe for concurrent use.
type fetcher struct {
	name            string
	baseURL         string
	apiKey          string
	timeout         time.Duration
	downloadTimeout time.Duration
	maxBytes        int64
	httpClient      *http.Client
	limiter         *rate.Limiter
	breaker         *breaker.Breaker
	store           ContentStore
	hasher          *hash.PerceptualHasher
	markers         *filter.AhoCorasick
	log             *log.Helper
}

func newFetcher(name, defaultBaseURL string, o Options) (*fetcher, error) {
	if o.Store == nil {
		return nil, fmt.Errorf("provider %s: content store is required", name)
	}
	if o.Logger == nil {
		o.Logger = log.DefaultLogger
	}
	f := &fetcher{
		name:            name,
		baseURL:         strings.TrimRight(o.BaseURL, "/"),
		apiKey:          o.APIKey,
		timeout:         o.Timeout,
		downloadTimeout: o.DownloadTimeout,
		maxBytes:        o.MaxImageBytes,
		httpClient:      o.HTTPClient,
		breaker:         o.Breaker,
		store:           o.Store,
		hasher:          hash.NewPerceptualHasher(),
		markers:         filter.NewAIMarkerMatcher(),
		log:             log.NewHelper(log.With(o.Logger, "provider", name)),
	}
	if f.baseURL == "" {
		f.baseURL = defaultBaseURL
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.downloadTimeout <= 0 {
		f.downloadTimeout = defaultDownloadTimeout
	}
	if f.maxBytes <= 0 {
		f.maxBytes = defaultMaxImageBytes
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{}
	}
	if o.RequestsPerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(float64(o.RequestsPerMinute)/60), 1)
	}
	return f, nil
}

// searchJSON performs the provider search call and decodes the JSON body
// into out.
func (f *fetcher) searchJSON(ctx context.Context, req *http.Request, out any) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	do := func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		resp, err := f.httpClient.Do(req.WithContext(ctx))
		if err != nil {
			return struct{}{}, fmt.Errorf("search request: %w", stripURL(err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("failed to parse search response: %w", err)
		}
		return struct{}{}, nil
	}
	if f.breaker == nil {
		_, err := do()
		return err
	}
	_, err := breaker.Execute(f.breaker, do)
	return err
}

// stripURL drops the request URL from a transport error. Some providers take
// the API key as a query parameter.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

// collect turns search hits into stored images, in order, stopping at limit.
// Per-item failures are returned joined; accepted images are kept.
func (f *fetcher) collect(ctx context.Context, keyword string, hits []hit, limit int, blocked Blocklist) ([]*Image, error) {
	var (
		images = make([]*Image, 0, min(limit, len(hits)))
		errs   []error
	)
	for _, h := range hits {
		if len(images) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, &FetchError{Provider: f.name, Keyword: keyword, Err: err})
			break
		}
		if h.imageURL == "" {
			f.drop(metrics.DropNoImage)
			continue
		}
		if blocked != nil && (blocked.BlocksURL(h.pageURL) || blocked.BlocksURL(h.imageURL)) {
			f.log.Debugf("skip blocked hit %s", h.pageURL)
			f.drop(metrics.DropBlocked)
			continue
		}
		texts := append([]string{h.description, h.authorName, strings.Join(h.tags, ", ")}, h.extra...)
		if filter.ContainsAIMarker(f.markers, texts...) {
			f.log.Debugf("skip AI-marked hit %s", h.pageURL)
			f.drop(metrics.DropAIMarker)
			continue
		}

		img, err := f.accept(ctx, keyword, h, blocked)
		if err != nil {
			errs = append(errs, &FetchError{Provider: f.name, Keyword: keyword, Item: h.imageURL, Err: err})
			continue
		}
		if img != nil {
			images = append(images, img)
		}
	}
	return images, errors.Join(errs...)
}

// accept downloads, hashes and stores one hit. A nil image with a nil error
// means the hit was dropped by the perceptual hash check.
func (f *fetcher) accept(ctx context.Context, keyword string, h hit, blocked Blocklist) (*Image, error) {
	data, err := f.download(ctx, h.imageURL)
	if err != nil {
		f.drop(metrics.DropDownload)
		return nil, err
	}
	decoded, err := f.hasher.Decode(data)
	if err != nil {
		f.drop(metrics.DropDownload)
		return nil, err
	}
	if blocked != nil && blocked.BlocksPHash(decoded.PHash) {
		f.log.Debugf("skip hit %s matching a blocked perceptual hash", h.pageURL)
		f.drop(metrics.DropPHash)
		return nil, nil
	}
	ref, err := f.store.Save(f.name, keyword, h.imageURL, data)
	if err != nil {
		f.drop(metrics.DropStorage)
		return nil, err
	}
	return &Image{
		ID:          f.name + "-" + h.id,
		Provider:    f.name,
		SourceURL:   h.pageURL,
		ImageURL:    h.imageURL,
		ContentRef:  ref,
		AuthorName:  h.authorName,
		AuthorURL:   h.authorURL,
		Description: h.description,
		Tags:        h.tags,
		PHash:       decoded.PHash,
	}, nil
}

func (f *fetcher) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", f.maxBytes)
	}
	return data, nil
}

func (f *fetcher) drop(reason string) {
	metrics.ProviderItemsDropped.WithLabelValues(f.name, reason).Inc()
}

// finish records the outcome of one Fetch and wraps a request-level error.
func (f *fetcher) finish(keyword string, images []*Image, err error) ([]*Image, error) {
	switch {
	case err == nil:
		metrics.ProviderFetches.WithLabelValues(f.name, metrics.OutcomeOK).Inc()
	case len(images) > 0:
		metrics.ProviderFetches.WithLabelValues(f.name, metrics.OutcomePartial).Inc()
	default:
		metrics.ProviderFetches.WithLabelValues(f.name, metrics.OutcomeError).Inc()
	}
	f.log.Debugf("keyword %q: %d images", keyword, len(images))
	return images, err
}

func (f *fetcher) requestError(keyword string, err error) error {
	return &FetchError{Provider: f.name, Keyword: keyword, Err: err}
}

// perPage asks for some headroom over limit since hits get filtered, within
// the provider's page size bounds.
func perPage(limit, lo, hi int) int {
	n := limit * 2
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n
}

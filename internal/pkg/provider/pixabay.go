package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const PixabayName = "pixabay"

// Pixabay searches https://pixabay.com/api/ for safe-search photos.
type Pixabay struct {
	*fetcher
}

// NewPixabay returns a Pixabay adapter. The API key is sent as the key query
// parameter.
func NewPixabay(o Options) (*Pixabay, error) {
	f, err := newFetcher(PixabayName, "https://pixabay.com", o)
	if err != nil {
		return nil, err
	}
	return &Pixabay{fetcher: f}, nil
}

// Name returns "pixabay".
func (p *Pixabay) Name() string {
	return PixabayName
}

type pixabayResponse struct {
	Hits []struct {
		ID           int64  `json:"id"`
		PageURL      string `json:"pageURL"`
		Tags         string `json:"tags"`
		WebformatURL string `json:"webformatURL"`
		User         string `json:"user"`
		UserID       int64  `json:"user_id"`
	} `json:"hits"`
}

// Fetch returns up to maxCount stored images for keyword.
func (p *Pixabay) Fetch(ctx context.Context, keyword string, maxCount int, blocked Blocklist) ([]*Image, error) {
	if maxCount <= 0 {
		return []*Image{}, nil
	}
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", strings.ToLower(keyword))
	q.Set("image_type", "photo")
	q.Set("safesearch", "true")
	q.Set("per_page", strconv.Itoa(perPage(maxCount, 3, 200)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/?"+q.Encode(), nil)
	if err != nil {
		return p.finish(keyword, nil, p.requestError(keyword, err))
	}
	var resp pixabayResponse
	if err := p.searchJSON(ctx, req, &resp); err != nil {
		return p.finish(keyword, nil, p.requestError(keyword, err))
	}

	hits := make([]hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		var authorURL string
		if h.User != "" {
			authorURL = fmt.Sprintf("https://pixabay.com/users/%s-%d/", h.User, h.UserID)
		}
		hits = append(hits, hit{
			id:         strconv.FormatInt(h.ID, 10),
			pageURL:    h.PageURL,
			imageURL:   h.WebformatURL,
			authorName: h.User,
			authorURL:  authorURL,
			tags:       splitTags(h.Tags),
		})
	}
	images, err := p.collect(ctx, keyword, hits, maxCount, blocked)
	return p.finish(keyword, images, err)
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const PexelsName = "pexels"

// Pexels searches https://api.pexels.com/v1/search.
type Pexels struct {
	*fetcher
}

// NewPexels returns a Pexels adapter authenticated by the Authorization header.
func NewPexels(o Options) (*Pexels, error) {
	f, err := newFetcher(PexelsName, "https://api.pexels.com", o)
	if err != nil {
		return nil, err
	}
	return &Pexels{fetcher: f}, nil
}

// Name returns "pexels".
func (p *Pexels) Name() string {
	return PexelsName
}

type pexelsResponse struct {
	Photos []struct {
		ID              int64  `json:"id"`
		URL             string `json:"url"`
		Photographer    string `json:"photographer"`
		PhotographerURL string `json:"photographer_url"`
		Alt             string `json:"alt"`
		Src             struct {
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// Fetch returns up to maxCount stored images for keyword.
func (p *Pexels) Fetch(ctx context.Context, keyword string, maxCount int, blocked Blocklist) ([]*Image, error) {
	if maxCount <= 0 {
		return []*Image{}, nil
	}
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", strconv.Itoa(perPage(maxCount, 1, 80)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return p.finish(keyword, nil, p.requestError(keyword, err))
	}
	req.Header.Set("Authorization", p.apiKey)

	var resp pexelsResponse
	if err := p.searchJSON(ctx, req, &resp); err != nil {
		return p.finish(keyword, nil, p.requestError(keyword, err))
	}

	hits := make([]hit, 0, len(resp.Photos))
	for _, ph := range resp.Photos {
		hits = append(hits, hit{
			id:          strconv.FormatInt(ph.ID, 10),
			pageURL:     ph.URL,
			imageURL:    ph.Src.Original,
			authorName:  ph.Photographer,
			authorURL:   ph.PhotographerURL,
			description: ph.Alt,
		})
	}
	images, err := p.collect(ctx, keyword, hits, maxCount, blocked)
	return p.finish(keyword, images, err)
}

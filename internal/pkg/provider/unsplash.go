package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const UnsplashName = "unsplash"

// Unsplash searches https://api.unsplash.com/search/photos.
type Unsplash struct {
	*fetcher
}

// NewUnsplash returns an Unsplash adapter using a Client-ID access key.
func NewUnsplash(o Options) (*Unsplash, error) {
	f, err := newFetcher(UnsplashName, "https://api.unsplash.com", o)
	if err != nil {
		return nil, err
	}
	return &Unsplash{fetcher: f}, nil
}

// Name returns "unsplash".
func (u *Unsplash) Name() string {
	return UnsplashName
}

type unsplashResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
		User struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
		Tags []struct {
			Title string `json:"title"`
		} `json:"tags"`
	} `json:"results"`
}

// Fetch returns up to maxCount stored images for keyword.
func (u *Unsplash) Fetch(ctx context.Context, keyword string, maxCount int, blocked Blocklist) ([]*Image, error) {
	if maxCount <= 0 {
		return []*Image{}, nil
	}
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("content_filter", "high")
	q.Set("per_page", strconv.Itoa(perPage(maxCount, 1, 30)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return u.finish(keyword, nil, u.requestError(keyword, err))
	}
	req.Header.Set("Authorization", "Client-ID "+u.apiKey)
	req.Header.Set("Accept-Version", "v1")

	var resp unsplashResponse
	if err := u.searchJSON(ctx, req, &resp); err != nil {
		return u.finish(keyword, nil, u.requestError(keyword, err))
	}

	hits := make([]hit, 0, len(resp.Results))
	for _, r := range resp.Results {
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			tags = append(tags, t.Title)
		}
		description := r.Description
		if description == "" {
			description = r.AltDescription
		}
		hits = append(hits, hit{
			id:          r.ID,
			pageURL:     r.Links.HTML,
			imageURL:    r.URLs.Regular,
			authorName:  r.User.Name,
			authorURL:   r.User.Links.HTML,
			description: description,
			tags:        tags,
			extra:       []string{r.AltDescription},
		})
	}
	images, err := u.collect(ctx, keyword, hits, maxCount, blocked)
	return u.finish(keyword, images, err)
}

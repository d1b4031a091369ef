package biz

import (
	"strings"
	"time"
)

// LocalProviderName marks candidates that come from the local post store.
const LocalProviderName = "local"

// Author credits the creator of an image.
type Author struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// CandidateImage is an image eligible for ranking. It is never mutated after
// creation.
type CandidateImage struct {
	ID              string   `json:"id"`
	ProviderName    string   `json:"provider"`
	SourceURL       string   `json:"source_url,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	LocalContentRef string   `json:"content_ref"`
	Author          Author   `json:"author"`
	Description     string   `json:"description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	PHash           uint64   `json:"phash,omitempty"`
}

// Identity is (provider, source URL) for external images and the post id
// for local ones.
func (c *CandidateImage) Identity() string {
	if c.ProviderName == LocalProviderName || c.SourceURL == "" {
		return c.ProviderName + "|" + c.ID
	}
	return c.ProviderName + "|" + c.SourceURL
}

// KeywordResult is the candidate set resolved for one keyword.
type KeywordResult struct {
	Keyword   string            `json:"keyword"`
	Images    []*CandidateImage `json:"images"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// RankedHit is a candidate scored against the query under one keyword.
type RankedHit struct {
	Image   *CandidateImage `json:"image"`
	Score   float64         `json:"score"`
	Keyword string          `json:"keyword"`
}

// Post is the read model of a record in the local post store.
type Post struct {
	ID          int64
	Author      string
	Description string
	ImagePath   string
	SourceURL   string
	Keywords    []string
}

// NormalizeKeyword trims and lowercases a keyword.
func NormalizeKeyword(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// normalizeKeywords normalises and de-duplicates keywords, keeping the first
// occurrence and dropping empty ones.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = NormalizeKeyword(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

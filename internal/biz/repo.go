package biz

import (
	"context"
	"time"

	"imagesearch/internal/pkg/hash"
)

// Provider is an external image source.
type Provider interface {
	Name() string
	// Fetch returns at most maxCount candidates for keyword, none of them
	// blocked by the snapshot. A non-nil error may come with partial results.
	Fetch(ctx context.Context, keyword string, maxCount int, blocked *BlacklistSnapshot) ([]*CandidateImage, error)
}

// BlacklistRepo reads blacklist entries with status blocked.
type BlacklistRepo interface {
	ListBlocked(ctx context.Context) ([]*BlacklistEntry, error)
}

// PostRepo reads the local post store.
type PostRepo interface {
	FindByKeyword(ctx context.Context, keyword string) ([]*Post, error)
}

// ContentStore reads image bytes referenced by candidates.
type ContentStore interface {
	Read(ref string) ([]byte, error)
	Exists(ref string) bool
}

// EmbeddingStore is the durable side of the embedding cache. Get returns
// nil, nil on a miss.
type EmbeddingStore interface {
	Get(ctx context.Context, h hash.ContentHash) ([]float32, error)
	Put(ctx context.Context, h hash.ContentHash, vec []float32) error
}

// KeywordCacheRepo caches resolved candidates per keyword. Get returns
// nil, nil on a miss.
type KeywordCacheRepo interface {
	Get(ctx context.Context, keyword string, maxPerProvider int) (*KeywordResult, error)
	Put(ctx context.Context, result *KeywordResult, maxPerProvider int, ttl time.Duration) error
}

// Embedder is the model capability producing image and text embeddings.
type Embedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Scorer ranks vectors against a query and returns up to topK positions
// into vectors with their scores, best first.
type Scorer interface {
	Similarity(ctx context.Context, vectors [][]float32, query []float32, topK int) ([]int, []float64, error)
}

// KeywordExtractor turns free text into an ordered set of keywords.
type KeywordExtractor interface {
	Keywords(text string) []string
}

// CandidateResolver resolves a keyword into candidate images.
type CandidateResolver interface {
	ResolveKeyword(ctx context.Context, keyword string, maxPerProvider int) ([]*CandidateImage, error)
}

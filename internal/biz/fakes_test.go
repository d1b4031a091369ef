package biz

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imagesearch/internal/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

var errFake = errors.New("fake failure")

func testLogger() log.Logger {
	return log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError))
}

// solidPNG encodes a 4x4 image of one colour.
func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

// unitVec returns a 2D unit vector whose dot product with (1, 0) is s.
func unitVec(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

type memEmbeddingStore struct {
	mu     sync.Mutex
	vecs   map[hash.ContentHash][]float32
	getErr error
	puts   atomic.Int32
}

func newMemEmbeddingStore() *memEmbeddingStore {
	return &memEmbeddingStore{vecs: make(map[hash.ContentHash][]float32)}
}

func (s *memEmbeddingStore) Get(_ context.Context, h hash.ContentHash) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.vecs[h]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (s *memEmbeddingStore) Put(_ context.Context, h hash.ContentHash, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts.Add(1)
	s.vecs[h] = slices.Clone(vec)
	return nil
}

type memContent struct {
	files map[string][]byte
}

func (c *memContent) Read(ref string) ([]byte, error) {
	b, ok := c.files[ref]
	if !ok {
		return nil, errors.New("no such ref: " + ref)
	}
	return b, nil
}

func (c *memContent) Exists(ref string) bool {
	_, ok := c.files[ref]
	return ok
}

type fakeBlacklistRepo struct {
	entries []*BlacklistEntry
	err     error
}

func (r *fakeBlacklistRepo) ListBlocked(context.Context) ([]*BlacklistEntry, error) {
	return r.entries, r.err
}

type fakeProvider struct {
	name   string
	images []*CandidateImage
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(ctx context.Context, _ string, maxCount int, _ *BlacklistSnapshot) ([]*CandidateImage, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	images := p.images
	if len(images) > maxCount {
		images = images[:maxCount]
	}
	return images, p.err
}

type fakePostRepo struct {
	posts map[string][]*Post
	err   error
}

func (r *fakePostRepo) FindByKeyword(_ context.Context, kw string) ([]*Post, error) {
	return r.posts[kw], r.err
}

type memKeywordCache struct {
	mu      sync.Mutex
	results map[string]*KeywordResult
	puts    int
}

func newMemKeywordCache() *memKeywordCache {
	return &memKeywordCache{results: make(map[string]*KeywordResult)}
}

func (c *memKeywordCache) Get(_ context.Context, kw string, _ int) (*KeywordResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[kw], nil
}

func (c *memKeywordCache) Put(_ context.Context, r *KeywordResult, _ int, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.results[r.Keyword] = r
	return nil
}

// fakeEmbedder maps image bytes to fixed vectors.
type fakeEmbedder struct {
	images  map[string][]float32
	query   []float32
	textErr error
	calls   atomic.Int32
}

func (e *fakeEmbedder) EmbedImage(_ context.Context, raw []byte) ([]float32, error) {
	e.calls.Add(1)
	v, ok := e.images[string(raw)]
	if !ok {
		return nil, errFake
	}
	return slices.Clone(v), nil
}

func (e *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	if e.textErr != nil {
		return nil, e.textErr
	}
	return slices.Clone(e.query), nil
}

// dotScorer ranks by dot product and fails for any batch holding a vector
// whose first component equals failOn.
type dotScorer struct {
	failOn float32
}

func (s dotScorer) Similarity(_ context.Context, vectors [][]float32, query []float32, topK int) ([]int, []float64, error) {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		if s.failOn != 0 && math.Abs(float64(v[0]-s.failOn)) < 1e-4 {
			return nil, nil, errFake
		}
		for j := range v {
			scores[i] += float64(v[j]) * float64(query[j])
		}
	}
	order := make([]int, len(vectors))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return 0
	})
	if len(order) > topK {
		order = order[:topK]
	}
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = scores[idx]
	}
	return order, out, nil
}

// fakeResolver returns fixed candidates per keyword. Keywords in block wait
// for cancellation.
type fakeResolver struct {
	candidates map[string][]*CandidateImage
	errs       map[string]error
	block      map[string]bool
}

func (r *fakeResolver) ResolveKeyword(ctx context.Context, kw string, _ int) ([]*CandidateImage, error) {
	if r.block[kw] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := r.errs[kw]; err != nil {
		return nil, err
	}
	return r.candidates[kw], nil
}

type fixedExtractor []string

func (e fixedExtractor) Keywords(string) []string { return e }

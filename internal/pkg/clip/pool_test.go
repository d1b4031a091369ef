package clip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newCountingServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	}))
	t.Cleanup(s.Close)
	return s
}

func TestPool_SameContentSameEndpoint(t *testing.T) {
	var a, b atomic.Int32
	sa, sb := newCountingServer(t, &a), newCountingServer(t, &b)

	p, err := NewPool(NewClient(Config{BaseURL: sa.URL}), NewClient(Config{BaseURL: sb.URL}))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := p.EmbedImage(context.Background(), []byte("same image")); err != nil {
			t.Fatalf("EmbedImage failed: %v", err)
		}
	}
	if !(a.Load() == 5 && b.Load() == 0) && !(a.Load() == 0 && b.Load() == 5) {
		t.Errorf("calls split %d/%d; want all on one endpoint", a.Load(), b.Load())
	}
}

func TestPool_Empty(t *testing.T) {
	if _, err := NewPool(); err == nil {
		t.Fatal("expected error for empty pool")
	}
}

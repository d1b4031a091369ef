package clip

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"imagesearch/internal/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
)

func TestClient_EmbedImage(t *testing.T) {
	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/image" {
			t.Errorf("Expected /embed/image, got %s", r.URL.Path)
		}
		var req embedImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Image != base64.StdEncoding.EncodeToString(imageData) {
			t.Errorf("unexpected image payload %q", req.Image)
		}
		if req.Model != "ViT-B-32" {
			t.Errorf("Expected model ViT-B-32, got %q", req.Model)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.6, 0.8}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "ViT-B-32"})

	vec, err := client.EmbedImage(context.Background(), imageData)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.6 || vec[1] != 0.8 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestClient_EmbedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/text" {
			t.Errorf("Expected /embed/text, got %s", r.URL.Path)
		}
		var req embedTextRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Text != "dog in park" {
			t.Errorf("unexpected text %q", req.Text)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0}})
	}))
	defer server.Close()

	vec, err := NewClient(Config{BaseURL: server.URL}).EmbedText(context.Background(), "dog in park")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestClient_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": []}`))
	}))
	defer server.Close()

	if _, err := NewClient(Config{BaseURL: server.URL}).EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestClient_Similarity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/similarity" {
			t.Errorf("Expected /similarity, got %s", r.URL.Path)
		}
		var req similarityRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TopK != 2 || len(req.Vectors) != 3 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(similarityResponse{Indices: []int{2, 0}, Scores: []float64{0.9, 0.4}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	idx, scores, err := client.Similarity(context.Background(), [][]float32{{1}, {2}, {3}}, []float32{1}, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(idx) != 2 || idx[0] != 2 || scores[0] != 0.9 {
		t.Errorf("unexpected result %v %v", idx, scores)
	}
}

func TestClient_SimilarityRejectsBadIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(similarityResponse{Indices: []int{5}, Scores: []float64{0.9}})
	}))
	defer server.Close()

	_, _, err := NewClient(Config{BaseURL: server.URL}).Similarity(context.Background(), [][]float32{{1}}, []float32{1}, 1)
	if err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestClient_SimilarityEmpty(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	idx, scores, err := client.Similarity(context.Background(), nil, []float32{1}, 3)
	if err != nil || len(idx) != 0 || len(scores) != 0 {
		t.Fatalf("expected empty result without a call, got %v %v %v", idx, scores, err)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	if _, err := NewClient(Config{BaseURL: server.URL}).EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := breaker.New("clip-test", breaker.Config{
		MinRequests:  2,
		FailureRatio: 0.5,
		Interval:     time.Minute,
		OpenTimeout:  time.Hour,
		HalfOpenMax:  1,
	}, log.DefaultLogger)
	client := NewClient(Config{BaseURL: server.URL}, WithBreaker(b))

	for i := 0; i < 4; i++ {
		client.EmbedText(context.Background(), "x")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls; want 2 before the breaker opened", got)
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Expected /health, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer server.Close()

	if err := NewClient(Config{BaseURL: server.URL}).Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected BaseURL http://localhost:8000, got %s", config.BaseURL)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", config.Timeout)
	}
}

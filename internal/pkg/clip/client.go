package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"imagesearch/internal/pkg/breaker"
)

// Config holds configuration for one model service endpoint.
type Config struct {
	BaseURL string // e.g. "http://localhost:8000"
	Model   string // sent with every embedding request, empty for the server default
	Timeout time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Timeout: 30 * time.Second,
	}
}

// Client talks to a CLIP-style embedding service over HTTP JSON.
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *breaker.Breaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBreaker routes every call through b.
func WithBreaker(b *breaker.Breaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new model service client.
func NewClient(config Config, opts ...ClientOption) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

type embedImageRequest struct {
	Image string `json:"image"`
	Model string `json:"model,omitempty"`
}

type embedTextRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type similarityRequest struct {
	Vectors [][]float32 `json:"vectors"`
	Query   []float32   `json:"query"`
	TopK    int         `json:"top_k"`
}

type similarityResponse struct {
	Indices []int     `json:"indices"`
	Scores  []float64 `json:"scores"`
}

// EmbedImage returns the embedding of encoded image bytes.
func (c *Client) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	var resp embedResponse
	err := c.call(ctx, "/embed/image", embedImageRequest{
		Image: base64.StdEncoding.EncodeToString(imageData),
		Model: c.config.Model,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model API returned an empty image embedding")
	}
	return resp.Embedding, nil
}

// EmbedText returns the embedding of a text query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	err := c.call(ctx, "/embed/text", embedTextRequest{Text: text, Model: c.config.Model}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model API returned an empty text embedding")
	}
	return resp.Embedding, nil
}

// Similarity returns up to topK indices into vectors, best first, with
// their scores against query.
func (c *Client) Similarity(ctx context.Context, vectors [][]float32, query []float32, topK int) ([]int, []float64, error) {
	if len(vectors) == 0 || topK <= 0 {
		return []int{}, []float64{}, nil
	}
	var resp similarityResponse
	err := c.call(ctx, "/similarity", similarityRequest{Vectors: vectors, Query: query, TopK: topK}, &resp)
	if err != nil {
		return nil, nil, err
	}
	if len(resp.Indices) != len(resp.Scores) {
		return nil, nil, fmt.Errorf("model API returned %d indices and %d scores", len(resp.Indices), len(resp.Scores))
	}
	for _, idx := range resp.Indices {
		if idx < 0 || idx >= len(vectors) {
			return nil, nil, fmt.Errorf("model API returned index %d out of range [0,%d)", idx, len(vectors))
		}
	}
	if len(resp.Indices) > topK {
		resp.Indices, resp.Scores = resp.Indices[:topK], resp.Scores[:topK]
	}
	return resp.Indices, resp.Scores, nil
}

// Ping checks if the model API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	url := c.config.BaseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model API not reachable at %s: %w", c.config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model API returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	if c.breaker == nil {
		return c.doRequest(ctx, path, in, out)
	}
	_, err := breaker.Execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.doRequest(ctx, path, in, out)
	})
	return err
}

func (c *Client) doRequest(ctx context.Context, path string, in, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call model API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

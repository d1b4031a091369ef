package clip

import (
	"context"
	"errors"
	"fmt"

	"imagesearch/internal/pkg/hash"
)

// Pool spreads calls over several model endpoints. Image embeddings are
// routed by content so repeated images land on the same replica and hit its
// warm cache; text and similarity calls are routed by the query text.
type Pool struct {
	ring    *hash.ConsistentHash
	clients map[string]*Client
}

// NewPool builds a pool over clients keyed by BaseURL.
func NewPool(clients ...*Client) (*Pool, error) {
	if len(clients) == 0 {
		return nil, errors.New("clip: pool needs at least one endpoint")
	}
	p := &Pool{
		ring:    hash.NewConsistentHash(),
		clients: make(map[string]*Client, len(clients)),
	}
	for _, c := range clients {
		p.clients[c.BaseURL()] = c
		p.ring.Add(c.BaseURL())
	}
	return p, nil
}

func (p *Pool) pick(key []byte) (*Client, error) {
	node, ok := p.ring.Get(key)
	if !ok {
		return nil, fmt.Errorf("clip: no endpoint available")
	}
	return p.clients[node], nil
}

func (p *Pool) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	c, err := p.pick(imageData)
	if err != nil {
		return nil, err
	}
	return c.EmbedImage(ctx, imageData)
}

func (p *Pool) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c, err := p.pick([]byte(text))
	if err != nil {
		return nil, err
	}
	return c.EmbedText(ctx, text)
}

func (p *Pool) Similarity(ctx context.Context, vectors [][]float32, query []float32, topK int) ([]int, []float64, error) {
	key := make([]byte, 0, len(query)*4)
	for _, v := range query {
		key = fmt.Appendf(key, "%g,", v)
	}
	c, err := p.pick(key)
	if err != nil {
		return nil, nil, err
	}
	return c.Similarity(ctx, vectors, query, topK)
}

// Ping succeeds when at least one endpoint is healthy.
func (p *Pool) Ping(ctx context.Context) error {
	var errs []error
	for _, c := range p.clients {
		err := c.Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

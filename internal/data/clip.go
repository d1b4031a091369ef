package data

import (
	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/breaker"
	"imagesearch/internal/pkg/clip"

	"github.com/go-kratos/kratos/v2/log"
)

// NewClipPool creates one breaker-guarded client per configured endpoint.
func NewClipPool(c *conf.Clip, logger log.Logger) (*clip.Pool, error) {
	endpoints := []string{clip.DefaultConfig().BaseURL}
	if c != nil && len(c.Endpoints) > 0 {
		endpoints = c.Endpoints
	}
	clients := make([]*clip.Client, 0, len(endpoints))
	for _, ep := range endpoints {
		cfg := clip.Config{
			BaseURL: ep,
			Timeout: c.GetTimeout().AsDuration(),
		}
		if c != nil {
			cfg.Model = c.Model
		}
		b := breaker.New("clip:"+ep, breaker.DefaultConfig(), logger)
		clients = append(clients, clip.NewClient(cfg, clip.WithBreaker(b)))
	}
	return clip.NewPool(clients...)
}

// NewEmbedder exposes the pool as the embedding capability.
func NewEmbedder(p *clip.Pool) biz.Embedder {
	return p
}

// NewScorer picks the similarity implementation. With local_similarity the
// dot product is computed in process instead of by the model service.
func NewScorer(c *conf.Clip, p *clip.Pool) biz.Scorer {
	if c != nil && c.LocalSimilarity {
		return clip.DotScorer{}
	}
	return p
}

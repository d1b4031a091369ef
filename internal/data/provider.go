package data

import (
	"context"
	"fmt"
	"os"
	"strings"

	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/breaker"
	"imagesearch/internal/pkg/provider"
	"imagesearch/internal/pkg/storage"

	"github.com/go-kratos/kratos/v2/log"
)

// imageSource is implemented by every adapter in pkg/provider.
type imageSource interface {
	Name() string
	Fetch(ctx context.Context, keyword string, maxCount int, blocked provider.Blocklist) ([]*provider.Image, error)
}

// providerAdapter exposes a pkg/provider adapter as a biz.Provider.
type providerAdapter struct {
	src imageSource
}

func (a *providerAdapter) Name() string {
	return a.src.Name()
}

func (a *providerAdapter) Fetch(ctx context.Context, keyword string, maxCount int, blocked *biz.BlacklistSnapshot) ([]*biz.CandidateImage, error) {
	images, err := a.src.Fetch(ctx, keyword, maxCount, blocked)
	out := make([]*biz.CandidateImage, 0, len(images))
	for _, img := range images {
		out = append(out, toBizCandidate(img, keyword))
	}
	return out, err
}

func toBizCandidate(img *provider.Image, keyword string) *biz.CandidateImage {
	return &biz.CandidateImage{
		ID:              img.ID,
		ProviderName:    img.Provider,
		SourceURL:       img.SourceURL,
		ImageURL:        img.ImageURL,
		LocalContentRef: img.ContentRef,
		Author:          biz.Author{Name: img.AuthorName, URL: img.AuthorURL},
		Description:     img.Description,
		Keywords:        []string{keyword},
		PHash:           img.PHash,
	}
}

// NewProviders builds the enabled external providers in the order pixabay,
// pexels, unsplash. Providers without an API key are skipped.
func NewProviders(c *conf.Providers, store *storage.Local, sc *conf.Storage, logger log.Logger) ([]biz.Provider, error) {
	helper := log.NewHelper(log.With(logger, "module", "data/provider"))

	type entry struct {
		name  string
		conf  *conf.Provider
		build func(provider.Options) (imageSource, error)
	}
	entries := []entry{
		{provider.PixabayName, c.GetPixabay(), func(o provider.Options) (imageSource, error) { return provider.NewPixabay(o) }},
		{provider.PexelsName, c.GetPexels(), func(o provider.Options) (imageSource, error) { return provider.NewPexels(o) }},
		{provider.UnsplashName, c.GetUnsplash(), func(o provider.Options) (imageSource, error) { return provider.NewUnsplash(o) }},
	}

	var out []biz.Provider
	for _, e := range entries {
		if !e.conf.GetEnabled() {
			continue
		}
		key := apiKey(e.conf, helper)
		if key == "" {
			helper.Warnf("provider %s enabled without an api key, skipping", e.name)
			continue
		}
		opts := provider.Options{
			BaseURL:           e.conf.BaseURL,
			APIKey:            key,
			Timeout:           e.conf.GetTimeout().AsDuration(),
			RequestsPerMinute: e.conf.RequestsPerMinute,
			Breaker:           breaker.New("provider:"+e.name, breaker.DefaultConfig(), logger),
			Store:             store,
			Logger:            logger,
		}
		if sc != nil {
			opts.MaxImageBytes = sc.MaxBytes
		}
		src, err := e.build(opts)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", e.name, err)
		}
		out = append(out, &providerAdapter{src: src})
		helper.Infof("provider %s enabled", e.name)
	}
	return out, nil
}

// apiKey prefers the contents of api_key_file over api_key.
func apiKey(p *conf.Provider, helper *log.Helper) string {
	if p.APIKeyFile != "" {
		b, err := os.ReadFile(p.APIKeyFile)
		if err == nil {
			if k := strings.TrimSpace(string(b)); k != "" {
				return k
			}
		} else {
			helper.Warnf("read api key file %s: %v", p.APIKeyFile, err)
		}
	}
	return strings.TrimSpace(p.APIKey)
}

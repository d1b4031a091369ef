//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init the search application.
func wireApp(*conf.Data, *conf.Search, *conf.Clip, *conf.Providers, *conf.Storage, log.Logger) (*app, func(), error) {
	panic(wire.Build(data.ProviderSet, biz.ProviderSet, newApp))
}

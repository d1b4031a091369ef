package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBlacklistUsecase,
	NewEmbeddingCache,
	NewFetchOrchestrator,
	wire.Bind(new(CandidateResolver), new(*FetchOrchestrator)),
	NewRankingMerger,
	NewSearchUsecase,
)

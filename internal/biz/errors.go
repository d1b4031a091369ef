package biz

import (
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
)

var (
	// ErrNoResults is returned when no keyword could be recognised in a query.
	ErrNoResults = errors.NotFound("NO_RESULTS", "no keywords recognised in query")
	// ErrServiceDegraded is returned when the blacklist could not be loaded
	// for any keyword of a search.
	ErrServiceDegraded = errors.ServiceUnavailable("SERVICE_DEGRADED", "search is temporarily degraded")
	// ErrBlacklistUnavailable fails a single keyword resolution.
	ErrBlacklistUnavailable = errors.ServiceUnavailable("BLACKLIST_UNAVAILABLE", "blacklist could not be loaded")
)

// Internal failures. They are logged and counted, never returned by Search.
var (
	ErrEmbeddingCompute  = stderrors.New("embedding computation failed")
	ErrSimilarityService = stderrors.New("similarity service failed")
	ErrCacheStorage      = stderrors.New("cache storage failed")
)

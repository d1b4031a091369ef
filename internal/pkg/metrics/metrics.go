package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every search metric. Nothing exposes it over HTTP here; an
// embedding service can gather from it.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// EmbeddingCacheRequests counts embedding lookups by result (hit, miss).
	EmbeddingCacheRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_embedding_cache_requests_total",
		Help: "Embedding cache lookups by result",
	}, []string{"result"})

	// EmbeddingComputations counts calls into the model's image embedder.
	EmbeddingComputations = factory.NewCounter(prometheus.CounterOpts{
		Name: "imagesearch_embedding_computations_total",
		Help: "Image embeddings computed by the model service",
	})

	// EmbeddingStoreErrors counts durable store failures by operation.
	EmbeddingStoreErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_embedding_store_errors_total",
		Help: "Embedding store failures by operation",
	}, []string{"op"})

	KeywordCacheRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_keyword_cache_requests_total",
		Help: "Keyword result cache lookups by result",
	}, []string{"result"})

	// ProviderFetches counts provider calls by outcome (ok, partial, error).
	ProviderFetches = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_provider_fetches_total",
		Help: "Provider fetches by provider and outcome",
	}, []string{"provider", "outcome"})

	// ProviderItemsDropped counts hits discarded before becoming candidates.
	ProviderItemsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_provider_items_dropped_total",
		Help: "Provider hits dropped by provider and reason",
	}, []string{"provider", "reason"})

	SimilarityFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "imagesearch_similarity_failures_total",
		Help: "Similarity calls that failed and dropped a keyword",
	})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "imagesearch_circuit_breaker_state",
		Help: "Circuit breaker state by name",
	}, []string{"name"})

	CircuitBreakerRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "imagesearch_circuit_breaker_requests_total",
		Help: "Circuit breaker requests by name and result",
	}, []string{"name", "result"})
)

const (
	ResultHit  = "hit"
	ResultMiss = "miss"

	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"

	DropBlocked  = "blocked"
	DropAIMarker = "ai_marker"
	DropDownload = "download"
	DropPHash    = "phash"
	DropStorage  = "storage"
	DropNoImage  = "no_image"
)

// ABOUTME: Prometheus collectors for ingestion, retrieval and chat routing
// ABOUTME: Collectors live on a private registry exposed through Handler
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service records
type Metrics struct {
	registry *prometheus.Registry

	DocumentsIngested  *prometheus.CounterVec
	ChunksIndexed      prometheus.Counter
	ChunkFailures      *prometheus.CounterVec
	RetrievalDegraded  prometheus.Counter
	RetrievalLatency   prometheus.Histogram
	ChatRequests       *prometheus.CounterVec
	ChatLatency        *prometheus.HistogramVec
	EmbeddingCacheHits *prometheus.CounterVec
	AgentBuilds        *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry with Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		DocumentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "documents_ingested_total",
			Help:      "Uploaded documents by outcome.",
		}, []string{"outcome"}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and stored.",
		}),
		ChunkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "chunk_failures_total",
			Help:      "Chunks skipped during indexing by stage.",
		}, []string{"stage"}),
		RetrievalDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "retrieval_degraded_total",
			Help:      "Retrievals that failed and returned no context.",
		}),
		RetrievalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "baagent",
			Name:      "retrieval_duration_seconds",
			Help:      "Time to embed a query and score a scope.",
			Buckets:   prometheus.DefBuckets,
		}),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "chat_requests_total",
			Help:      "Routed chat requests by agent and outcome.",
		}, []string{"agent", "outcome"}),
		ChatLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "baagent",
			Name:      "chat_duration_seconds",
			Help:      "End to end chat latency by agent.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"agent"}),
		EmbeddingCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "embedding_cache_requests_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
		AgentBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baagent",
			Name:      "agent_builds_total",
			Help:      "Agent constructions by key, including reloads.",
		}, []string{"agent"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DocumentsIngested,
		m.ChunksIndexed,
		m.ChunkFailures,
		m.RetrievalDegraded,
		m.RetrievalLatency,
		m.ChatRequests,
		m.ChatLatency,
		m.EmbeddingCacheHits,
		m.AgentBuilds,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveChat records one routed chat
func (m *Metrics) ObserveChat(agent, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(agent, outcome).Inc()
	m.ChatLatency.WithLabelValues(agent).Observe(elapsed.Seconds())
}

// ObserveRetrieval records one retrieval and whether it degraded
func (m *Metrics) ObserveRetrieval(elapsed time.Duration, degraded bool) {
	if m == nil {
		return
	}
	m.RetrievalLatency.Observe(elapsed.Seconds())
	if degraded {
		m.RetrievalDegraded.Inc()
	}
}

// ObserveIngest records one upload outcome
func (m *Metrics) ObserveIngest(outcome string) {
	if m == nil {
		return
	}
	m.DocumentsIngested.WithLabelValues(outcome).Inc()
}

// ObserveIndexed records chunks stored and chunks that failed to embed
func (m *Metrics) ObserveIndexed(stored, failed int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Add(float64(stored))
	if failed > 0 {
		m.ChunkFailures.WithLabelValues("embed").Add(float64(failed))
	}
}

// ObserveAgentBuild records an agent construction
func (m *Metrics) ObserveAgentBuild(agent string) {
	if m == nil {
		return
	}
	m.AgentBuilds.WithLabelValues(agent).Inc()
}

// ObserveCache records an embedding cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCacheHits.WithLabelValues(result).Inc()
}

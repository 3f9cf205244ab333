package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters and histograms the pipeline stages record
// against. One instance is built at startup; the worker's stage handler
// records StageLatency and StageOutcomes, and nothing in the service
// observes WebhookLatency. There is no global registry.
type Metrics struct {
	StageLatency   *prometheus.HistogramVec
	StageOutcomes  *prometheus.CounterVec
	WebhookLatency *prometheus.HistogramVec
}

// NewMetrics registers the pipeline's instruments against a fresh registry
// and returns both the instruments and an http.Handler serving them.
func NewMetrics() (*Metrics, http.Handler) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		StageLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knowledgeservice",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a single pipeline stage invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		StageOutcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowledgeservice",
			Name:      "stage_outcomes_total",
			Help:      "Count of pipeline stage invocations by outcome.",
		}, []string{"stage", "outcome"}),
		WebhookLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knowledgeservice",
			Name:      "webhook_fanout_duration_seconds",
			Help:      "Duration of a single webhook callback delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// Metrics holds the Prometheus instruments for the relay.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive     prometheus.Gauge
	EnvelopesTotal        *prometheus.CounterVec
	PipelineDuration      prometheus.Histogram
	TranscriptionFailures prometheus.Counter
	StoreFailures         prometheus.Counter
	MergesTotal           *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of open websocket connections.",
		}),
		EnvelopesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ws_envelopes_total",
			Help: "Inbound envelopes processed, by type.",
		}, []string{"type"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audio_pipeline_duration_seconds",
			Help:    "Elapsed time from audio receipt to stored transcription.",
			Buckets: prometheus.DefBuckets,
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcription_failures_total",
			Help: "Audio envelopes that produced no usable transcription.",
		}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "message_store_failures_total",
			Help: "Message store calls that returned an error.",
		}),
		MergesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "session_merges_total",
			Help: "Session merge attempts, by outcome.",
		}, []string{"status"}),
	}
}

// Handler returns a gin handler serving the metrics endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

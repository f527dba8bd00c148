// Package obsmetrics exposes Prometheus counters and histograms for the
// conversion pipeline.
package obsmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdf2md",
			Name:      "provider_requests_total",
			Help:      "Total VLM provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdf2md",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of VLM provider requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdf2md",
			Name:      "pages_processed_total",
			Help:      "Total pages processed by result (success, failed)",
		},
		[]string{"result"},
	)

	pageRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdf2md",
			Name:      "page_retries_total",
			Help:      "Total number of per-page VLM retry attempts",
		},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdf2md",
			Name:      "breaker_events_total",
			Help:      "Circuit breaker events by provider, model and action",
		},
		[]string{"provider", "model", "action"},
	)

	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdf2md",
			Name:      "page_render_encode_duration_seconds",
			Help:      "Duration of rendering and PNG-encoding one page",
			Buckets:   prometheus.DefBuckets,
		},
	)

	conversionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdf2md",
			Name:      "conversions_in_flight",
			Help:      "Number of conversions currently running in this process",
		},
	)
)

// Init registers every collector with the default Prometheus registry. Call
// once at process start.
func Init() {
	prometheus.MustRegister(
		providerRequests,
		providerLatency,
		pagesProcessed,
		pageRetries,
		breakerEvents,
		renderDuration,
		conversionsInFlight,
	)
}

// Handler returns the http.Handler to mount at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, modelName, result string, dur time.Duration) {
	providerRequests.WithLabelValues(provider, modelName, result).Inc()
	providerLatency.WithLabelValues(provider, modelName).Observe(dur.Seconds())
}

func IncPageResult(result string) { pagesProcessed.WithLabelValues(result).Inc() }

func IncPageRetry() { pageRetries.Inc() }

func BreakerOpened(provider, modelName string) {
	breakerEvents.WithLabelValues(provider, modelName, "opened").Inc()
}

func BreakerClosed(provider, modelName string) {
	breakerEvents.WithLabelValues(provider, modelName, "closed").Inc()
}

func ObserveRenderEncode(dur time.Duration) { renderDuration.Observe(dur.Seconds()) }

func ConversionStarted() { conversionsInFlight.Inc() }
func ConversionEnded()   { conversionsInFlight.Dec() }

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupPrometheus(extra ...prometheus.Collector) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	// Add Go module build info, runtime metrics and process collectors.
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promRegistry.MustRegister(extra...)

	return promRegistry
}

// Handler serves the registry and records scrape counts and durations in it.
func Handler(reg *prometheus.Registry) http.Handler {
	scrapes := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_scrapes_total",
		Help: "The total number of metrics endpoint scrapes",
	}, []string{"code"})
	scrapeDuration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metrics_scrape_duration_seconds",
		Help:    "Histogram of metrics endpoint response time in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"code"})

	return promhttp.InstrumentHandlerCounter(
		scrapes,
		promhttp.InstrumentHandlerDuration(
			scrapeDuration,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		),
	)
}

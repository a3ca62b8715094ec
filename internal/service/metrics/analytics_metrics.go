package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalforge",
			Subsystem: "analytics",
			Name:      "latency_seconds",
			Help:      "Latency of analytics service calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalforge",
			Subsystem: "analytics",
			Name:      "errors_total",
			Help:      "Errors by analytics endpoint",
		},
		[]string{"endpoint"},
	)

	AnalyticsFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalforge",
			Subsystem: "analytics",
			Name:      "fallbacks_total",
			Help:      "Remote analytics calls replaced by the local implementation",
		},
		[]string{"collaborator"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, AnalyticsFallbacks)
	})
}

// ObserveCall records the latency of one call and counts it as an error when err is set.
func ObserveCall(endpoint string, start time.Time, err error) {
	AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		AnalyticsErrors.WithLabelValues(endpoint).Inc()
	}
}

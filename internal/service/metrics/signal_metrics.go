package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SignalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradepipe",
			Subsystem: "signals",
			Name:      "latency_seconds",
			Help:      "Latency of signal source fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SignalErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepipe",
			Subsystem: "signals",
			Name:      "errors_total",
			Help:      "Errors by signal source",
		},
		[]string{"source"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(SignalLatency, SignalErrors)
	})
}

package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsInitOnce sync.Once
	sharedMetrics   *monitorMetrics
)

type monitorMetrics struct {
	transitions  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	tickDuration prometheus.Histogram
}

func newMonitorMetrics() *monitorMetrics {
	metricsInitOnce.Do(func() {
		m := &monitorMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "safepay_monitor_transitions_total",
				Help: "Payments moved out of pending, by target status.",
			}, []string{"status"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "safepay_monitor_errors_total",
				Help: "Monitor failures by stage.",
			}, []string{"stage"}),
			tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "safepay_monitor_tick_duration_seconds",
				Help:    "Wall time of one reconciliation sweep.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			}),
		}
		prometheus.MustRegister(m.transitions, m.errors, m.tickDuration)
		sharedMetrics = m
	})
	return sharedMetrics
}

package scanmgr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "silentpayments"
	metricsSubsystem = "scanner"
)

// metrics holds the collectors of one manager.
type metrics struct {
	scanned  prometheus.Counter
	skipped  prometheus.Counter
	matches  prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "transactions_scanned_total",
			Help:      "Total number of transactions scanned",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "transactions_skipped_total",
			Help:      "Total number of transactions skipped as already seen",
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "outputs_found_total",
			Help:      "Total number of outputs detected as paying the address",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "transaction_scan_duration_seconds",
			Help:      "Time taken to scan one transaction",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
}

// register adds every collector to reg.
func (m *metrics) register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.scanned, m.skipped, m.matches, m.duration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *metrics) observeScan(start time.Time, matches int) {
	m.scanned.Inc()
	m.matches.Add(float64(matches))
	m.duration.Observe(time.Since(start).Seconds())
}

package bot

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "bot"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of completed cycles.
	Cycles metrics.Counter
	// Number of cycles that ended with an error.
	Errors metrics.Counter
	// Number of submitted transactions.
	Submitted metrics.Counter

	// Orders matched by the last transaction.
	MatchedOrders metrics.Gauge
	// Pool deposits and withdrawal requests of the last transaction.
	Deposits           metrics.Gauge
	WithdrawalRequests metrics.Gauge

	// Balances in whole units, as of the last cycle.
	CkbBalance metrics.Gauge
	UdtBalance metrics.Gauge

	// Fee paid by the last transaction, in shannons.
	Fee metrics.Gauge

	// Time spent building a candidate.
	BuildSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	counter := func(name, help string) metrics.Counter {
		return prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      name,
			Help:      help,
		}, labels).With(labelsAndValues...)
	}
	gauge := func(name, help string) metrics.Gauge {
		return prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      name,
			Help:      help,
		}, labels).With(labelsAndValues...)
	}
	return &Metrics{
		Cycles:             counter("cycles", "Number of completed cycles."),
		Errors:             counter("errors", "Number of cycles that ended with an error."),
		Submitted:          counter("submitted_txs", "Number of submitted transactions."),
		MatchedOrders:      gauge("matched_orders", "Orders matched by the last transaction."),
		Deposits:           gauge("deposits", "Pool deposits made by the last transaction."),
		WithdrawalRequests: gauge("withdrawal_requests", "Pool withdrawal requests of the last transaction."),
		CkbBalance:         gauge("ckb_balance", "CKB balance as of the last cycle."),
		UdtBalance:         gauge("ickb_balance", "iCKB balance as of the last cycle."),
		Fee:                gauge("fee_shannons", "Fee paid by the last transaction."),
		BuildSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "build_seconds",
			Help:      "Time spent building a candidate transaction.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 2, 12),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Cycles:             discard.NewCounter(),
		Errors:             discard.NewCounter(),
		Submitted:          discard.NewCounter(),
		MatchedOrders:      discard.NewGauge(),
		Deposits:           discard.NewGauge(),
		WithdrawalRequests: discard.NewGauge(),
		CkbBalance:         discard.NewGauge(),
		UdtBalance:         discard.NewGauge(),
		Fee:                discard.NewGauge(),
		BuildSeconds:       discard.NewHistogram(),
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess      = "success"
	resultFailure      = "failure"
	ResultInsufficient = "insufficient_funds"
	ResultOK           = resultSuccess
	ResultError        = "error"

	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// LedgerMetrics tracks balance mutations and report artifacts.
type LedgerMetrics struct {
	mutations      *prometheus.CounterVec
	coins          *prometheus.CounterVec
	casRetries     prometheus.Counter
	reportDuration *prometheus.HistogramVec
	reportBytes    prometheus.Histogram
	reportsDeleted *prometheus.CounterVec
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Balance mutations by direction and result.",
		}, []string{"direction", "result"}),
		coins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_total",
			Help:      "Coins moved by committed mutations, by direction and category.",
		}, []string{"direction", "type"}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "balance_cas_retries_total",
			Help:      "Balance updates retried after a concurrent change.",
		}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "generation_duration_seconds",
			Help:      "Time to render, store and register a report.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		reportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "artifact_bytes",
			Help:      "Size of generated report artifacts.",
			Buckets:   prometheus.ExponentialBuckets(2048, 2, 12),
		}),
		reportsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "deleted_total",
			Help:      "Reports removed, by trigger.",
		}, []string{"trigger"}),
	}
	reg.MustRegister(m.mutations, m.coins, m.casRetries, m.reportDuration, m.reportBytes, m.reportsDeleted)
	return m
}

// ObserveMutation records one applyDelta outcome. coins is counted only on success.
func (m *LedgerMetrics) ObserveMutation(direction, result, category string, coins int64) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(direction, result).Inc()
	if result == ResultOK && coins > 0 {
		m.coins.WithLabelValues(direction, normalizeLabel(category)).Add(float64(coins))
	}
}

func (m *LedgerMetrics) IncCASRetry() {
	if m == nil || m.casRetries == nil {
		return
	}
	m.casRetries.Inc()
}

func (m *LedgerMetrics) ObserveReport(result string, took time.Duration, size int64) {
	if m == nil || m.reportDuration == nil {
		return
	}
	m.reportDuration.WithLabelValues(result).Observe(took.Seconds())
	if result == ResultOK {
		m.reportBytes.Observe(float64(size))
	}
}

func (m *LedgerMetrics) IncReportDeleted(trigger string) {
	if m == nil || m.reportsDeleted == nil {
		return
	}
	m.reportsDeleted.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// Package metrics exposes Prometheus collectors for the airdrop
// application. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airdrop"

// Metrics holds every collector the application updates.
type Metrics struct {
	requests        *prometheus.CounterVec
	amountIssued    prometheus.Counter
	totalIssuance   prometheus.Gauge
	cooldownRecords prometheus.Gauge
	accounts        prometheus.Gauge
	height          prometheus.Gauge
	blockDuration   prometheus.Histogram
	checkTx         *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Airdrop requests in committed blocks, by result",
		}, []string{"result"}),
		amountIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_issued_total",
			Help:      "Total amount minted by airdrops in committed blocks",
		}),
		totalIssuance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_issuance",
			Help:      "Committed total issuance of the native currency",
		}),
		cooldownRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_records",
			Help:      "Accounts with a recorded airdrop height",
		}),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accounts",
			Help:      "Existing currency accounts",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "committed_height",
			Help:      "Height of the last committed block",
		}),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_execution_seconds",
			Help:      "Time spent executing a finalized block",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		checkTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checktx_total",
			Help:      "Mempool admission decisions, by result code",
		}, []string{"code"}),
	}
	reg.MustRegister(
		m.requests,
		m.amountIssued,
		m.totalIssuance,
		m.cooldownRecords,
		m.accounts,
		m.height,
		m.blockDuration,
		m.checkTx,
	)
	return m
}

// Airdrop records one executed airdrop request. result is "ok" or the
// failure name.
func (m *Metrics) Airdrop(result string, amount uint64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.amountIssued.Add(float64(amount))
	}
}

// Result labels for Airdrop.
const (
	ResultOK               = "ok"
	ResultDelayNotFinished = "delay_not_finished"
	ResultSomethingWrong   = "something_went_wrong"
	ResultRejected         = "rejected"
)

// CheckTx records a mempool decision.
func (m *Metrics) CheckTx(code string) {
	if m == nil {
		return
	}
	m.checkTx.WithLabelValues(code).Inc()
}

// BlockExecuted records how long a block took.
func (m *Metrics) BlockExecuted(d time.Duration) {
	if m == nil {
		return
	}
	m.blockDuration.Observe(d.Seconds())
}

// Committed records the state after a commit.
func (m *Metrics) Committed(height uint64, issuance uint64, cooldowns, accounts int) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
	m.totalIssuance.Set(float64(issuance))
	m.cooldownRecords.Set(float64(cooldowns))
	m.accounts.Set(float64(accounts))
}

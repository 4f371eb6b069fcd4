package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	OrdersTotal      *prometheus.CounterVec
	OrderDuration    *prometheus.HistogramVec
	NFTActionsTotal  *prometheus.CounterVec
	WithdrawalsTotal *prometheus.CounterVec
	TxRetriesTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_orders_total",
				Help: "Trade orders by side and outcome.",
			},
			[]string{"side", "outcome"},
		),
		OrderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trade_order_duration_seconds",
				Help:    "End-to-end order execution latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"side"},
		),
		NFTActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nft_actions_total",
				Help: "NFT custody actions by type and outcome.",
			},
			[]string{"action", "outcome"},
		),
		WithdrawalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nft_withdrawals_total",
				Help: "Processed NFT withdrawal requests by outcome.",
			},
			[]string{"outcome"},
		),
		TxRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "settlement_tx_retries_total",
				Help: "Settlement transactions retried after a conflict.",
			},
		),
	}
}

func (m *Metrics) Register(registry *prometheus.Registry) {
	registry.MustRegister(m.OrdersTotal, m.OrderDuration, m.NFTActionsTotal, m.WithdrawalsTotal, m.TxRetriesTotal)
}

func (m *Metrics) observeOrder(side, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(side, outcome).Inc()
	m.OrderDuration.WithLabelValues(side).Observe(time.Since(start).Seconds())
}

func (m *Metrics) incNFTAction(action, outcome string) {
	if m == nil {
		return
	}
	m.NFTActionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) incWithdrawal(outcome string) {
	if m == nil {
		return
	}
	m.WithdrawalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incTxRetry() {
	if m == nil {
		return
	}
	m.TxRetriesTotal.Inc()
}

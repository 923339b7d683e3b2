package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_total",
		Help: "Total number of successful purchases",
	})

	PurchaseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_failures_total",
		Help: "Total number of failed purchases",
	}, []string{"reason"})

	OrdersReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_released_total",
		Help: "Total number of escrow holds released to sellers",
	})

	ReleaseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_failures_total",
		Help: "Total number of release attempts that errored",
	})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total number of admin refunds",
	})

	RefundFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_failures_total",
		Help: "Total number of rejected refund attempts",
	}, []string{"reason"})

	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdrawals_total",
		Help: "Total number of paid withdrawals",
	})

	WithdrawalFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "withdrawal_failures_total",
		Help: "Total number of rejected withdrawals",
	}, []string{"reason"})

	TopUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_topups_total",
		Help: "Total number of wallet top-ups",
	})

	ReleaseSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_sweep_duration_seconds",
		Help:    "Duration of one escrow release sweep",
		Buckets: prometheus.DefBuckets,
	})

	ReleaseSweepBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_sweep_batch_size",
		Help:    "Number of matured orders picked up per sweep",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sessions_opened_total",
		Help: "Total number of terminal sessions opened",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_sessions_active",
		Help: "Number of live terminal sessions",
	})

	CatalogLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_catalog_loads_total",
		Help: "Total number of catalog snapshot loads",
	}, []string{"outcome"})

	CartRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cart_rejections_total",
		Help: "Total number of rejected cart mutations",
	}, []string{"reason"})

	ShippingLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_shipping_lookups_total",
		Help: "Total number of shipping cost computations",
	}, []string{"status"})

	PromoCodeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_promo_code_attempts_total",
		Help: "Total number of manually entered promotion codes",
	}, []string{"result"})

	PromotionsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_promotions_applied_total",
		Help: "Total number of committed sales carrying a promotion",
	}, []string{"type"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Total number of checkout attempts by outcome",
	}, []string{"outcome"})

	CheckoutPhaseLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_checkout_phase_latency_seconds",
		Help:    "Latency of each checkout commit phase",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	StockDebitsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_debits_failed_total",
		Help: "Total number of stock debits that failed after the order was written",
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

package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/stakeforge/nftstake/internal/journal"
)

type metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	claimed  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftstake",
			Name:      "events_total",
			Help:      "Committed ledger mutations by kind.",
		}, []string{"kind"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftstake",
			Name:      "claimed_tokens_total",
			Help:      "Whole tokens claimed and restaked, by strategy.",
		}, []string{"strategy"}),
	}
	m.registry.MustRegister(m.events, m.claimed)
	return m
}

// watch registers gauges that read live app state on every scrape.
func (m *metrics) watch(a *App) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "nftstake",
			Name:      "current_month",
			Help:      "Month index since ledger start.",
		}, func() float64 { return float64(a.clock.CurrentMonth()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "nftstake",
			Name:      "live_nfts",
			Help:      "Positions not yet destroyed.",
		}, func() float64 { return float64(a.registry.LiveCount()) }),
	)
	for _, d := range a.wrapper.Distributors() {
		pool := d.Pool()
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "nftstake",
			Name:        "pool_balance_tokens",
			Help:        "Reward pool balance in whole tokens.",
			ConstLabels: prometheus.Labels{"strategy": d.Name()},
		}, func() float64 {
			return wholeTokens(a.token.BalanceOf(pool).Dec(), a.Decimals())
		}))
	}
}

// observe never blocks; it runs from the journal callback.
func (m *metrics) observe(ev journal.Event, decimals uint8) {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == journal.KindClaim && ev.Strategy != "" {
		m.claimed.WithLabelValues(ev.Strategy).Add(wholeTokens(ev.Amount, decimals))
	}
}

func wholeTokens(baseUnits string, decimals uint8) float64 {
	d, err := decimal.NewFromString(baseUnits)
	if err != nil {
		return 0
	}
	return d.Shift(-int32(decimals)).InexactFloat64()
}

// MetricsHandler serves the app's metrics in the Prometheus text format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{})
}

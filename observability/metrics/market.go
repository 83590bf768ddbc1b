package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics aggregates the telemetry exposed by the marketplace engine.
type MarketMetrics struct {
	listingsCreated *prometheus.CounterVec
	ordersCreated   *prometheus.CounterVec
	ordersSettled   *prometheus.CounterVec
	bidsPlaced      prometheus.Counter
	fundsWithdrawn  *prometheus.CounterVec
	escrowHeld      prometheus.Gauge
	accumulatedFees prometheus.Gauge
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide marketplace metrics, registering the
// collectors on first use.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			listingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_listings_created_total",
				Help: "Count of listings created by kind.",
			}, []string{"kind"}),
			ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_orders_created_total",
				Help: "Count of orders created by origin (purchase or bid).",
			}, []string{"origin"}),
			ordersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_orders_settled_total",
				Help: "Count of orders reaching a terminal state by outcome.",
			}, []string{"outcome"}),
			bidsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_bids_placed_total",
				Help: "Count of bids placed against auction listings.",
			}),
			fundsWithdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_withdrawals_total",
				Help: "Count of successful withdrawals by kind.",
			}, []string{"kind"}),
			escrowHeld: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_order_escrow_held",
				Help: "Total order escrow currently held by the marketplace vault.",
			}),
			accumulatedFees: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_accumulated_fees",
				Help: "Delivery fees accumulated and not yet withdrawn.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.listingsCreated,
			marketRegistry.ordersCreated,
			marketRegistry.ordersSettled,
			marketRegistry.bidsPlaced,
			marketRegistry.fundsWithdrawn,
			marketRegistry.escrowHeld,
			marketRegistry.accumulatedFees,
		)
	})
	return marketRegistry
}

// RecordListingCreated increments the listing counter for the kind label.
func (m *MarketMetrics) RecordListingCreated(kind string) {
	if m == nil {
		return
	}
	m.listingsCreated.WithLabelValues(kind).Inc()
}

// RecordOrderCreated increments the order counter for the origin label.
func (m *MarketMetrics) RecordOrderCreated(origin string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(origin).Inc()
}

// RecordOrderSettled increments the settlement counter for the outcome label.
func (m *MarketMetrics) RecordOrderSettled(outcome string) {
	if m == nil {
		return
	}
	m.ordersSettled.WithLabelValues(outcome).Inc()
}

// RecordBidPlaced increments the bid counter.
func (m *MarketMetrics) RecordBidPlaced() {
	if m == nil {
		return
	}
	m.bidsPlaced.Inc()
}

// RecordWithdrawal increments the withdrawal counter for the kind label.
func (m *MarketMetrics) RecordWithdrawal(kind string) {
	if m == nil {
		return
	}
	m.fundsWithdrawn.WithLabelValues(kind).Inc()
}

// AddEscrowHeld adjusts the escrow gauge by delta (negative to release).
func (m *MarketMetrics) AddEscrowHeld(delta float64) {
	if m == nil {
		return
	}
	m.escrowHeld.Add(delta)
}

// AddAccumulatedFees adjusts the fee gauge by delta (negative on withdrawal).
func (m *MarketMetrics) AddAccumulatedFees(delta float64) {
	if m == nil {
		return
	}
	m.accumulatedFees.Add(delta)
}

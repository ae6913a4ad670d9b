// Package metrics exposes Prometheus metrics for the trading session:
//
//   - gridbot_orders_placed_total{side}    – orders submitted to the gateway
//   - gridbot_orders_canceled_total        – orders canceled
//   - gridbot_order_rejections_total{reason} – admission and gateway rejections by reason
//   - gridbot_fills_total                  – executions applied to the engine
//   - gridbot_equity                       – current equity snapshot
//   - gridbot_drawdown                     – fractional drawdown from the watermark
//   - gridbot_realized_pnl                 – accumulated round-trip profit
//   - gridbot_active_orders                – orders the engine believes open
//   - gridbot_open_positions               – open grid positions
//   - gridbot_risk_state{state}            – 0/1 per risk state for simple dashboards
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rxtech-lab/gridbot/internal/types"
)

type Metrics struct {
	registry *prometheus.Registry

	OrdersPlaced    *prometheus.CounterVec
	OrdersCanceled  prometheus.Counter
	OrderRejections *prometheus.CounterVec
	Fills           prometheus.Counter

	equity        prometheus.Gauge
	drawdown      prometheus.Gauge
	realizedPnL   prometheus.Gauge
	activeOrders  prometheus.Gauge
	openPositions prometheus.Gauge
	riskState     *prometheus.GaugeVec
}

// New creates a metrics set on its own registry, so parallel sessions in
// tests never collide on the default registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridbot_orders_placed_total",
				Help: "Orders submitted to the gateway",
			},
			[]string{"side"},
		),
		OrdersCanceled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gridbot_orders_canceled_total",
				Help: "Orders canceled",
			},
		),
		OrderRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridbot_order_rejections_total",
				Help: "Orders rejected at admission or by the gateway",
			},
			[]string{"reason"},
		),
		Fills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gridbot_fills_total",
				Help: "Executions applied to the engine",
			},
		),
		equity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridbot_equity",
				Help: "Current equity in quote currency",
			},
		),
		drawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridbot_drawdown",
				Help: "Fractional drawdown from the equity high-water mark",
			},
		),
		realizedPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridbot_realized_pnl",
				Help: "Accumulated realized profit",
			},
		),
		activeOrders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridbot_active_orders",
				Help: "Orders the engine believes open",
			},
		),
		openPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridbot_open_positions",
				Help: "Open grid positions",
			},
		),
		riskState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridbot_risk_state",
				Help: "Risk guard state as 0/1 labeled series",
			},
			[]string{"state"},
		),
	}

	m.registry.MustRegister(
		m.OrdersPlaced,
		m.OrdersCanceled,
		m.OrderRejections,
		m.Fills,
		m.equity,
		m.drawdown,
		m.realizedPnL,
		m.activeOrders,
		m.openPositions,
		m.riskState,
	)

	return m
}

// ObserveStatus updates every gauge from an engine status snapshot.
func (m *Metrics) ObserveStatus(status types.EngineStatus) {
	m.equity.Set(status.Equity)
	m.drawdown.Set(status.Drawdown)
	m.realizedPnL.Set(status.RealizedPnL)
	m.activeOrders.Set(float64(status.ActiveOrders))
	m.openPositions.Set(float64(status.Positions))

	for _, state := range []types.RiskState{types.RiskStateNormal, types.RiskStatePaused, types.RiskStateHalted} {
		value := 0.0
		if state == status.RiskState {
			value = 1.0
		}

		m.riskState.WithLabelValues(string(state)).Set(value)
	}
}

// Handler serves this metrics set in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

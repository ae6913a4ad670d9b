package types

// RiskState is the risk guard's decision for the current tick.
type RiskState string

const (
	// RiskStateNormal allows the engine to place new orders.
	RiskStateNormal RiskState = "NORMAL"
	// RiskStatePaused blocks new orders but leaves the book untouched.
	RiskStatePaused RiskState = "PAUSED"
	// RiskStateHalted forces liquidation of all positions and orders.
	RiskStateHalted RiskState = "HALTED"
)

// EngineStatus is a read-only snapshot of the engine state for reporting.
// It is produced by Status() and never aliases engine internals.
type EngineStatus struct {
	// Cash is the tradable quote currency balance.
	Cash float64 `yaml:"cash" json:"cash"`
	// BaseHoldings is the held base asset quantity.
	BaseHoldings float64 `yaml:"base_holdings" json:"base_holdings"`
	// Equity is cash + base holdings valued at the last observed price.
	Equity float64 `yaml:"equity" json:"equity"`
	// RealizedPnL is the accumulated profit from completed round trips.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	// TotalPnL matches RealizedPnL today; kept separate for when
	// unrealized P&L reporting is added.
	TotalPnL float64 `yaml:"total_pnl" json:"total_pnl"`
	// MaxEquity is the monotonically non-decreasing equity high-water mark.
	MaxEquity float64 `yaml:"max_equity" json:"max_equity"`
	// Drawdown is the fractional decline of equity from MaxEquity.
	Drawdown float64 `yaml:"drawdown" json:"drawdown"`
	// RiskState is the risk guard state computed on the last step.
	RiskState RiskState `yaml:"risk_state" json:"risk_state"`
	// ActiveOrders is the number of live orders in the book.
	ActiveOrders int `yaml:"active_orders" json:"active_orders"`
	// Positions is the number of open grid positions.
	Positions int `yaml:"positions" json:"positions"`
	// LastPrice is the most recent price observed by the engine.
	LastPrice float64 `yaml:"last_price" json:"last_price"`
}

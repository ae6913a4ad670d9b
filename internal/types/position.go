package types

import (
	"github.com/moznion/go-optional"
)

// Position is the inventory acquired at a single grid level. It is created
// only by a BUY fill and deleted by the matching take-profit SELL fill.
// At most one Position exists per LevelKey at any time.
type Position struct {
	LevelKey        LevelKey `yaml:"level_key" json:"level_key"`
	Quantity        float64  `yaml:"quantity" json:"quantity"`
	BuyPrice        float64  `yaml:"buy_price" json:"buy_price"`
	TakeProfitPrice float64  `yaml:"take_profit_price" json:"take_profit_price"`
	// TakeProfitOrderID is the id of the live take-profit sell order for
	// this position. None while the order has not been armed yet, or after
	// the exchange rejected or dropped it; the engine re-arms such
	// positions on the next step.
	TakeProfitOrderID optional.Option[string] `yaml:"take_profit_order_id" json:"take_profit_order_id"`
}

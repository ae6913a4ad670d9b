// Package gateway defines the execution boundary between the engine and
// an exchange. The engine never imports this package; drivers execute
// engine action batches through a Gateway and feed the results back.
package gateway

import (
	"context"
	"time"

	"github.com/rxtech-lab/gridbot/internal/types"
)

// OpenOrder is an order the exchange reports as open. The ID is the
// engine-assigned order id, carried to the exchange as the client order
// id, so reconciliation compares like with like.
type OpenOrder struct {
	ID       string     `json:"id"`
	Symbol   string     `json:"symbol"`
	Side     types.Side `json:"side"`
	Price    float64    `json:"price"`
	Quantity float64    `json:"quantity"`
}

// Fill is an execution reported by the exchange. TradeID identifies the
// execution itself so drivers can deduplicate across polls.
type Fill struct {
	TradeID  string    `json:"trade_id"`
	OrderID  string    `json:"order_id"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Time     time.Time `json:"time"`
}

// Gateway is the execution surface the drivers run engine batches
// through. All blocking I/O lives behind this interface.
type Gateway interface {
	// Ticker returns the current market snapshot for a symbol.
	Ticker(ctx context.Context, symbol string) (types.Tick, error)
	// PlaceOrder submits an order using its engine id as the client
	// order id.
	PlaceOrder(ctx context.Context, order types.Order) error
	// CancelOrder cancels an order by its engine id.
	CancelOrder(ctx context.Context, symbol, orderID string) error
	// CancelAllOrders cancels every open order for the symbol.
	CancelAllOrders(ctx context.Context, symbol string) error
	// OpenOrders lists the orders the exchange currently reports open.
	OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	// RecentFills returns executions since the previous call.
	RecentFills(ctx context.Context, symbol string) ([]Fill, error)
}

package gateway

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// PaperGateway simulates an exchange against historical candles. Limit
// orders rest until a candle's range crosses their price; market orders
// execute against the current candle immediately. Fills queue up until
// the driver drains them through RecentFills, mirroring how a live
// exchange reports executions asynchronously.
type PaperGateway struct {
	mu       sync.Mutex
	candle   types.Candle
	hasData  bool
	resting  []types.Order
	fills    []Fill
	tradeSeq int
}

func NewPaperGateway() *PaperGateway {
	return &PaperGateway{}
}

// SetCandle advances the simulation to the next candle and matches
// resting orders against its range.
func (p *PaperGateway) SetCandle(candle types.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.candle = candle
	p.hasData = true

	remaining := p.resting[:0]

	for _, order := range p.resting {
		if p.crosses(order) {
			p.fill(order, order.Price)
		} else {
			remaining = append(remaining, order)
		}
	}

	p.resting = remaining
}

// crosses reports whether the current candle's range reaches the order's
// limit price.
func (p *PaperGateway) crosses(order types.Order) bool {
	if order.Side == types.SideBuy {
		return p.candle.Low <= order.Price
	}

	return p.candle.High >= order.Price
}

func (p *PaperGateway) fill(order types.Order, price float64) {
	p.tradeSeq++
	p.fills = append(p.fills, Fill{
		TradeID:  fmt.Sprintf("paper-%d", p.tradeSeq),
		OrderID:  order.ID,
		Price:    price,
		Quantity: order.Quantity,
		Time:     p.candle.Time,
	})
}

// Ticker implements Gateway.
func (p *PaperGateway) Ticker(_ context.Context, symbol string) (types.Tick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasData {
		return types.Tick{}, errors.New(errors.ErrCodeMarketDataFetchFailed, "no candle loaded into paper gateway")
	}

	return p.candle.Tick(symbol), nil
}

// PlaceOrder implements Gateway. Market orders execute at the candle
// close; limit orders already inside the candle range execute at their
// limit price, otherwise they rest.
func (p *PaperGateway) PlaceOrder(_ context.Context, order types.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasData {
		return errors.New(errors.ErrCodeOrderPlacementFailed, "no candle loaded into paper gateway")
	}

	if order.OrderType == types.OrderTypeMarket {
		p.fill(order, p.candle.Close)

		return nil
	}

	if p.crosses(order) {
		p.fill(order, order.Price)

		return nil
	}

	p.resting = append(p.resting, order)

	return nil
}

// CancelOrder implements Gateway. Canceling an order the simulator no
// longer holds is not an error, matching exchange semantics for already
// filled or expired orders.
func (p *PaperGateway) CancelOrder(_ context.Context, _, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, order := range p.resting {
		if order.ID == orderID {
			p.resting = slices.Delete(p.resting, i, i+1)

			return nil
		}
	}

	return nil
}

// CancelAllOrders implements Gateway.
func (p *PaperGateway) CancelAllOrders(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resting = nil

	return nil
}

// OpenOrders implements Gateway.
func (p *PaperGateway) OpenOrders(_ context.Context, _ string) ([]OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	open := make([]OpenOrder, 0, len(p.resting))
	for _, order := range p.resting {
		open = append(open, OpenOrder{
			ID:       order.ID,
			Symbol:   order.Symbol,
			Side:     order.Side,
			Price:    order.Price,
			Quantity: order.Quantity,
		})
	}

	return open, nil
}

// RecentFills implements Gateway. Each fill is reported exactly once.
func (p *PaperGateway) RecentFills(_ context.Context, _ string) ([]Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fills := p.fills
	p.fills = nil

	return fills, nil
}

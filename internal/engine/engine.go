// Package engine implements the grid trading decision core. The engine
// holds the order and position book, account state, and risk guard; it
// consumes ticks and fills and emits action batches for the execution
// layer. It performs no I/O of its own.
package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// Engine is the single-writer grid trading core. All exported methods
// serialize on one mutex: Step and OnFill may be called from different
// goroutines but never run concurrently.
type Engine struct {
	mu sync.Mutex

	cfg  config.Config
	log  *logger.Logger
	vol  *volatility
	book *book
	risk *riskGuard

	cash         float64
	baseHoldings float64
	realizedPnL  float64
	maxEquity    float64
	lastPrice    float64
}

// New constructs an engine from a validated config. The config is
// re-validated here so a hand-built Config cannot bypass the invariants.
func New(cfg config.Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Engine{
		cfg:          cfg,
		log:          log,
		vol:          newVolatility(cfg.Grid),
		book:         newBook(),
		risk:         newRiskGuard(cfg.Risk.DDPauseFrac, cfg.Risk.KillSwitchFrac),
		cash:         cfg.Capital.QuoteStart,
		baseHoldings: cfg.Capital.BaseStart,
		maxEquity:    cfg.Capital.QuoteStart,
	}, nil
}

// Step processes one market tick and returns the actions the driver
// should execute. It never touches the network itself.
func (e *Engine) Step(tick types.Tick) (types.ActionBatch, error) {
	if tick.Price <= 0 || tick.Bid <= 0 || tick.Ask <= 0 {
		return types.ActionBatch{}, errors.Newf(errors.ErrCodeInvalidTick,
			"tick must have positive price/bid/ask, got %f/%f/%f", tick.Price, tick.Bid, tick.Ask)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastPrice = tick.Price
	e.vol.Observe(tick.Price)

	equity := e.equityAt(tick.Price)
	drawdown := e.drawdown(equity)

	state, haltTransition := e.risk.evaluate(drawdown)

	if haltTransition {
		e.log.Error("kill switch tripped, liquidating",
			zap.Float64("drawdown", drawdown),
			zap.Float64("equity", equity),
		)

		return e.liquidationBatch(tick.Symbol, drawdown), nil
	}

	if state == types.RiskStateHalted {
		return types.ActionBatch{
			Messages: []string{fmt.Sprintf("halted: drawdown %.4f exceeds kill switch %.4f", drawdown, e.cfg.Risk.KillSwitchFrac)},
		}, nil
	}

	if state == types.RiskStatePaused {
		e.log.Warn("drawdown pause active",
			zap.Float64("drawdown", drawdown),
			zap.Float64("equity", equity),
		)

		return types.ActionBatch{
			Messages: []string{fmt.Sprintf("paused: drawdown %.4f exceeds pause threshold %.4f", drawdown, e.cfg.Risk.DDPauseFrac)},
		}, nil
	}

	if equity > e.maxEquity {
		e.maxEquity = equity
	}

	var batch types.ActionBatch

	e.armTakeProfits(tick.Symbol, &batch)
	e.placeGridBuys(tick, &batch)

	return batch, nil
}

// armTakeProfits emits a sell order for every position whose take-profit
// order is not live: freshly filled buys, rejected placements, and orders
// that vanished during reconciliation all re-arm through this one path.
func (e *Engine) armTakeProfits(symbol string, batch *types.ActionBatch) {
	for _, pos := range e.book.sortedPositions() {
		if pos.TakeProfitOrderID.IsSome() {
			continue
		}

		order := types.Order{
			ID:        uuid.New().String(),
			Symbol:    symbol,
			Side:      types.SideSell,
			OrderType: types.OrderTypeLimit,
			Price:     pos.TakeProfitPrice,
			Quantity:  pos.Quantity,
			Status:    types.OrderStatusNew,
			LevelKey:  pos.LevelKey,
		}

		pos.TakeProfitOrderID = optional.Some(order.ID)
		e.book.addOrder(order)
		batch.PlaceOrders = append(batch.PlaceOrders, order)
	}
}

// placeGridBuys generates the buy ladder below the current price and
// appends every order that passes admission control.
func (e *Engine) placeGridBuys(tick types.Tick, batch *types.ActionBatch) {
	step := e.vol.StepSize(tick.Price)
	levels := targetLevels(tick.Price, step, e.cfg.Grid.LevelsBelow, e.cfg.Grid.LevelsAbove)

	for i, level := range levels {
		if level >= tick.Price {
			// Sell-side levels carry no standing orders; sells are armed
			// per position as take profits.
			continue
		}

		orderPrice := normalizePrice(level*(1-e.cfg.Grid.MakerBufferFrac), e.cfg.Grid.TickSize)
		if orderPrice <= 0 {
			continue
		}

		size := sizeForLevel(e.cfg.Grid, e.cfg.Capital, i, tick.Price, e.cash, e.baseHoldings)
		qty := normalizeQty(size/orderPrice, e.cfg.Grid.QtyStep)
		notional := qty * orderPrice

		ok, reason := e.canPlaceBuy(orderPrice, notional)
		if !ok {
			e.log.Debug("buy rejected",
				zap.Float64("level", level),
				zap.String("reason", reason.Reason),
				zap.String("message", reason.Message),
			)

			batch.Rejections = append(batch.Rejections, reason)

			continue
		}

		order := types.Order{
			ID:        uuid.New().String(),
			Symbol:    tick.Symbol,
			Side:      types.SideBuy,
			OrderType: types.OrderTypeLimit,
			Price:     orderPrice,
			Quantity:  qty,
			Status:    types.OrderStatusNew,
			LevelKey:  levelKeyFor(orderPrice, e.cfg.Grid.TickSize),
		}

		e.book.addOrder(order)
		batch.PlaceOrders = append(batch.PlaceOrders, order)
	}
}

// liquidationBatch is the one-shot exit emitted on the transition into
// Halted: cancel every active order and market-sell every position. The
// market sell is registered as the position's take-profit order so its
// fill resolves through the normal sell path.
func (e *Engine) liquidationBatch(symbol string, drawdown float64) types.ActionBatch {
	batch := types.ActionBatch{
		CancelOrders: e.book.orderIDs(),
		Messages: []string{fmt.Sprintf("kill switch: drawdown %.4f exceeds %.4f, liquidating all positions",
			drawdown, e.cfg.Risk.KillSwitchFrac)},
	}

	for _, id := range batch.CancelOrders {
		e.book.removeOrder(id)
	}

	for _, pos := range e.book.sortedPositions() {
		order := types.Order{
			ID:        uuid.New().String(),
			Symbol:    symbol,
			Side:      types.SideSell,
			OrderType: types.OrderTypeMarket,
			Quantity:  pos.Quantity,
			Status:    types.OrderStatusNew,
			LevelKey:  pos.LevelKey,
		}

		pos.TakeProfitOrderID = optional.Some(order.ID)
		e.book.addOrder(order)
		batch.PlaceOrders = append(batch.PlaceOrders, order)
	}

	return batch
}

// OnFill applies an execution report. Unknown order ids are logged and
// ignored so replayed or stale reports can never corrupt the book.
func (e *Engine) OnFill(orderID string, fillPrice, fillQty float64) error {
	if fillPrice <= 0 || fillQty <= 0 {
		return errors.Newf(errors.ErrCodeInvalidFill,
			"fill for order %s must have positive price and quantity, got %f/%f", orderID, fillPrice, fillQty)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.book.removeOrder(orderID)
	if !ok {
		e.log.Warn("fill for unknown order ignored", zap.String("orderId", orderID))

		return nil
	}

	if order.Side == types.SideBuy {
		e.applyBuyFill(order, fillPrice, fillQty)

		return nil
	}

	pos, ok := e.book.positionByTakeProfitOrder(orderID)
	if !ok {
		e.log.Warn("sell fill without matching position",
			zap.String("orderId", orderID),
			zap.Int64("levelKey", int64(order.LevelKey)),
		)

		return nil
	}

	e.applySellFill(pos, fillPrice, fillQty)

	return nil
}

// OnOrderRejected removes an order the gateway failed to place. A
// rejected take-profit clears the owning position's order id so the next
// step re-arms it.
func (e *Engine) OnOrderRejected(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.book.removeOrder(orderID)
	if !ok {
		return
	}

	e.log.Warn("order placement rejected by gateway",
		zap.String("orderId", orderID),
		zap.String("side", string(order.Side)),
	)

	if pos, ok := e.book.positionByTakeProfitOrder(orderID); ok {
		pos.TakeProfitOrderID = optional.None[string]()
	}
}

// Reconcile drops locally-active orders the exchange no longer reports.
// Vanished orders are treated as canceled, never as fills: no P&L is
// realized here. A vanished take-profit clears the position's order id so
// the next step re-arms it.
func (e *Engine) Reconcile(exchangeOpenIDs map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.book.orderIDs() {
		if _, open := exchangeOpenIDs[id]; open {
			continue
		}

		order, _ := e.book.removeOrder(id)
		e.log.Info("dropping order no longer open on exchange",
			zap.String("orderId", id),
			zap.String("side", string(order.Side)),
		)

		if pos, ok := e.book.positionByTakeProfitOrder(id); ok {
			pos.TakeProfitOrderID = optional.None[string]()
		}
	}
}

// Status returns a read-only view of the engine state. It is safe to call
// from any goroutine and never mutates the engine.
func (e *Engine) Status() types.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.equityAt(e.lastPrice)

	return types.EngineStatus{
		Cash:         e.cash,
		BaseHoldings: e.baseHoldings,
		Equity:       equity,
		RealizedPnL:  e.realizedPnL,
		TotalPnL:     e.realizedPnL,
		MaxEquity:    e.maxEquity,
		Drawdown:     e.drawdown(equity),
		RiskState:    e.risk.state,
		ActiveOrders: len(e.book.orders),
		Positions:    len(e.book.positions),
		LastPrice:    e.lastPrice,
	}
}

// ActiveOrderIDs returns the ids of all orders the engine believes open,
// for the driver's reconciliation pass.
func (e *Engine) ActiveOrderIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.book.orderIDs()
}

// equityAt values the account at the given price. With no price observed
// yet the base holdings are carried at zero, matching a cash-only start.
func (e *Engine) equityAt(price float64) float64 {
	return decimal.NewFromFloat(e.cash).
		Add(decimal.NewFromFloat(e.baseHoldings).Mul(decimal.NewFromFloat(price))).
		InexactFloat64()
}

func (e *Engine) drawdown(equity float64) float64 {
	if e.maxEquity <= 0 {
		return 0
	}

	dd := (e.maxEquity - equity) / e.maxEquity
	if dd < 0 {
		return 0
	}

	return dd
}

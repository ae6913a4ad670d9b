package engine

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/types"
)

// applyBuyFill debits cash, credits base holdings, and opens a position
// keyed by the filled order's grid level. The take-profit order for the
// new position is armed by the next Step rather than here, so every
// placement flows through the same batch path.
func (e *Engine) applyBuyFill(order types.Order, fillPrice, fillQty float64) {
	notional := decimal.NewFromFloat(fillPrice).Mul(decimal.NewFromFloat(fillQty))
	e.cash = clampResidue(decimal.NewFromFloat(e.cash).Sub(notional).InexactFloat64())
	e.baseHoldings = decimal.NewFromFloat(e.baseHoldings).Add(decimal.NewFromFloat(fillQty)).InexactFloat64()

	takeProfit := normalizePrice(e.takeProfitPrice(fillPrice), e.cfg.Grid.TickSize)

	if existing, ok := e.book.positionAt(order.LevelKey); ok {
		// Admission control should prevent this, but a fill that races a
		// reconcile can land on an occupied level. Merge instead of
		// overwriting so holdings stay consistent with positions.
		e.log.Warn("buy fill on occupied level, merging position",
			zap.Int64("levelKey", int64(order.LevelKey)),
			zap.String("orderId", order.ID),
		)

		mergedQty := decimal.NewFromFloat(existing.Quantity).Add(decimal.NewFromFloat(fillQty))
		cost := decimal.NewFromFloat(existing.BuyPrice).Mul(decimal.NewFromFloat(existing.Quantity)).Add(notional)
		existing.BuyPrice = cost.Div(mergedQty).InexactFloat64()
		existing.Quantity = mergedQty.InexactFloat64()
		existing.TakeProfitPrice = takeProfit
		existing.TakeProfitOrderID = optional.None[string]()

		return
	}

	e.book.addPosition(&types.Position{
		LevelKey:          order.LevelKey,
		Quantity:          fillQty,
		BuyPrice:          fillPrice,
		TakeProfitPrice:   takeProfit,
		TakeProfitOrderID: optional.None[string](),
	})
}

// applySellFill realizes the round trip for the position the sell order
// was protecting. Proceeds return to tradable cash only when compounding
// is enabled; with compounding off they model extracted profit.
func (e *Engine) applySellFill(position *types.Position, fillPrice, fillQty float64) {
	proceeds := decimal.NewFromFloat(fillPrice).Mul(decimal.NewFromFloat(fillQty))
	profit := decimal.NewFromFloat(fillPrice).
		Sub(decimal.NewFromFloat(position.BuyPrice)).
		Mul(decimal.NewFromFloat(fillQty)).
		InexactFloat64()

	e.realizedPnL = decimal.NewFromFloat(e.realizedPnL).Add(decimal.NewFromFloat(profit)).InexactFloat64()

	if e.cfg.Capital.Compound {
		e.cash = decimal.NewFromFloat(e.cash).Add(proceeds).InexactFloat64()
	}

	e.baseHoldings = clampResidue(decimal.NewFromFloat(e.baseHoldings).Sub(decimal.NewFromFloat(fillQty)).InexactFloat64())
	e.book.removePosition(position.LevelKey)
}

// clampResidue zeroes the sub-epsilon negative remainder the
// decimal-to-float round trips can leave once a balance is fully drained.
func clampResidue(v float64) float64 {
	if v < 0 && v > -1e-9 {
		return 0
	}

	return v
}

// takeProfitPrice computes the raw take-profit target for a buy filled
// at the given price, before tick normalization.
func (e *Engine) takeProfitPrice(fillPrice float64) float64 {
	if e.cfg.Grid.TPMode == config.TPModePercent {
		return fillPrice * (1 + e.cfg.Grid.TPPercent)
	}

	return fillPrice + e.vol.StepSize(fillPrice)
}

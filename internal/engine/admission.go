package engine

import (
	"fmt"

	"github.com/rxtech-lab/gridbot/internal/types"
)

// canPlaceBuy runs the admission checks for a candidate buy at the given
// grid level. Checks short-circuit in a fixed order so the reported
// rejection reason is deterministic: occupancy, duplicate order, minimum
// notional, then cash.
func (e *Engine) canPlaceBuy(orderPrice, notional float64) (bool, types.Reason) {
	key := levelKeyFor(orderPrice, e.cfg.Grid.TickSize)
	if _, ok := e.book.positionAt(key); ok {
		return false, types.Reason{
			Reason:  types.RejectReasonLevelOccupied,
			Message: fmt.Sprintf("level %g already holds an open position", levelPrice(key, e.cfg.Grid.TickSize)),
		}
	}

	if e.book.hasActiveBuyNear(orderPrice, e.cfg.Grid.TickSize) {
		return false, types.Reason{
			Reason:  types.RejectReasonDuplicateOrder,
			Message: "active buy order already rests at this level",
		}
	}

	if notional < e.cfg.Grid.MinNotional {
		return false, types.Reason{
			Reason:  types.RejectReasonBelowMinNotional,
			Message: "order notional is below the exchange minimum",
		}
	}

	if notional > e.cash {
		return false, types.Reason{
			Reason:  types.RejectReasonInsufficientCash,
			Message: "order notional exceeds available cash",
		}
	}

	return true, types.Reason{}
}

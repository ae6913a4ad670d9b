package engine

import (
	"math"
	"sort"

	"github.com/rxtech-lab/gridbot/internal/types"
)

// book is the in-memory order and position book. It is owned exclusively
// by the engine and only touched under the engine mutex.
type book struct {
	orders    map[string]types.Order
	positions map[types.LevelKey]*types.Position
}

func newBook() *book {
	return &book{
		orders:    make(map[string]types.Order),
		positions: make(map[types.LevelKey]*types.Position),
	}
}

func (b *book) addOrder(o types.Order) {
	b.orders[o.ID] = o
}

// removeOrder deletes an order from the active set and returns it.
// Terminal orders are not retained.
func (b *book) removeOrder(id string) (types.Order, bool) {
	o, ok := b.orders[id]
	if ok {
		delete(b.orders, id)
	}

	return o, ok
}

// hasActiveBuyNear reports whether an active BUY order rests within one
// tick of the given price.
func (b *book) hasActiveBuyNear(price, tickSize float64) bool {
	for _, o := range b.orders {
		if o.Side == types.SideBuy && math.Abs(o.Price-price) < tickSize {
			return true
		}
	}

	return false
}

// orderIDs returns all active order ids in a stable order.
func (b *book) orderIDs() []string {
	ids := make([]string, 0, len(b.orders))
	for id := range b.orders {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (b *book) positionAt(key types.LevelKey) (*types.Position, bool) {
	p, ok := b.positions[key]

	return p, ok
}

func (b *book) addPosition(p *types.Position) {
	b.positions[p.LevelKey] = p
}

func (b *book) removePosition(key types.LevelKey) {
	delete(b.positions, key)
}

// positionByTakeProfitOrder finds the position whose live take-profit
// order has the given id.
func (b *book) positionByTakeProfitOrder(orderID string) (*types.Position, bool) {
	for _, p := range b.positions {
		if p.TakeProfitOrderID.IsSome() && p.TakeProfitOrderID.Unwrap() == orderID {
			return p, true
		}
	}

	return nil, false
}

// sortedPositions returns positions ordered by level key so batch
// generation is deterministic across runs.
func (b *book) sortedPositions() []*types.Position {
	positions := make([]*types.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, p)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].LevelKey < positions[j].LevelKey
	})

	return positions
}

// totalPositionQuantity sums the quantity of every open position.
func (b *book) totalPositionQuantity() float64 {
	var total float64
	for _, p := range b.positions {
		total += p.Quantity
	}

	return total
}

package engine

import (
	"math"

	"github.com/rxtech-lab/gridbot/internal/types"
)

// normalizePrice rounds a price to the nearest multiple of the tick size.
func normalizePrice(price, tickSize float64) float64 {
	return math.Round(price/tickSize) * tickSize
}

// normalizeQty rounds a quantity to the nearest multiple of the quantity step.
func normalizeQty(qty, qtyStep float64) float64 {
	return math.Round(qty/qtyStep) * qtyStep
}

// levelKeyFor maps a price to its grid level identity: the integer number
// of ticks it rounds to. Two prices within half a tick of each other share
// a key, so level occupancy checks never depend on float equality.
func levelKeyFor(price, tickSize float64) types.LevelKey {
	return types.LevelKey(math.Round(price / tickSize))
}

// levelPrice converts a level key back to its normalized price.
func levelPrice(key types.LevelKey, tickSize float64) float64 {
	return float64(key) * tickSize
}

// targetLevels returns candidate grid levels around the current price:
// levelsBelow prices spaced one step apart below it, then levelsAbove
// prices spaced above. Prices are raw; normalization to the tick size
// happens at order construction time.
func targetLevels(price, step float64, levelsBelow, levelsAbove int) []float64 {
	levels := make([]float64, 0, levelsBelow+levelsAbove)

	for i := 1; i <= levelsBelow; i++ {
		levels = append(levels, price-float64(i)*step)
	}

	for i := 1; i <= levelsAbove; i++ {
		levels = append(levels, price+float64(i)*step)
	}

	return levels
}

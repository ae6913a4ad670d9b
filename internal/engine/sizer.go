package engine

import (
	"math"

	"github.com/rxtech-lab/gridbot/internal/config"
)

// budgetFrac is the fraction of cash the sizer may deploy across the grid.
const budgetFrac = 0.90

// geometricRatio is the per-level weight ratio in geometric sizing mode.
const geometricRatio = 1.2

// sizeForLevel computes the notional (quote currency) to allocate to the
// grid level at levelIndex, from the available budget and the current
// inventory state.
//
// Linear mode splits the budget evenly across the buy levels. Geometric
// mode weights level i by geometricRatio^i, so farther levels receive
// proportionally larger allocations. When the base-asset value is below
// the target inventory ratio, the size is skewed upward; the skew never
// shrinks a size.
func sizeForLevel(grid config.GridConfig, capital config.CapitalConfig, levelIndex int, price, cash, baseHoldings float64) float64 {
	budget := cash * budgetFrac

	var size float64

	if grid.SizingMode == config.SizingModeLinear {
		size = budget / float64(grid.LevelsBelow)
	} else {
		if levelIndex >= grid.LevelsBelow {
			levelIndex = grid.LevelsBelow - 1
		}

		var totalWeight float64
		for i := 0; i < grid.LevelsBelow; i++ {
			totalWeight += math.Pow(geometricRatio, float64(i))
		}

		size = budget / totalWeight * math.Pow(geometricRatio, float64(levelIndex))
	}

	equity := cash + baseHoldings*price
	if equity <= 0 {
		return size
	}

	inventoryRatio := baseHoldings * price / equity
	if inventoryRatio < capital.TargetInventoryRatio {
		size *= 1 + (capital.TargetInventoryRatio-inventoryRatio)*grid.SkewStrength
	}

	return size
}

package engine

import (
	"math"

	"github.com/rxtech-lab/gridbot/internal/config"
)

// warmupStepFrac is the step fraction used while the ATR window has not
// filled yet. Without it the first ticks of an ATR-mode session would
// produce a zero or undefined grid step.
const warmupStepFrac = 0.004

// defaultHistoryWindow bounds the price history in percent mode, where no
// ATR window is configured but snapshots still carry recent prices.
const defaultHistoryWindow = 32

// volatility keeps a bounded rolling price history and derives the grid
// step size from it.
type volatility struct {
	mode        string
	stepPercent float64
	window      int
	atrK        float64
	prices      []float64
}

func newVolatility(grid config.GridConfig) *volatility {
	window := grid.ATRWindow
	if window < 2 {
		window = defaultHistoryWindow
	}

	return &volatility{
		mode:        grid.Mode,
		stepPercent: grid.StepPercent,
		window:      window,
		atrK:        grid.ATRK,
		prices:      nil,
	}
}

// Observe appends a price sample. The history grows to at most twice the
// window before being pruned back to the window, keeping memory bounded
// without reslicing on every tick.
func (v *volatility) Observe(price float64) {
	v.prices = append(v.prices, price)
	if len(v.prices) > v.window*2 {
		v.prices = append([]float64(nil), v.prices[len(v.prices)-v.window:]...)
	}
}

// StepSize returns the grid step for the current price. Percent mode is a
// fixed fraction of price. ATR mode averages absolute consecutive price
// differences over the window, falling back to the warm-up fraction until
// enough samples exist.
func (v *volatility) StepSize(price float64) float64 {
	if v.mode == config.GridModePercent {
		return price * v.stepPercent
	}

	if len(v.prices) < v.window {
		return price * warmupStepFrac
	}

	recent := v.prices[len(v.prices)-v.window:]
	if len(recent) < 2 {
		return price * warmupStepFrac
	}

	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += math.Abs(recent[i] - recent[i-1])
	}

	atr := sum / float64(len(recent)-1)

	return atr * v.atrK
}

// History returns a copy of the retained price samples.
func (v *volatility) History() []float64 {
	return append([]float64(nil), v.prices...)
}

func (v *volatility) restoreHistory(prices []float64) {
	v.prices = append([]float64(nil), prices...)
}

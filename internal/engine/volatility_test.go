package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rxtech-lab/gridbot/internal/config"
)

func TestStepSizePercentMode(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModePercent, StepPercent: 0.004})

	assert.InDelta(t, 180, v.StepSize(45000), 1e-9)

	// Percent mode ignores history entirely.
	v.Observe(45000)
	v.Observe(46000)
	assert.InDelta(t, 180, v.StepSize(45000), 1e-9)
}

func TestStepSizeATRWarmup(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModeATR, ATRWindow: 4, ATRK: 1.5})

	// Too few samples: fall back to the warm-up fraction of price.
	v.Observe(45000)
	v.Observe(45010)
	assert.InDelta(t, 45000*warmupStepFrac, v.StepSize(45000), 1e-9)
}

func TestStepSizeATRFromHistory(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModeATR, ATRWindow: 4, ATRK: 2})

	for _, p := range []float64{45000, 45010, 44990, 45020} {
		v.Observe(p)
	}

	// Mean absolute consecutive diff over the window is (10+20+30)/3 = 20.
	assert.InDelta(t, 40, v.StepSize(45020), 1e-9)
}

func TestObservePrunesHistory(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModeATR, ATRWindow: 4, ATRK: 1})

	for i := 0; i < 20; i++ {
		v.Observe(float64(45000 + i))
	}

	history := v.History()
	assert.LessOrEqual(t, len(history), 8)
	assert.Equal(t, float64(45019), history[len(history)-1])
}

func TestRestoreHistory(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModeATR, ATRWindow: 3, ATRK: 1})
	v.restoreHistory([]float64{45000, 45010, 45020})

	assert.Equal(t, []float64{45000, 45010, 45020}, v.History())
	assert.InDelta(t, 10, v.StepSize(45020), 1e-9)
}

func TestDefaultHistoryWindowInPercentMode(t *testing.T) {
	v := newVolatility(config.GridConfig{Mode: config.GridModePercent, StepPercent: 0.004})

	for i := 0; i < 200; i++ {
		v.Observe(float64(i))
	}

	assert.LessOrEqual(t, len(v.History()), defaultHistoryWindow*2)
}

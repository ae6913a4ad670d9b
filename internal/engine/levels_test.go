package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	assert.InDelta(t, 44820.00, normalizePrice(44820.004, 0.01), 1e-9)
	assert.InDelta(t, 44820.01, normalizePrice(44820.006, 0.01), 1e-9)
	assert.InDelta(t, 45000, normalizePrice(45000.4, 1), 1e-9)
}

func TestNormalizeQty(t *testing.T) {
	assert.InDelta(t, 0.08367, normalizeQty(0.0836701, 0.00001), 1e-9)
	assert.InDelta(t, 0.1, normalizeQty(0.100004, 0.00001), 1e-9)
}

func TestLevelKeyEqualityForNearbyPrices(t *testing.T) {
	// Prices within half a tick of each other map to the same level.
	a := levelKeyFor(44820.001, 0.01)
	b := levelKeyFor(44819.999, 0.01)
	assert.Equal(t, a, b)

	c := levelKeyFor(44820.02, 0.01)
	assert.NotEqual(t, a, c)
}

func TestLevelPriceRoundTrip(t *testing.T) {
	key := levelKeyFor(44820, 0.01)
	assert.InDelta(t, 44820, levelPrice(key, 0.01), 1e-6)
}

func TestTargetLevels(t *testing.T) {
	levels := targetLevels(45000, 180, 3, 2)

	assert.Len(t, levels, 5)
	assert.InDelta(t, 44820, levels[0], 1e-9)
	assert.InDelta(t, 44640, levels[1], 1e-9)
	assert.InDelta(t, 44460, levels[2], 1e-9)
	assert.InDelta(t, 45180, levels[3], 1e-9)
	assert.InDelta(t, 45360, levels[4], 1e-9)
}

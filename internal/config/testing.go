package config

import "time"

// TestConfig returns a valid percent-mode configuration used across the
// package tests and as a quick-start template.
func TestConfig() Config {
	return Config{
		Runtime: RuntimeConfig{
			Symbol:         "BTCUSDT",
			PollInterval:   5 * time.Second,
			ReconcileEvery: 10,
			StatusEvery:    5,
			Listen:         "",
		},
		Grid: GridConfig{
			Mode:            GridModePercent,
			StepPercent:     0.004,
			ATRWindow:       0,
			ATRK:            0,
			TickSize:        0.01,
			QtyStep:         0.00001,
			LevelsBelow:     3,
			LevelsAbove:     3,
			MakerBufferFrac: 0,
			TPMode:          TPModeStep,
			TPPercent:       0,
			SizingMode:      SizingModeLinear,
			SkewStrength:    0.5,
			MinNotional:     5,
		},
		Capital: CapitalConfig{
			QuoteStart:           10000,
			BaseStart:            0,
			TargetInventoryRatio: 0.5,
			Compound:             true,
		},
		Risk: RiskConfig{
			DDPauseFrac:    0.05,
			KillSwitchFrac: 0.10,
		},
	}
}

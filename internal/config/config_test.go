package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestTestConfigIsValid() {
	cfg := TestConfig()
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestParseValidYAML() {
	doc := `
runtime:
  symbol: BTCUSDT
grid:
  mode: percent
  step_percent: 0.004
  tick_size: 0.01
  qty_step: 0.00001
  levels_below: 3
  levels_above: 3
  maker_buffer_frac: 0.0005
  tp_mode: step
  sizing_mode: linear
  skew_strength: 0.5
  min_notional: 5
capital:
  quote_start: 10000
  target_inventory_ratio: 0.5
  compound: true
risk:
  dd_pause_frac: 0.05
  kill_switch_frac: 0.10
`

	cfg, err := Parse([]byte(doc))
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", cfg.Runtime.Symbol)
	suite.Equal(GridModePercent, cfg.Grid.Mode)
	suite.Equal(3, cfg.Grid.LevelsBelow)
	suite.True(cfg.Capital.Compound)

	// Defaults fill in unset runtime fields.
	suite.Equal(5*time.Second, cfg.Runtime.PollInterval)
	suite.Equal(10, cfg.Runtime.ReconcileEvery)
	suite.Equal(5, cfg.Runtime.StatusEvery)
}

func (suite *ConfigTestSuite) TestParseMalformedYAML() {
	_, err := Parse([]byte("grid: ["))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestMissingSymbol() {
	cfg := TestConfig()
	cfg.Runtime.Symbol = ""
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestInvalidGridMode() {
	cfg := TestConfig()
	cfg.Grid.Mode = "fibonacci"
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestPercentModeRequiresStep() {
	cfg := TestConfig()
	cfg.Grid.StepPercent = 0
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestATRModeRequiresWindowAndK() {
	cfg := TestConfig()
	cfg.Grid.Mode = GridModeATR
	cfg.Grid.ATRWindow = 0
	cfg.Grid.ATRK = 1.5
	suite.Error(cfg.Validate())

	cfg.Grid.ATRWindow = 14
	cfg.Grid.ATRK = 0
	suite.Error(cfg.Validate())

	cfg.Grid.ATRK = 1.5
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestKillSwitchMustExceedPause() {
	cfg := TestConfig()
	cfg.Risk.KillSwitchFrac = cfg.Risk.DDPauseFrac
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestZeroTickSizeRejected() {
	cfg := TestConfig()
	cfg.Grid.TickSize = 0
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestSchemaJSON() {
	schema, err := TestConfig().SchemaJSON()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Contains(decoded, "properties")
}

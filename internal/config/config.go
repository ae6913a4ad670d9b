// Package config defines the validated, immutable configuration snapshot
// the engine is constructed from. All fields are read once at startup;
// the engine never mutates them.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/gridbot/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Grid step mode values.
const (
	GridModePercent = "percent"
	GridModeATR     = "atr"
)

// Take-profit mode values.
const (
	TPModeStep    = "step"
	TPModePercent = "percent"
)

// Position sizing mode values.
const (
	SizingModeLinear    = "linear"
	SizingModeGeometric = "geometric"
)

// GridConfig describes the grid shape and order granularity.
type GridConfig struct {
	// Mode selects how the grid step is derived: a fixed fraction of the
	// current price, or an average-true-range estimate.
	Mode        string  `yaml:"mode" json:"mode" jsonschema:"title=Grid Mode,enum=percent,enum=atr" validate:"required,oneof=percent atr"`
	StepPercent float64 `yaml:"step_percent" json:"step_percent" jsonschema:"title=Step Percent" validate:"gte=0,lt=1"`
	ATRWindow   int     `yaml:"atr_window" json:"atr_window" jsonschema:"title=ATR Window" validate:"gte=0"`
	ATRK        float64 `yaml:"atr_k" json:"atr_k" jsonschema:"title=ATR Multiplier" validate:"gte=0"`
	// TickSize is the price granularity; all level keys and order prices
	// are normalized to it.
	TickSize float64 `yaml:"tick_size" json:"tick_size" jsonschema:"title=Tick Size" validate:"required,gt=0"`
	// QtyStep is the quantity granularity orders are rounded to.
	QtyStep     float64 `yaml:"qty_step" json:"qty_step" jsonschema:"title=Quantity Step" validate:"required,gt=0"`
	LevelsBelow int     `yaml:"levels_below" json:"levels_below" jsonschema:"title=Levels Below" validate:"required,gt=0"`
	LevelsAbove int     `yaml:"levels_above" json:"levels_above" jsonschema:"title=Levels Above" validate:"gte=0"`
	// MakerBufferFrac offsets limit orders away from the level so they
	// rest instead of crossing the spread.
	MakerBufferFrac float64 `yaml:"maker_buffer_frac" json:"maker_buffer_frac" validate:"gte=0,lt=1"`
	TPMode          string  `yaml:"tp_mode" json:"tp_mode" jsonschema:"enum=step,enum=percent" validate:"required,oneof=step percent"`
	TPPercent       float64 `yaml:"tp_percent" json:"tp_percent" validate:"gte=0,lt=1"`
	SizingMode      string  `yaml:"sizing_mode" json:"sizing_mode" jsonschema:"enum=linear,enum=geometric" validate:"required,oneof=linear geometric"`
	SkewStrength    float64 `yaml:"skew_strength" json:"skew_strength" validate:"gte=0"`
	// MinNotional is the exchange's minimum order value in quote currency.
	MinNotional float64 `yaml:"min_notional" json:"min_notional" validate:"gte=0"`
}

// CapitalConfig describes starting balances and the compounding policy.
type CapitalConfig struct {
	// QuoteStart is the starting cash balance in quote currency.
	QuoteStart float64 `yaml:"quote_start" json:"quote_start" jsonschema:"title=Starting Cash" validate:"required,gt=0"`
	// BaseStart is the starting base asset quantity.
	BaseStart float64 `yaml:"base_start" json:"base_start" validate:"gte=0"`
	// TargetInventoryRatio is the desired base-asset value as a fraction
	// of total equity; buys are skewed larger while below it.
	TargetInventoryRatio float64 `yaml:"target_inventory_ratio" json:"target_inventory_ratio" validate:"gte=0,lte=1"`
	// Compound returns sell proceeds to tradable cash when true; when
	// false realized profit is extracted and never re-deployed.
	Compound bool `yaml:"compound" json:"compound"`
}

// RiskConfig holds the drawdown thresholds of the risk guard.
type RiskConfig struct {
	// DDPauseFrac is the drawdown fraction above which new order
	// placement is paused.
	DDPauseFrac float64 `yaml:"dd_pause_frac" json:"dd_pause_frac" validate:"required,gt=0,lt=1"`
	// KillSwitchFrac is the drawdown fraction above which the engine
	// halts and liquidates everything.
	KillSwitchFrac float64 `yaml:"kill_switch_frac" json:"kill_switch_frac" validate:"required,gt=0,lt=1"`
}

// RuntimeConfig holds driver-level settings that the core engine does not
// read but the live and backtest runners do.
type RuntimeConfig struct {
	Symbol       string        `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol" validate:"required"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"gte=0"`
	// ReconcileEvery is the number of poll cycles between order
	// reconciliation passes against the exchange.
	ReconcileEvery int `yaml:"reconcile_every" json:"reconcile_every" validate:"gte=0"`
	// StatusEvery is the number of poll cycles between status log lines.
	StatusEvery int `yaml:"status_every" json:"status_every" validate:"gte=0"`
	// Listen is the optional address of the HTTP status server.
	Listen string `yaml:"listen" json:"listen"`
}

// Config is the complete configuration snapshot.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime" validate:"required"`
	Grid    GridConfig    `yaml:"grid" json:"grid" validate:"required"`
	Capital CapitalConfig `yaml:"capital" json:"capital" validate:"required"`
	Risk    RiskConfig    `yaml:"risk" json:"risk" validate:"required"`
}

// Parse unmarshals a YAML document into a validated Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load reads and parses a config file from disk.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.Runtime.PollInterval == 0 {
		c.Runtime.PollInterval = 5 * time.Second
	}

	if c.Runtime.ReconcileEvery == 0 {
		c.Runtime.ReconcileEvery = 10
	}

	if c.Runtime.StatusEvery == 0 {
		c.Runtime.StatusEvery = 5
	}
}

// Validate checks structural constraints and the cross-field invariants the
// struct tags cannot express. A Config that fails validation must never
// reach the engine constructor.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.Grid.Mode == GridModePercent && c.Grid.StepPercent <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "grid.step_percent must be positive in percent mode")
	}

	if c.Grid.Mode == GridModeATR {
		if c.Grid.ATRWindow < 2 {
			return errors.New(errors.ErrCodeInvalidConfiguration, "grid.atr_window must be at least 2 in atr mode")
		}

		if c.Grid.ATRK <= 0 {
			return errors.New(errors.ErrCodeInvalidConfiguration, "grid.atr_k must be positive in atr mode")
		}
	}

	if c.Grid.TPMode == TPModePercent && c.Grid.TPPercent <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "grid.tp_percent must be positive in percent mode")
	}

	if c.Risk.KillSwitchFrac <= c.Risk.DDPauseFrac {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"risk.kill_switch_frac (%f) must exceed risk.dd_pause_frac (%f)",
			c.Risk.KillSwitchFrac, c.Risk.DDPauseFrac)
	}

	return nil
}

// SchemaJSON returns the JSON schema describing the config file format.
func (c Config) SchemaJSON() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(c)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

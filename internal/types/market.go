package types

import "time"

// Tick is a single market data observation fed to the engine.
type Tick struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Price  float64   `yaml:"price" json:"price"`
	Bid    float64   `yaml:"bid" json:"bid"`
	Ask    float64   `yaml:"ask" json:"ask"`
	Time   time.Time `yaml:"time" json:"time"`
}

// Candle is one OHLCV bar of historical market data.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Tick converts a candle into the tick the drivers feed to the engine.
// Bid and ask are approximated around the close the same way the backtest
// simulation approximates the touch.
func (c Candle) Tick(symbol string) Tick {
	return Tick{
		Symbol: symbol,
		Price:  c.Close,
		Bid:    c.Close * 0.999,
		Ask:    c.Close * 1.001,
		Time:   c.Time,
	}
}

package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// minimumPrice floors generated prices to keep them positive.
const minimumPrice = 0.01

// SyntheticConfig drives the geometric-Brownian-motion candle generator
// used for backtest fixtures when no real market data is available.
type SyntheticConfig struct {
	// StartPrice is the first candle's open.
	StartPrice float64
	// Drift is the per-bar expected log return.
	Drift float64
	// Volatility is the per-bar log return standard deviation.
	Volatility float64
	// Start is the timestamp of the first candle.
	Start time.Time
	// Interval is the bar duration.
	Interval time.Duration
	// Count is the number of candles to generate.
	Count int
	// Seed makes the series reproducible.
	Seed int64
}

// GenerateCandles produces a GBM price path sampled into OHLCV bars. The
// same config always yields the same series.
func GenerateCandles(cfg SyntheticConfig) []types.Candle {
	rng := rand.New(rand.NewSource(cfg.Seed))
	candles := make([]types.Candle, 0, cfg.Count)
	price := cfg.StartPrice

	for i := 0; i < cfg.Count; i++ {
		open := price

		ret := cfg.Drift - 0.5*cfg.Volatility*cfg.Volatility + cfg.Volatility*rng.NormFloat64()
		price = math.Max(open*math.Exp(ret), minimumPrice)

		high := math.Max(open, price) * (1 + math.Abs(rng.NormFloat64())*cfg.Volatility/2)
		low := math.Min(open, price) * (1 - math.Abs(rng.NormFloat64())*cfg.Volatility/2)
		low = math.Max(low, minimumPrice)

		candles = append(candles, types.Candle{
			Time:   cfg.Start.Add(time.Duration(i) * cfg.Interval),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1000 + rng.Float64()*9000,
		})
	}

	return candles
}

// WriteCandlesCSV writes candles to a CSV file through DuckDB, producing
// the same layout InitializeCSV expects back.
func WriteCandlesCSV(path string, candles []types.Candle) error {
	return writeCandles(path, candles, "(HEADER, DELIMITER ',')")
}

// WriteCandlesParquet writes candles to a Parquet file.
func WriteCandlesParquet(path string, candles []types.Candle) error {
	return writeCandles(path, candles, "(FORMAT PARQUET)")
}

func writeCandles(path string, candles []types.Candle, copyOptions string) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE candles (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to create candles table", err)
	}

	stmt, err := db.Prepare(`INSERT INTO candles VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, candle := range candles {
		if _, err := stmt.Exec(candle.Time, candle.Open, candle.High, candle.Low, candle.Close, candle.Volume); err != nil {
			return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to insert candle", err)
		}
	}

	query := fmt.Sprintf(`COPY (SELECT * FROM candles ORDER BY time) TO '%s' %s;`, path, copyOptions)
	if _, err := db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataWriteFailed, err, "failed to export candles to %s", path)
	}

	return nil
}

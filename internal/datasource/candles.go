// Package datasource loads historical candle data for backtests through
// DuckDB, which reads CSV and Parquet files directly without an import
// step.
package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

const readBatchSize = 1000

// CandleSource reads OHLCV candles from a DuckDB view over a CSV or
// Parquet file.
type CandleSource struct {
	db  *sql.DB
	log *logger.Logger
}

// NewCandleSource opens a DuckDB database at the given path; use
// ":memory:" for an ephemeral backtest session. Call one of the
// Initialize methods before reading.
func NewCandleSource(path string, log *logger.Logger) (*CandleSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &CandleSource{db: db, log: log}, nil
}

// InitializeCSV points the candles view at a CSV file with
// time,open,high,low,close,volume columns.
func (c *CandleSource) InitializeCSV(path string) error {
	return c.createView(fmt.Sprintf("read_csv_auto('%s')", path))
}

// InitializeParquet points the candles view at a Parquet file.
func (c *CandleSource) InitializeParquet(path string) error {
	return c.createView(fmt.Sprintf("read_parquet('%s')", path))
}

func (c *CandleSource) createView(source string) error {
	c.log.Debug("creating candles view", zap.String("source", source))

	if _, err := c.db.Exec(`DROP VIEW IF EXISTS candles;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// CREATE VIEW has no placeholder support; the source expression is
	// built from trusted configuration, not user input.
	query := fmt.Sprintf(`CREATE VIEW candles AS SELECT * FROM %s;`, source)
	if _, err := c.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to create candles view", err)
	}

	return nil
}

// Count returns the number of candles in the optional time range.
func (c *CandleSource) Count(start, end optional.Option[time.Time]) (int, error) {
	query := "SELECT COUNT(*) FROM candles"
	conditions, params := timeConditions(start, end)

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := c.db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count candles", err)
	}

	return count, nil
}

// ReadAll returns an iterator over candles in ascending time order,
// fetched in batches to bound memory on large histories. Use it as
// `for candle, err := range source.ReadAll(start, end)`.
func (c *CandleSource) ReadAll(start, end optional.Option[time.Time]) func(yield func(types.Candle, error) bool) {
	return func(yield func(types.Candle, error) bool) {
		query := `SELECT time, open, high, low, close, volume FROM candles`

		conditions, params := timeConditions(start, end)
		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}

		query += " ORDER BY time ASC"

		rows, err := c.db.Query(query, params...)
		if err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err))

			return
		}
		defer rows.Close()

		batch := make([]types.Candle, 0, readBatchSize)

		for rows.Next() {
			var candle types.Candle
			if err := rows.Scan(&candle.Time, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume); err != nil {
				yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err))

				return
			}

			batch = append(batch, candle)

			if len(batch) >= readBatchSize {
				for _, data := range batch {
					if !yield(data, nil) {
						return
					}
				}

				batch = batch[:0]
			}
		}

		for _, data := range batch {
			if !yield(data, nil) {
				return
			}
		}
	}
}

// Close releases the underlying database.
func (c *CandleSource) Close() error {
	return c.db.Close()
}

func timeConditions(start, end optional.Option[time.Time]) ([]string, []any) {
	var (
		conditions []string
		params     []any
	)

	if start.IsSome() {
		conditions = append(conditions, fmt.Sprintf("time >= $%d", len(params)+1))
		params = append(params, start.Unwrap())
	}

	if end.IsSome() {
		conditions = append(conditions, fmt.Sprintf("time <= $%d", len(params)+1))
		params = append(params, end.Unwrap())
	}

	return conditions, params
}

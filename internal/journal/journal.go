// Package journal records every order event, fill, and equity sample of
// a session into DuckDB, and exports the tables to Parquet for offline
// analysis.
package journal

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// Order lifecycle events the journal records.
const (
	OrderEventPlaced   = "placed"
	OrderEventCanceled = "canceled"
	OrderEventRejected = "rejected"
)

// OrderRecord is one order lifecycle event.
type OrderRecord struct {
	ID       int        `json:"id"`
	Time     time.Time  `json:"time"`
	OrderID  string     `json:"order_id"`
	Symbol   string     `json:"symbol"`
	Side     types.Side `json:"side"`
	Price    float64    `json:"price"`
	Quantity float64    `json:"quantity"`
	Event    string     `json:"event"`
}

// EquityPoint is one equity curve sample.
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Equity      float64   `json:"equity"`
	Cash        float64   `json:"cash"`
	RealizedPnL float64   `json:"realized_pnl"`
	Drawdown    float64   `json:"drawdown"`
}

// Journal is the session recorder. It keeps its tables in a DuckDB
// database, in-memory by default.
type Journal struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewJournal creates an in-memory journal.
func NewJournal(log *logger.Logger) (*Journal, error) {
	return NewJournalAt(":memory:", log)
}

// NewJournalAt creates a journal backed by a DuckDB file.
func NewJournalAt(path string, log *logger.Logger) (*Journal, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to open journal database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to connect to journal database", err)
	}

	j := &Journal{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := j.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

func (j *Journal) initialize() error {
	_, err := j.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS order_record_id_seq;

		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY,
			time TIMESTAMP,
			order_id VARCHAR,
			symbol VARCHAR,
			side VARCHAR,
			price DOUBLE,
			quantity DOUBLE,
			event VARCHAR
		);

		CREATE TABLE IF NOT EXISTS fills (
			trade_id VARCHAR,
			order_id VARCHAR,
			time TIMESTAMP,
			price DOUBLE,
			quantity DOUBLE
		);

		CREATE TABLE IF NOT EXISTS equity_curve (
			time TIMESTAMP,
			equity DOUBLE,
			cash DOUBLE,
			realized_pnl DOUBLE,
			drawdown DOUBLE
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to create journal tables", err)
	}

	return nil
}

// RecordOrder records an order lifecycle event.
func (j *Journal) RecordOrder(t time.Time, order types.Order, event string) error {
	var nextID int
	if err := j.db.QueryRow("SELECT nextval('order_record_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to get next order record id", err)
	}

	_, err := j.sq.
		Insert("orders").
		Columns("id", "time", "order_id", "symbol", "side", "price", "quantity", "event").
		Values(nextID, t, order.ID, order.Symbol, string(order.Side), order.Price, order.Quantity, event).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to record order event", err)
	}

	return nil
}

// RecordFill records an execution.
func (j *Journal) RecordFill(fill gateway.Fill) error {
	_, err := j.sq.
		Insert("fills").
		Columns("trade_id", "order_id", "time", "price", "quantity").
		Values(fill.TradeID, fill.OrderID, fill.Time, fill.Price, fill.Quantity).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to record fill", err)
	}

	return nil
}

// RecordEquity appends an equity curve sample from an engine status.
func (j *Journal) RecordEquity(t time.Time, status types.EngineStatus) error {
	_, err := j.sq.
		Insert("equity_curve").
		Columns("time", "equity", "cash", "realized_pnl", "drawdown").
		Values(t, status.Equity, status.Cash, status.RealizedPnL, status.Drawdown).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to record equity sample", err)
	}

	return nil
}

// GetOrders returns all recorded order events in insertion order.
func (j *Journal) GetOrders() ([]OrderRecord, error) {
	rows, err := j.sq.
		Select("id", "time", "order_id", "symbol", "side", "price", "quantity", "event").
		From("orders").
		OrderBy("id ASC").
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to query order events", err)
	}
	defer rows.Close()

	var records []OrderRecord

	for rows.Next() {
		var (
			record OrderRecord
			side   string
		)

		if err := rows.Scan(&record.ID, &record.Time, &record.OrderID, &record.Symbol, &side, &record.Price, &record.Quantity, &record.Event); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to scan order event", err)
		}

		record.Side = types.Side(side)
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetFills returns all recorded fills in time order.
func (j *Journal) GetFills() ([]gateway.Fill, error) {
	rows, err := j.sq.
		Select("trade_id", "order_id", "time", "price", "quantity").
		From("fills").
		OrderBy("time ASC").
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to query fills", err)
	}
	defer rows.Close()

	var fills []gateway.Fill

	for rows.Next() {
		var fill gateway.Fill
		if err := rows.Scan(&fill.TradeID, &fill.OrderID, &fill.Time, &fill.Price, &fill.Quantity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to scan fill", err)
		}

		fills = append(fills, fill)
	}

	return fills, rows.Err()
}

// GetEquityCurve returns the equity samples in time order.
func (j *Journal) GetEquityCurve() ([]EquityPoint, error) {
	rows, err := j.sq.
		Select("time", "equity", "cash", "realized_pnl", "drawdown").
		From("equity_curve").
		OrderBy("time ASC").
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var points []EquityPoint

	for rows.Next() {
		var point EquityPoint
		if err := rows.Scan(&point.Time, &point.Equity, &point.Cash, &point.RealizedPnL, &point.Drawdown); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to scan equity point", err)
		}

		points = append(points, point)
	}

	return points, rows.Err()
}

// Export writes every journal table to Parquet files under dir.
func (j *Journal) Export(dir string) error {
	for _, table := range []string{"orders", "fills", "equity_curve"} {
		path := filepath.Join(dir, table+".parquet")

		// COPY has no placeholder support in DuckDB; table names are
		// fixed and the path comes from configuration.
		if _, err := j.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path)); err != nil {
			return errors.Wrapf(errors.ErrCodeJournalExportFailed, err, "failed to export %s", table)
		}

		j.log.Debug("exported journal table", zap.String("table", table), zap.String("path", path))
	}

	return nil
}

// Close releases the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

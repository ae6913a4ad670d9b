package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
)

type JournalTestSuite struct {
	suite.Suite
	journal *Journal
}

func TestJournalTestSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (suite *JournalTestSuite) SetupTest() {
	journal, err := NewJournal(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.journal = journal
}

func (suite *JournalTestSuite) TearDownTest() {
	suite.NoError(suite.journal.Close())
}

func (suite *JournalTestSuite) order(id string) types.Order {
	return types.Order{
		ID:        id,
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeLimit,
		Price:     44820,
		Quantity:  0.08,
		Status:    types.OrderStatusNew,
	}
}

func (suite *JournalTestSuite) TestRecordOrderEvents() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.Require().NoError(suite.journal.RecordOrder(now, suite.order("order-1"), OrderEventPlaced))
	suite.Require().NoError(suite.journal.RecordOrder(now.Add(time.Minute), suite.order("order-1"), OrderEventCanceled))

	records, err := suite.journal.GetOrders()
	suite.Require().NoError(err)
	suite.Require().Len(records, 2)

	suite.Equal("order-1", records[0].OrderID)
	suite.Equal(OrderEventPlaced, records[0].Event)
	suite.Equal(OrderEventCanceled, records[1].Event)
	suite.Equal(types.SideBuy, records[0].Side)
	suite.InDelta(44820, records[0].Price, 1e-9)
	suite.Less(records[0].ID, records[1].ID)
}

func (suite *JournalTestSuite) TestRecordFills() {
	fill := gateway.Fill{
		TradeID:  "trade-1",
		OrderID:  "order-1",
		Price:    44820,
		Quantity: 0.08,
		Time:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.Require().NoError(suite.journal.RecordFill(fill))

	fills, err := suite.journal.GetFills()
	suite.Require().NoError(err)
	suite.Require().Len(fills, 1)
	suite.Equal("trade-1", fills[0].TradeID)
	suite.Equal("order-1", fills[0].OrderID)
	suite.InDelta(0.08, fills[0].Quantity, 1e-9)
}

func (suite *JournalTestSuite) TestRecordEquityCurve() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		status := types.EngineStatus{
			Equity:      10000 + float64(i)*10,
			Cash:        10000,
			RealizedPnL: float64(i) * 10,
			Drawdown:    0,
		}
		suite.Require().NoError(suite.journal.RecordEquity(start.Add(time.Duration(i)*time.Minute), status))
	}

	points, err := suite.journal.GetEquityCurve()
	suite.Require().NoError(err)
	suite.Require().Len(points, 3)
	suite.InDelta(10020, points[2].Equity, 1e-9)
	suite.True(points[0].Time.Before(points[2].Time))
}

func (suite *JournalTestSuite) TestExportWritesParquetFiles() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.Require().NoError(suite.journal.RecordOrder(now, suite.order("order-1"), OrderEventPlaced))
	suite.Require().NoError(suite.journal.RecordEquity(now, types.EngineStatus{Equity: 10000, Cash: 10000}))

	dir := suite.T().TempDir()
	suite.Require().NoError(suite.journal.Export(dir))

	for _, name := range []string{"orders.parquet", "fills.parquet", "equity_curve.parquet"} {
		_, err := os.Stat(filepath.Join(dir, name))
		suite.NoError(err)
	}
}

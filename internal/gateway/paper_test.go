package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/gridbot/internal/types"
)

type PaperGatewayTestSuite struct {
	suite.Suite
	gateway *PaperGateway
	ctx     context.Context
}

func TestPaperGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(PaperGatewayTestSuite))
}

func (suite *PaperGatewayTestSuite) SetupTest() {
	suite.gateway = NewPaperGateway()
	suite.ctx = context.Background()
}

func (suite *PaperGatewayTestSuite) candle(open, high, low, close float64) types.Candle {
	return types.Candle{
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 100,
	}
}

func (suite *PaperGatewayTestSuite) limitOrder(id string, side types.Side, price, qty float64) types.Order {
	return types.Order{
		ID:        id,
		Symbol:    "BTCUSDT",
		Side:      side,
		OrderType: types.OrderTypeLimit,
		Price:     price,
		Quantity:  qty,
		Status:    types.OrderStatusNew,
	}
}

func (suite *PaperGatewayTestSuite) TestTickerRequiresCandle() {
	_, err := suite.gateway.Ticker(suite.ctx, "BTCUSDT")
	suite.Error(err)

	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))

	tick, err := suite.gateway.Ticker(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.InDelta(45050, tick.Price, 1e-9)
	suite.Less(tick.Bid, tick.Ask)
}

func (suite *PaperGatewayTestSuite) TestLimitBuyRestsUntilPriceReached() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))

	order := suite.limitOrder("buy-1", types.SideBuy, 44820, 0.08)
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, order))

	fills, err := suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Empty(fills)

	open, err := suite.gateway.OpenOrders(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Require().Len(open, 1)
	suite.Equal("buy-1", open[0].ID)

	// A candle trading down through the level fills the order at its
	// limit price.
	suite.gateway.SetCandle(suite.candle(45000, 45000, 44800, 44850))

	fills, err = suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.Equal("buy-1", fills[0].OrderID)
	suite.InDelta(44820, fills[0].Price, 1e-9)
	suite.InDelta(0.08, fills[0].Quantity, 1e-9)

	open, err = suite.gateway.OpenOrders(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Empty(open)
}

func (suite *PaperGatewayTestSuite) TestLimitSellFillsWhenHighCrosses() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))

	order := suite.limitOrder("sell-1", types.SideSell, 45200, 0.08)
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, order))

	suite.gateway.SetCandle(suite.candle(45050, 45250, 45000, 45150))

	fills, err := suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.InDelta(45200, fills[0].Price, 1e-9)
}

func (suite *PaperGatewayTestSuite) TestCrossingLimitOrderFillsImmediately() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))

	// Limit buy above the candle low crosses immediately.
	order := suite.limitOrder("buy-2", types.SideBuy, 45000, 0.08)
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, order))

	fills, err := suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.Equal("buy-2", fills[0].OrderID)
}

func (suite *PaperGatewayTestSuite) TestMarketOrderFillsAtClose() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))

	order := types.Order{
		ID:        "mkt-1",
		Symbol:    "BTCUSDT",
		Side:      types.SideSell,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.05,
		Status:    types.OrderStatusNew,
	}
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, order))

	fills, err := suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.InDelta(45050, fills[0].Price, 1e-9)
}

func (suite *PaperGatewayTestSuite) TestFillsReportedExactlyOnce() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, suite.limitOrder("buy-3", types.SideBuy, 45000, 0.08)))

	fills, err := suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Len(fills, 1)

	fills, err = suite.gateway.RecentFills(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Empty(fills)
}

func (suite *PaperGatewayTestSuite) TestCancelOrder() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, suite.limitOrder("buy-4", types.SideBuy, 44820, 0.08)))

	suite.NoError(suite.gateway.CancelOrder(suite.ctx, "BTCUSDT", "buy-4"))
	// Canceling an unknown order is a no-op, like an already-filled order
	// on a real exchange.
	suite.NoError(suite.gateway.CancelOrder(suite.ctx, "BTCUSDT", "buy-4"))

	open, err := suite.gateway.OpenOrders(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Empty(open)
}

func (suite *PaperGatewayTestSuite) TestCancelAllOrders() {
	suite.gateway.SetCandle(suite.candle(45000, 45100, 44900, 45050))
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, suite.limitOrder("buy-5", types.SideBuy, 44820, 0.08)))
	suite.Require().NoError(suite.gateway.PlaceOrder(suite.ctx, suite.limitOrder("buy-6", types.SideBuy, 44640, 0.08)))

	suite.NoError(suite.gateway.CancelAllOrders(suite.ctx, "BTCUSDT"))

	open, err := suite.gateway.OpenOrders(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.Empty(open)
}

package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/engine"
	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
)

type LiveTestSuite struct {
	suite.Suite
	cfg    config.Config
	engine *engine.Engine
	paper  *gateway.PaperGateway
}

func TestLiveTestSuite(t *testing.T) {
	suite.Run(t, new(LiveTestSuite))
}

func (suite *LiveTestSuite) SetupTest() {
	suite.cfg = config.TestConfig()
	suite.cfg.Runtime.PollInterval = 5 * time.Millisecond
	suite.cfg.Runtime.ReconcileEvery = 2
	suite.cfg.Runtime.StatusEvery = 2

	eng, err := engine.New(suite.cfg, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.engine = eng

	suite.paper = gateway.NewPaperGateway()
	suite.paper.SetCandle(types.Candle{
		Time:   time.Now(),
		Open:   45000,
		High:   45010,
		Low:    44990,
		Close:  45000,
		Volume: 100,
	})
}

func (suite *LiveTestSuite) TestRunPlacesGridAndCancelsOnStop() {
	live := NewLive(suite.cfg, suite.engine, suite.paper, nil, nil, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	suite.Require().NoError(live.Run(ctx))

	// The grid was placed while running.
	suite.Equal(3, suite.engine.Status().ActiveOrders)

	// Shutdown canceled everything resting on the exchange.
	open, err := suite.paper.OpenOrders(context.Background(), suite.cfg.Runtime.Symbol)
	suite.Require().NoError(err)
	suite.Empty(open)
}

func (suite *LiveTestSuite) TestFillsFlowBackIntoPositions() {
	live := NewLive(suite.cfg, suite.engine, suite.paper, nil, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- live.Run(ctx)
	}()

	// Let the first cycles place the grid, then trade down through the
	// top grid level so its buy order fills. The candle high stays below
	// the take-profit near 44999, so the position cannot close again
	// while the loop keeps running.
	time.Sleep(30 * time.Millisecond)
	suite.paper.SetCandle(types.Candle{
		Time:   time.Now(),
		Open:   44900,
		High:   44900,
		Low:    44700,
		Close:  44750,
		Volume: 100,
	})
	time.Sleep(50 * time.Millisecond)

	cancel()
	suite.Require().NoError(<-done)

	status := suite.engine.Status()
	suite.GreaterOrEqual(status.Positions, 1)
	suite.Greater(status.BaseHoldings, 0.0)
	suite.Less(status.Cash, suite.cfg.Capital.QuoteStart)
}

package datasource

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/types"
)

type DataSourceTestSuite struct {
	suite.Suite
	source *CandleSource
}

func TestDataSourceTestSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) SetupTest() {
	source, err := NewCandleSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.source = source
}

func (suite *DataSourceTestSuite) TearDownTest() {
	suite.NoError(suite.source.Close())
}

func (suite *DataSourceTestSuite) generateFixture() (string, []types.Candle) {
	candles := GenerateCandles(SyntheticConfig{
		StartPrice: 45000,
		Drift:      0.0001,
		Volatility: 0.004,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   time.Minute,
		Count:      100,
		Seed:       42,
	})

	path := filepath.Join(suite.T().TempDir(), "candles.csv")
	suite.Require().NoError(WriteCandlesCSV(path, candles))

	return path, candles
}

func (suite *DataSourceTestSuite) TestReadAllRoundTrip() {
	path, want := suite.generateFixture()
	suite.Require().NoError(suite.source.InitializeCSV(path))

	count, err := suite.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(len(want), count)

	var got []types.Candle
	for candle, err := range suite.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		got = append(got, candle)
	}

	suite.Require().Len(got, len(want))

	for i := range want {
		suite.True(got[i].Time.Equal(want[i].Time))
		suite.InDelta(want[i].Open, got[i].Open, 1e-6)
		suite.InDelta(want[i].Close, got[i].Close, 1e-6)
		suite.LessOrEqual(got[i].Low, got[i].High)
	}
}

func (suite *DataSourceTestSuite) TestCountWithTimeRange() {
	path, want := suite.generateFixture()
	suite.Require().NoError(suite.source.InitializeCSV(path))

	// Candles are one minute apart: the first ten minutes hold eleven.
	start := want[0].Time
	end := start.Add(10 * time.Minute)

	count, err := suite.source.Count(optional.Some(start), optional.Some(end))
	suite.Require().NoError(err)
	suite.Equal(11, count)
}

func (suite *DataSourceTestSuite) TestReadAllHonorsRange() {
	path, want := suite.generateFixture()
	suite.Require().NoError(suite.source.InitializeCSV(path))

	start := want[50].Time

	var got []types.Candle
	for candle, err := range suite.source.ReadAll(optional.Some(start), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		got = append(got, candle)
	}

	suite.Require().Len(got, 50)
	suite.True(got[0].Time.Equal(start))
}

func (suite *DataSourceTestSuite) TestParquetRoundTrip() {
	candles := GenerateCandles(SyntheticConfig{
		StartPrice: 45000,
		Volatility: 0.004,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   time.Minute,
		Count:      20,
		Seed:       7,
	})

	path := filepath.Join(suite.T().TempDir(), "candles.parquet")
	suite.Require().NoError(WriteCandlesParquet(path, candles))
	suite.Require().NoError(suite.source.InitializeParquet(path))

	count, err := suite.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(20, count)
}

func TestGenerateCandlesIsDeterministic(t *testing.T) {
	cfg := SyntheticConfig{
		StartPrice: 45000,
		Drift:      0.0001,
		Volatility: 0.004,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   time.Minute,
		Count:      50,
		Seed:       1,
	}

	a := GenerateCandles(cfg)
	b := GenerateCandles(cfg)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("candle %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGeneratedCandlesAreWellFormed(t *testing.T) {
	candles := GenerateCandles(SyntheticConfig{
		StartPrice: 100,
		Volatility: 0.05,
		Start:      time.Now(),
		Interval:   time.Minute,
		Count:      500,
		Seed:       99,
	})

	for i, candle := range candles {
		if candle.Low <= 0 {
			t.Fatalf("candle %d has non-positive low %f", i, candle.Low)
		}

		if candle.High < candle.Low {
			t.Fatalf("candle %d has high %f below low %f", i, candle.High, candle.Low)
		}

		if candle.High < candle.Open || candle.High < candle.Close {
			t.Fatalf("candle %d high does not bound open/close", i)
		}

		if candle.Low > candle.Open || candle.Low > candle.Close {
			t.Fatalf("candle %d low does not bound open/close", i)
		}
	}
}

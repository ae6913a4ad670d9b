package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/stretchr/testify/suite"
)

// stubSource serves a fixed status snapshot and counts reads.
type stubSource struct {
	mu     sync.Mutex
	status types.EngineStatus
	reads  int
}

func (s *stubSource) Status() types.EngineStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	return s.status
}

func (s *stubSource) setEquity(equity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Equity = equity
}

type ServerTestSuite struct {
	suite.Suite
	source *stubSource
	server *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	suite.source = &stubSource{
		status: types.EngineStatus{
			Cash:      10000,
			Equity:    10000,
			MaxEquity: 10000,
			RiskState: types.RiskStateNormal,
			LastPrice: 45000,
		},
	}

	suite.server = New(suite.source, config.TestConfig(), metrics.New(), logger.NewNopLogger())
	suite.server.SetStreamInterval(20 * time.Millisecond)

	err := suite.server.Start(":0")
	suite.Require().NoError(err)
}

func (suite *ServerTestSuite) TearDownTest() {
	if suite.server != nil {
		suite.server.Stop()
	}
}

func (suite *ServerTestSuite) TestHealthEndpoint() {
	resp, err := http.Get(suite.server.BaseURL() + "/healthz")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]string
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Equal("ok", body["status"])
}

func (suite *ServerTestSuite) TestStatusEndpoint() {
	resp, err := http.Get(suite.server.BaseURL() + "/api/status")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("application/json", resp.Header.Get("Content-Type"))

	var status types.EngineStatus
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&status))
	suite.Equal(10000.0, status.Cash)
	suite.Equal(types.RiskStateNormal, status.RiskState)
	suite.Equal(45000.0, status.LastPrice)
}

func (suite *ServerTestSuite) TestConfigEndpoint() {
	resp, err := http.Get(suite.server.BaseURL() + "/api/config")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)

	var cfg config.Config
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&cfg))
	suite.Equal("BTCUSDT", cfg.Runtime.Symbol)
	suite.Equal(config.TestConfig().Grid.TickSize, cfg.Grid.TickSize)
}

func (suite *ServerTestSuite) TestMetricsEndpoint() {
	resp, err := http.Get(suite.server.BaseURL() + "/metrics")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Contains(string(body), "gridbot_equity")
}

func (suite *ServerTestSuite) TestStatusStreamPushesUpdates() {
	conn, resp, err := websocket.DefaultDialer.Dial(suite.server.WebSocketURL()+"/ws/status", nil)
	suite.Require().NoError(err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// First frame arrives immediately.
	var first types.EngineStatus
	suite.Require().NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	suite.Require().NoError(conn.ReadJSON(&first))
	suite.Equal(10000.0, first.Equity)

	suite.source.setEquity(10250)

	// A later frame reflects the updated snapshot.
	deadline := time.Now().Add(2 * time.Second)
	for {
		suite.Require().NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))

		var status types.EngineStatus
		suite.Require().NoError(conn.ReadJSON(&status))
		if status.Equity == 10250 {
			break
		}
		suite.Require().True(time.Now().Before(deadline), "stream never reflected updated equity")
	}
}

func (suite *ServerTestSuite) TestStopClosesStreams() {
	conn, resp, err := websocket.DefaultDialer.Dial(suite.server.WebSocketURL()+"/ws/status", nil)
	suite.Require().NoError(err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	suite.Require().NoError(suite.server.Stop())
	suite.server = nil

	suite.Require().NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		var status types.EngineStatus
		if err := conn.ReadJSON(&status); err != nil {
			break
		}
	}
}

func TestAddressBeforeStartIsEmpty(t *testing.T) {
	srv := New(&stubSource{}, config.TestConfig(), nil, nil)
	if srv.Address() != "" {
		t.Fatalf("expected empty address before Start, got %q", srv.Address())
	}
}
